package task

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		goal string
		want string
	}{
		{"short", "create doc.txt", "create doc.txt"},
		{"exactly limit", strings.Repeat("a", 100), strings.Repeat("a", 100)},
		{"truncated", strings.Repeat("b", 101), strings.Repeat("b", 100) + "..."},
		{"runes", strings.Repeat("з", 120), strings.Repeat("з", 100) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preview(tt.goal))
		})
	}
}

func TestNotFound(t *testing.T) {
	st := NotFound("nope")
	assert.Equal(t, StateNotFound, st.Status)
	require.NotNil(t, st.Error)
	assert.Equal(t, "Task not found", *st.Error)
	assert.Nil(t, st.Result)
}

func TestInputRoundTrip(t *testing.T) {
	paths := Paths(t.TempDir(), "0f8fad5b-d9cb-469f-a165-70867728950e")
	require.NoError(t, WriteInput(paths, WorkerInput{TaskID: "0f8fad5b-d9cb-469f-a165-70867728950e", Task: "count files"}))

	in, err := ReadInput(paths.Input)
	require.NoError(t, err)
	assert.Equal(t, "count files", in.Task)
	assert.Equal(t, filepath.Join(paths.Dir, "run"), paths.RunLogDir())
	assert.Equal(t, paths, DirPaths(paths.Dir), "the layout is recoverable from the task directory")
}

func TestReadInputRejectsMissingID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"task":"x"}`), 0644))

	_, err := ReadInput(path)
	assert.Error(t, err)
}

func TestWriteOutputThenClassify(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, OutputFile)

	require.NoError(t, WriteOutput(path, Completed("R")))
	out := Classify(path, 0)
	assert.Equal(t, StateCompleted, out.State)
	require.NotNil(t, out.Result)
	assert.Equal(t, "R", *out.Result)
	assert.Nil(t, out.Error)

	require.NoError(t, WriteOutput(path, Failed(errors.New("model unreachable"))))
	out = Classify(path, 1)
	assert.Equal(t, StateFailed, out.State)
	require.NotNil(t, out.Error)
	assert.Equal(t, "model unreachable", *out.Error)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		content  *string
		exitCode int
		state    State
		errText  string
	}{
		{"missing file", nil, 137, StateFailed, "Worker exited with code 137 (no output)"},
		{"garbage", Str("{not json"), 0, StateFailed, "Failed to parse output:"},
		{"not an object", Str("null"), 0, StateFailed, "Failed to parse output:"},
		{"invalid status", Str(`{"status":"done","result":"x"}`), 0, StateFailed, "Worker returned invalid status: done"},
		{"missing status", Str(`{"result":"x"}`), 0, StateFailed, "Worker returned invalid status: "},
		{"failed verbatim", Str(`{"status":"failed","error":"boom"}`), 1, StateFailed, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), OutputFile)
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0644))
			}

			out := Classify(path, tt.exitCode)
			assert.Equal(t, tt.state, out.State)
			require.NotNil(t, out.Error)
			assert.Contains(t, *out.Error, tt.errText)
		})
	}
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StatePending.Terminal())
	assert.False(t, StateRunning.Terminal())
	assert.False(t, StateNotFound.Terminal())
}
