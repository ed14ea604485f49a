package sandbox

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/planrunner/internal/typeexpr"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	s := NewState(python, t.TempDir(), &bytes.Buffer{}, nil)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStatePersistsNamespace(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	res, err := s.Exec(ctx, "x = [1, 2, 3]\nprint('hello')")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Empty(t, res.Stderr)
	assert.Equal(t, []string{"x"}, res.Changed)

	res, err = s.Exec(ctx, "y = sum(x)\nprint(y)")
	require.NoError(t, err)
	assert.Equal(t, "6\n", res.Stdout)
	assert.Equal(t, []string{"y"}, res.Changed)

	vars, err := s.Lookup(ctx, "x", "y", "missing")
	require.NoError(t, err)
	assert.True(t, vars["x"].Present)
	assert.Equal(t, typeexpr.KindList, vars["x"].Value.Kind)
	assert.Equal(t, 3, vars["x"].Value.Len)
	assert.NoError(t, typeexpr.Check("list[int]", vars["x"].Value))
	assert.Equal(t, "6", vars["y"].Text)
	assert.False(t, vars["missing"].Present)
	assert.True(t, vars["missing"].IsNone())
}

func TestStateTraceback(t *testing.T) {
	s := newTestState(t)

	res, err := s.Exec(context.Background(), "import sys\nprint('before')\nprint('warn', file=sys.stderr)\n1/0")
	require.NoError(t, err)
	assert.Equal(t, "before\n", res.Stdout)
	assert.Contains(t, res.Stderr, "warn\n")
	assert.Contains(t, res.Stderr, "Traceback (most recent call last)")
	assert.Contains(t, res.Stderr, "ZeroDivisionError")
}

func TestStateChangedTracksValues(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	_, err := s.Exec(ctx, "a = 1\nb = 'x'")
	require.NoError(t, err)

	res, err := s.Exec(ctx, "a = 2\nb = 'x'\ndel_me = None")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "del_me"}, res.Changed)

	res, err = s.Exec(ctx, "del del_me")
	require.NoError(t, err)
	assert.Equal(t, []string{"del_me"}, res.Changed)
}

func TestStateTruthinessAndNone(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	_, err := s.Exec(ctx, "final_answer = ''\nstep_status = 'completed'\nout = None")
	require.NoError(t, err)

	vars, err := s.Lookup(ctx, "final_answer", "step_status", "out")
	require.NoError(t, err)
	assert.False(t, vars["final_answer"].Truthy)
	assert.True(t, vars["step_status"].Truthy)
	assert.Equal(t, "completed", vars["step_status"].Text)
	assert.True(t, vars["out"].Present)
	assert.True(t, vars["out"].IsNone())
}

func TestStateCrashRestartsEmpty(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	_, err := s.Exec(ctx, "keep = 1")
	require.NoError(t, err)

	res, err := s.Exec(ctx, "import os\nos._exit(3)")
	require.NoError(t, err)
	assert.Contains(t, res.Stderr, "Python kernel error: kernel exited")
	assert.Equal(t, []string{"keep"}, res.Changed)

	vars, err := s.Lookup(ctx, "keep")
	require.NoError(t, err)
	assert.False(t, vars["keep"].Present)
}

func TestStateContextCancelKillsKernel(t *testing.T) {
	s := newTestState(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := s.Exec(ctx, "while True:\n    pass")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	res, err := s.Exec(context.Background(), "print('alive')")
	require.NoError(t, err)
	assert.Equal(t, "alive\n", res.Stdout)
}

func TestStateMissingInterpreter(t *testing.T) {
	s := NewState("/nonexistent/python3", t.TempDir(), nil, nil)
	defer s.Close()

	_, err := s.Exec(context.Background(), "x = 1")
	assert.ErrorIs(t, err, ErrKernelUnavailable)
}

func TestStateClosed(t *testing.T) {
	s := newTestState(t)
	require.NoError(t, s.Close())

	_, err := s.Exec(context.Background(), "x = 1")
	assert.Error(t, err)
}
