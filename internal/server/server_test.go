package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/planrunner/internal/events"
	"github.com/codefionn/planrunner/internal/logger"
	"github.com/codefionn/planrunner/internal/supervisor"
	"github.com/codefionn/planrunner/internal/task"
)

func quiet() *logger.Logger {
	return logger.NewWriter(logger.LevelNone, io.Discard, "")
}

type fakeSupervisor struct {
	submitted []string
	resets    int
}

func (f *fakeSupervisor) Submit(goal string) string {
	f.submitted = append(f.submitted, goal)
	return "id-1"
}

func (f *fakeSupervisor) Status(id string) task.Status {
	if id != "id-1" {
		return task.NotFound(id)
	}
	return task.Status{TaskID: id, Status: task.StateCompleted, Result: task.Str("42")}
}

func (f *fakeSupervisor) List() []task.Summary {
	return []task.Summary{{TaskID: "id-1", Status: task.StateRunning, TaskPreview: "goal"}}
}

func (f *fakeSupervisor) Reset() supervisor.ResetReport {
	f.resets++
	return supervisor.ResetReport{TasksCleared: 3, PendingCancelled: 1, Killed: 1}
}

func (f *fakeSupervisor) Health() supervisor.Health {
	return supervisor.Health{Status: "ok", ActiveTasks: 1, ActiveProcesses: 1, Pending: 2}
}

type fakeStore struct {
	events []events.Event
	err    error
}

func (f *fakeStore) Events(taskID string) ([]events.Event, error) {
	return f.events, f.err
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestRun(t *testing.T) {
	sup := &fakeSupervisor{}
	h := New(":0", sup, nil, nil, quiet()).Handler()

	code, body := do(t, h, http.MethodPost, "/run", `{"task":"add numbers"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"task_id": "id-1", "status": "pending", "message": "Task submitted"}, body)
	assert.Equal(t, []string{"add numbers"}, sup.submitted)
}

func TestRunRejectsBadBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `task=1`},
		{name: "wrong type", body: `{"task": 5}`},
		{name: "missing task", body: `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sup := &fakeSupervisor{}
			h := New(":0", sup, nil, nil, quiet()).Handler()

			code, body := do(t, h, http.MethodPost, "/run", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.NotEmpty(t, body["detail"])
			assert.Empty(t, sup.submitted)
		})
	}
}

func TestStatus(t *testing.T) {
	h := New(":0", &fakeSupervisor{}, nil, nil, quiet()).Handler()

	code, body := do(t, h, http.MethodGet, "/status/id-1", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"task_id": "id-1", "status": "completed", "result": "42", "error": nil}, body)

	code, body = do(t, h, http.MethodGet, "/status/other", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"task_id": "other", "status": "not_found", "result": nil, "error": "Task not found"}, body)
}

func TestHealthTasksReset(t *testing.T) {
	sup := &fakeSupervisor{}
	h := New(":0", sup, nil, nil, quiet()).Handler()

	_, body := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, map[string]any{"status": "ok", "active_tasks": 1.0, "active_processes": 1.0, "pending": 2.0}, body)

	_, body = do(t, h, http.MethodGet, "/tasks", "")
	assert.Equal(t, map[string]any{"tasks": []any{
		map[string]any{"task_id": "id-1", "status": "running", "task_preview": "goal"},
	}}, body)

	_, body = do(t, h, http.MethodGet, "/reset", "")
	assert.Equal(t, map[string]any{"status": "reset_complete", "tasks_cleared": 3.0, "pending_cancelled": 1.0, "killed": 1.0}, body)
	assert.Equal(t, 1, sup.resets)
}

func TestTaskEvents(t *testing.T) {
	t.Run("journal disabled", func(t *testing.T) {
		h := New(":0", &fakeSupervisor{}, nil, nil, quiet()).Handler()
		code, _ := do(t, h, http.MethodGet, "/tasks/id-1/events", "")
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("history", func(t *testing.T) {
		store := &fakeStore{events: []events.Event{
			{Type: events.TaskSubmitted, TaskID: "id-1", Status: task.StatePending, Time: time.Unix(0, 0).UTC()},
		}}
		h := New(":0", &fakeSupervisor{}, store, nil, quiet()).Handler()
		code, body := do(t, h, http.MethodGet, "/tasks/id-1/events", "")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "id-1", body["task_id"])
		require.Len(t, body["events"], 1)
		assert.Equal(t, "task.submitted", body["events"].([]any)[0].(map[string]any)["type"])
	})

	t.Run("journal error", func(t *testing.T) {
		h := New(":0", &fakeSupervisor{}, &fakeStore{err: errors.New("disk I/O error")}, nil, quiet()).Handler()
		code, body := do(t, h, http.MethodGet, "/tasks/id-1/events", "")
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, "disk I/O error", body["detail"])
	})
}

func TestStreamDisabled(t *testing.T) {
	h := New(":0", &fakeSupervisor{}, nil, nil, quiet()).Handler()
	code, _ := do(t, h, http.MethodGet, "/events", "")
	assert.Equal(t, http.StatusNotFound, code)
}

// TestStatusRoundTrip runs a real supervisor whose worker writes the output
// file, and reads the outcome back over HTTP.
func TestStatusRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("worker scripts need /bin/sh")
	}

	journal, err := events.OpenJournal(filepath.Join(t.TempDir(), "events.db"), quiet())
	require.NoError(t, err)
	defer journal.Close()

	sup, err := supervisor.New(supervisor.Config{
		SpoolDir:      t.TempDir(),
		MaxConcurrent: 1,
		PollInterval:  10 * time.Millisecond,
		WorkerCommand: []string{"/bin/sh", "-c", `printf '{"status":"completed","result":"done: %s"}' "$(basename "$(dirname "$1")")" > "$3"`},
	}, journal, quiet())
	require.NoError(t, err)
	sup.Start(t.Context())
	defer sup.Stop()

	srv := httptest.NewServer(New(":0", sup, journal, nil, quiet()).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/run", "application/json", strings.NewReader(`{"task":"hello"}`))
	require.NoError(t, err)
	var run RunResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	resp.Body.Close()

	var st task.Status
	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/status/" + run.TaskID)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		st = task.Status{}
		return json.NewDecoder(resp.Body).Decode(&st) == nil && st.Status == task.StateCompleted
	}, 5*time.Second, 20*time.Millisecond)

	require.NotNil(t, st.Result)
	assert.Equal(t, "done: "+run.TaskID, *st.Result)
	assert.Nil(t, st.Error)

	// The finished event is published after the status flips.
	var evs []events.Event
	require.Eventually(t, func() bool {
		evs, err = journal.Events(run.TaskID)
		return err == nil && len(evs) == 3
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, events.TaskFinished, evs[2].Type)
}
