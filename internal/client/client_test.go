package client

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/planrunner/internal/logger"
	"github.com/codefionn/planrunner/internal/server"
	"github.com/codefionn/planrunner/internal/supervisor"
	"github.com/codefionn/planrunner/internal/task"
)

// scripted completes a task after a fixed number of status polls.
type scripted struct {
	mu    sync.Mutex
	polls int
	goals []string
}

func (s *scripted) Submit(goal string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = append(s.goals, goal)
	return "abc"
}

func (s *scripted) Status(id string) task.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "abc" {
		return task.NotFound(id)
	}
	s.polls++
	if s.polls < 3 {
		return task.Status{TaskID: id, Status: task.StateRunning}
	}
	return task.Status{TaskID: id, Status: task.StateCompleted, Result: task.Str("ok")}
}

func (s *scripted) List() []task.Summary {
	return []task.Summary{{TaskID: "abc", Status: task.StatePending, TaskPreview: "g"}}
}

func (s *scripted) Reset() supervisor.ResetReport {
	return supervisor.ResetReport{TasksCleared: 1}
}

func (s *scripted) Health() supervisor.Health {
	return supervisor.Health{Status: "ok", Pending: 1}
}

func newTestClient(t *testing.T) (*Client, *scripted) {
	t.Helper()
	sup := &scripted{}
	srv := httptest.NewServer(server.New(":0", sup, nil, nil, logger.NewWriter(logger.LevelNone, io.Discard, "")).Handler())
	t.Cleanup(srv.Close)
	return New(srv.URL), sup
}

func TestClientCalls(t *testing.T) {
	c, sup := newTestClient(t)
	ctx := context.Background()

	run, err := c.Run(ctx, "do things")
	require.NoError(t, err)
	assert.Equal(t, "abc", run.TaskID)
	assert.Equal(t, task.StatePending, run.Status)
	assert.Equal(t, []string{"do things"}, sup.goals)

	tasks, err := c.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "g", tasks[0].TaskPreview)

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Pending)

	r, err := c.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, "reset_complete", r.Status)
	assert.Equal(t, 1, r.TasksCleared)

	st, err := c.Status(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, task.StateNotFound, st.Status)
}

func TestWaitPollsUntilTerminal(t *testing.T) {
	c, sup := newTestClient(t)

	st, err := c.Wait(context.Background(), "abc", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, task.StateCompleted, st.Status)
	require.NotNil(t, st.Result)
	assert.Equal(t, "ok", *st.Result)
	assert.Equal(t, 3, sup.polls)
}

func TestWaitStopsOnUnknownTask(t *testing.T) {
	c, _ := newTestClient(t)
	st, err := c.Wait(context.Background(), "nope", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, task.StateNotFound, st.Status)
}

func TestServerErrorDetail(t *testing.T) {
	c, _ := newTestClient(t)
	err := c.do(context.Background(), "POST", "/run", map[string]any{}, &server.RunResponse{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), `field "task" is required`), err.Error())
}

func TestNewNormalizesURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, New("").baseURL)
	assert.Equal(t, "http://host:9000", New("host:9000/").baseURL)
}
