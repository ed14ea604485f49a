package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codefionn/planrunner/internal/server"
	"github.com/codefionn/planrunner/internal/supervisor"
	"github.com/codefionn/planrunner/internal/task"
)

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, task.Status{TaskID: "abc", Status: task.StateFailed, Error: task.Str("boom")})
	out := buf.String()
	assert.Contains(t, out, "abc")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "boom")
	assert.NotContains(t, out, "Result")

	buf.Reset()
	printStatus(&buf, task.Status{TaskID: "abc", Status: task.StateCompleted, Result: task.Str("42")})
	assert.Contains(t, buf.String(), "42")
	assert.NotContains(t, buf.String(), "Error")
}

func TestPrintTasks(t *testing.T) {
	var buf bytes.Buffer
	printTasks(&buf, nil)
	assert.Contains(t, buf.String(), "No tasks")

	buf.Reset()
	printTasks(&buf, []task.Summary{
		{TaskID: "a", Status: task.StateRunning, TaskPreview: "first goal"},
		{TaskID: "bbbb", Status: task.StatePending, TaskPreview: "second goal"},
	})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "running")
	assert.Contains(t, lines[0], "first goal")
	assert.Contains(t, lines[1], "pending")
}

func TestPrintHealthAndReset(t *testing.T) {
	var buf bytes.Buffer
	printHealth(&buf, supervisor.Health{Status: "ok", ActiveTasks: 2, ActiveProcesses: 1, Pending: 1})
	assert.Contains(t, buf.String(), "Active tasks:")
	assert.Contains(t, buf.String(), "2")

	buf.Reset()
	printReset(&buf, server.ResetResponse{Status: "reset_complete", ResetReport: supervisor.ResetReport{TasksCleared: 3, Killed: 1}})
	assert.Equal(t, "reset_complete: cleared 3 tasks, cancelled 0 pending, killed 1 workers\n", buf.String())
}
