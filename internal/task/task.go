// Package task holds the task record shared by the supervisor, the HTTP API
// and the worker, plus the spool files exchanged across the process boundary.
package task

import (
	"github.com/codefionn/planrunner/internal/consts"
)

// State is a task's lifecycle status.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateNotFound  State = "not_found"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// ErrNotFound is the error text reported for unknown task IDs.
const ErrNotFound = "Task not found"

// Task is the supervisor's record of one submission.
type Task struct {
	ID     string
	Goal   string
	State  State
	Result *string
	Error  *string
	Paths  SpoolPaths
}

// Status is the externally visible view of a task.
type Status struct {
	TaskID string  `json:"task_id"`
	Status State   `json:"status"`
	Result *string `json:"result"`
	Error  *string `json:"error"`
}

// Summary is one entry of a task listing.
type Summary struct {
	TaskID      string `json:"task_id"`
	Status      State  `json:"status"`
	TaskPreview string `json:"task_preview"`
}

// Status returns the view of t served by /status.
func (t *Task) Status() Status {
	return Status{
		TaskID: t.ID,
		Status: t.State,
		Result: t.Result,
		Error:  t.Error,
	}
}

// Summary returns the listing entry of t.
func (t *Task) Summary() Summary {
	return Summary{
		TaskID:      t.ID,
		Status:      t.State,
		TaskPreview: Preview(t.Goal),
	}
}

// NotFound is the status reported for an unknown identifier.
func NotFound(id string) Status {
	msg := ErrNotFound
	return Status{TaskID: id, Status: StateNotFound, Error: &msg}
}

// Preview truncates goal to TaskPreviewLength runes, marking the cut with "...".
func Preview(goal string) string {
	runes := []rune(goal)
	if len(runes) <= consts.TaskPreviewLength {
		return goal
	}
	return string(runes[:consts.TaskPreviewLength]) + "..."
}

// Str returns a pointer to s, for the optional result and error fields.
func Str(s string) *string {
	return &s
}
