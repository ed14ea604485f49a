// Package events carries task lifecycle notifications from the supervisor
// to the journal, the NATS subject and connected WebSocket clients.
package events

import (
	"sync"
	"time"

	"github.com/codefionn/planrunner/internal/task"
)

// Type names a lifecycle transition.
type Type string

const (
	TaskSubmitted   Type = "task.submitted"
	TaskStarted     Type = "task.started"
	TaskFinished    Type = "task.finished"
	TaskSpawnFailed Type = "task.spawn_failed"
	SupervisorReset Type = "supervisor.reset"
)

// Event is one lifecycle notification.
type Event struct {
	Type   Type       `json:"type"`
	TaskID string     `json:"task_id,omitempty"`
	Status task.State `json:"status,omitempty"`
	Detail string     `json:"detail,omitempty"`
	Time   time.Time  `json:"time"`
}

// New stamps an event with the current time.
func New(typ Type, taskID string, status task.State, detail string) Event {
	return Event{
		Type:   typ,
		TaskID: taskID,
		Status: status,
		Detail: detail,
		Time:   time.Now().UTC(),
	}
}

// Sink receives events. Publish must not block for long; the supervisor
// calls it from its loop.
type Sink interface {
	Publish(e Event)
}

// Fanout delivers each event to every sink in order. Nil entries are
// skipped.
type Fanout []Sink

// Publish implements Sink.
func (f Fanout) Publish(e Event) {
	for _, s := range f {
		if s != nil {
			s.Publish(e)
		}
	}
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Publish(Event) {}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish implements Sink.
func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types, in order.
func (r *Recorder) Types() []Type {
	evs := r.Events()
	out := make([]Type, len(evs))
	for i, e := range evs {
		out[i] = e.Type
	}
	return out
}
