// Package supervisor queues submitted tasks, runs each in its own worker
// process under a concurrency cap, reaps finished workers into the shared
// task table and tears workers down on reset and shutdown.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codefionn/planrunner/internal/config"
	"github.com/codefionn/planrunner/internal/consts"
	"github.com/codefionn/planrunner/internal/events"
	"github.com/codefionn/planrunner/internal/logger"
	"github.com/codefionn/planrunner/internal/task"
)

// Config holds the pool settings.
type Config struct {
	SpoolDir       string
	MaxConcurrent  int
	PollInterval   time.Duration
	TerminateGrace time.Duration
	KillWait       time.Duration
	// WorkerCommand is the argv prefix; --input and --output are appended.
	WorkerCommand []string
	// ConfigPath is exported to workers as PLANRUNNER_CONFIG when set.
	ConfigPath string
	WatchSpool bool
}

// ConfigFrom extracts the supervisor settings from the full configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		SpoolDir:       cfg.Supervisor.SpoolDir,
		MaxConcurrent:  cfg.Supervisor.MaxConcurrent,
		PollInterval:   cfg.Supervisor.PollInterval.Duration,
		TerminateGrace: cfg.Supervisor.TerminateGrace.Duration,
		KillWait:       cfg.Supervisor.KillWait.Duration,
		WorkerCommand:  cfg.Supervisor.WorkerCommand,
		ConfigPath:     cfg.Path(),
		WatchSpool:     cfg.Supervisor.WatchSpool,
	}
}

// ResetReport summarizes what Reset discarded.
type ResetReport struct {
	TasksCleared     int `json:"tasks_cleared"`
	PendingCancelled int `json:"pending_cancelled"`
	Killed           int `json:"killed"`
}

// Health is the load snapshot served by /health.
type Health struct {
	Status          string `json:"status"`
	ActiveTasks     int    `json:"active_tasks"`
	ActiveProcesses int    `json:"active_processes"`
	Pending         int    `json:"pending"`
}

// Supervisor owns the task table, the backlog and the worker pool.
//
// Lock order: procMu, then tasksMu.
type Supervisor struct {
	cfg     Config
	command []string
	sink    events.Sink
	log     *logger.Logger

	tasksMu sync.RWMutex
	tasks   map[string]*task.Task
	order   []string

	procMu  sync.Mutex
	active  map[string]*workerProcess
	backlog []string

	wake    chan struct{}
	watcher *spoolWatcher

	runMu   sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// New creates a stopped supervisor. A nil sink discards events.
func New(cfg Config, sink events.Sink, log *logger.Logger) (*Supervisor, error) {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = consts.DefaultMaxConcurrent
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = consts.PollInterval
	}
	if cfg.TerminateGrace <= 0 {
		cfg.TerminateGrace = consts.Timeout2Seconds
	}
	if cfg.KillWait <= 0 {
		cfg.KillWait = consts.Timeout1Second
	}
	if cfg.SpoolDir == "" {
		return nil, errors.New("supervisor: spool directory is required")
	}
	// Workers change directory before they touch their spool files.
	spoolDir, err := filepath.Abs(cfg.SpoolDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve spool directory: %w", err)
	}
	cfg.SpoolDir = spoolDir
	if err := os.MkdirAll(cfg.SpoolDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	command := cfg.WorkerCommand
	if len(command) == 0 {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve worker executable: %w", err)
		}
		command = []string{exe, "worker"}
	}

	if sink == nil {
		sink = events.Discard
	}
	if log == nil {
		log = logger.Global()
	}

	return &Supervisor{
		cfg:     cfg,
		command: command,
		sink:    sink,
		log:     log.WithPrefix("supervisor"),
		tasks:   make(map[string]*task.Task),
		active:  make(map[string]*workerProcess),
		wake:    make(chan struct{}, 1),
	}, nil
}

// Submit records a pending task and queues it. It never blocks on the pool.
func (s *Supervisor) Submit(goal string) string {
	id := uuid.NewString()

	s.procMu.Lock()
	s.tasksMu.Lock()
	s.tasks[id] = &task.Task{ID: id, Goal: goal, State: task.StatePending}
	s.order = append(s.order, id)
	s.tasksMu.Unlock()
	s.backlog = append(s.backlog, id)
	s.procMu.Unlock()

	s.log.Info("Task %s submitted: %s", logger.ShortID(id), task.Preview(goal))
	s.sink.Publish(events.New(events.TaskSubmitted, id, task.StatePending, ""))
	s.nudge()
	return id
}

// Status returns the externally visible state of id.
func (s *Supervisor) Status(id string) task.Status {
	s.tasksMu.RLock()
	defer s.tasksMu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return task.NotFound(id)
	}
	return t.Status()
}

// List returns every known task in submission order.
func (s *Supervisor) List() []task.Summary {
	s.tasksMu.RLock()
	defer s.tasksMu.RUnlock()
	out := make([]task.Summary, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id].Summary())
	}
	return out
}

// Health reports the current load.
func (s *Supervisor) Health() Health {
	s.procMu.Lock()
	defer s.procMu.Unlock()
	s.tasksMu.RLock()
	defer s.tasksMu.RUnlock()

	running := 0
	for _, t := range s.tasks {
		if t.State == task.StateRunning {
			running++
		}
	}
	return Health{
		Status:          "ok",
		ActiveTasks:     running,
		ActiveProcesses: len(s.active),
		Pending:         len(s.backlog),
	}
}

// Reset forgets every task, drops the backlog and terminates every active
// worker before returning. Calling it again is harmless.
func (s *Supervisor) Reset() ResetReport {
	s.procMu.Lock()
	procs := s.takeActive()
	pending := len(s.backlog)
	s.backlog = nil

	s.tasksMu.Lock()
	cleared := len(s.tasks)
	s.tasks = make(map[string]*task.Task)
	s.order = nil
	s.tasksMu.Unlock()
	s.procMu.Unlock()

	s.terminateAll(procs)

	report := ResetReport{TasksCleared: cleared, PendingCancelled: pending, Killed: len(procs)}
	s.log.Info("Reset: %d tasks cleared, %d pending cancelled, %d workers killed", report.TasksCleared, report.PendingCancelled, report.Killed)
	s.sink.Publish(events.New(events.SupervisorReset, "", "", fmt.Sprintf("tasks_cleared=%d pending_cancelled=%d killed=%d", cleared, pending, len(procs))))
	return report
}

// Start runs the reap/admit loop until ctx is cancelled or Stop is called.
func (s *Supervisor) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel != nil || s.stopped {
		return
	}

	if s.cfg.WatchSpool {
		w, err := newSpoolWatcher(s.nudge, s.log)
		if err != nil {
			s.log.Warn("Spool watcher unavailable, polling only: %v", err)
		} else {
			s.watcher = w
		}
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
	s.log.Info("Started: max %d workers, spool %s", s.cfg.MaxConcurrent, s.cfg.SpoolDir)
}

// Stop ends the loop and terminates every active worker. Queued tasks stay
// pending.
func (s *Supervisor) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true

	if s.cancel != nil {
		s.cancel()
		<-s.done
	}

	s.procMu.Lock()
	procs := s.takeActive()
	s.procMu.Unlock()
	s.terminateAll(procs)

	if err := s.watcher.close(); err != nil {
		s.log.Warn("Failed to close spool watcher: %v", err)
	}
	s.log.Info("Stopped")
}

func (s *Supervisor) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		s.tick()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.wake:
		}
	}
}

// tick runs one reap pass followed by one admit pass.
func (s *Supervisor) tick() {
	s.reap()
	s.admit()
}

// nudge wakes the loop early. Extra nudges coalesce.
func (s *Supervisor) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// reap collects exited workers and records their outcome.
func (s *Supervisor) reap() {
	var finished []events.Event

	s.procMu.Lock()
	for id, p := range s.active {
		if !p.exitedNow() {
			continue
		}
		delete(s.active, id)
		s.watcher.remove(p.paths.Dir)

		outcome := task.Classify(p.paths.Output, p.exitCode)

		s.tasksMu.Lock()
		if t, ok := s.tasks[id]; ok {
			t.State = outcome.State
			t.Result = outcome.Result
			t.Error = outcome.Error
		}
		s.tasksMu.Unlock()

		detail := ""
		if outcome.Error != nil {
			detail = *outcome.Error
		}
		s.log.Info("Task %s %s (exit code %d)", logger.ShortID(id), outcome.State, p.exitCode)
		finished = append(finished, events.New(events.TaskFinished, id, outcome.State, detail))
	}
	s.procMu.Unlock()

	for _, e := range finished {
		s.sink.Publish(e)
	}
}

// admit starts queued tasks while pool slots are free.
func (s *Supervisor) admit() {
	var emitted []events.Event

	s.procMu.Lock()
	for len(s.active) < s.cfg.MaxConcurrent && len(s.backlog) > 0 {
		id := s.backlog[0]
		s.backlog = s.backlog[1:]

		s.tasksMu.RLock()
		t, ok := s.tasks[id]
		var goal string
		if ok {
			goal = t.Goal
		}
		s.tasksMu.RUnlock()
		if !ok {
			continue
		}

		paths := task.Paths(s.cfg.SpoolDir, id)
		p, err := s.spawn(id, goal, paths)

		s.tasksMu.Lock()
		if err != nil {
			t.State = task.StateFailed
			t.Error = task.Str("Failed to spawn: " + err.Error())
		} else {
			t.State = task.StateRunning
			t.Paths = paths
		}
		s.tasksMu.Unlock()

		if err != nil {
			s.log.Error("Failed to spawn worker for task %s: %v", logger.ShortID(id), err)
			emitted = append(emitted, events.New(events.TaskSpawnFailed, id, task.StateFailed, err.Error()))
			continue
		}

		s.active[id] = p
		s.watcher.add(paths.Dir)
		s.log.Info("Task %s started (pid %d)", logger.ShortID(id), p.cmd.Process.Pid)
		emitted = append(emitted, events.New(events.TaskStarted, id, task.StateRunning, ""))
	}
	s.procMu.Unlock()

	for _, e := range emitted {
		s.sink.Publish(e)
	}
}

// takeActive empties the active set. Callers hold procMu.
func (s *Supervisor) takeActive() []*workerProcess {
	procs := make([]*workerProcess, 0, len(s.active))
	for id, p := range s.active {
		procs = append(procs, p)
		delete(s.active, id)
		s.watcher.remove(p.paths.Dir)
	}
	return procs
}

// terminateAll stops procs concurrently and waits for all of them.
func (s *Supervisor) terminateAll(procs []*workerProcess) {
	var wg sync.WaitGroup
	for _, p := range procs {
		wg.Add(1)
		go func(p *workerProcess) {
			defer wg.Done()
			ph := terminate(p, s.cfg.TerminateGrace, s.cfg.KillWait, s.log)
			s.log.Info("Worker for task %s ended: %s", logger.ShortID(p.taskID), ph)
		}(p)
	}
	wg.Wait()
}
