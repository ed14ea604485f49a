package sandbox

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/codefionn/planrunner/internal/logger"
)

// Block languages a Session can run.
const (
	LangPython = "python"
	LangBash   = "bash"
)

// SessionConfig configures the executors of one worker.
type SessionConfig struct {
	Dir          string
	Python       string
	Shell        string
	ShellTimeout time.Duration
	// KernelOutput receives output written directly to the kernel's file
	// descriptors. Nil means stderr.
	KernelOutput io.Writer
	Log          *logger.Logger
}

// Session bundles the namespace and the executors a worker hands to the
// step runner.
type Session struct {
	State  *State
	Python Executor
	Shell  *ShellExecutor
}

// NewSession builds a session. The kernel is not started until the first
// python block or lookup.
func NewSession(cfg SessionConfig) *Session {
	state := NewState(cfg.Python, cfg.Dir, cfg.KernelOutput, cfg.Log)
	return &Session{
		State:  state,
		Python: NewPythonExecutor(state),
		Shell:  NewShellExecutor(cfg.Shell, cfg.Dir, cfg.ShellTimeout),
	}
}

// Run dispatches code to the executor for lang.
func (s *Session) Run(ctx context.Context, lang, code string) (Result, error) {
	switch lang {
	case LangPython:
		return s.Python.Execute(ctx, code)
	case LangBash:
		return s.Shell.Execute(ctx, code)
	default:
		return Result{}, fmt.Errorf("unsupported block language %q", lang)
	}
}

// Lookup reads variables from the namespace.
func (s *Session) Lookup(ctx context.Context, names ...string) (map[string]Variable, error) {
	return s.State.Lookup(ctx, names...)
}

// Close kills running shells and stops the kernel.
func (s *Session) Close() error {
	s.Shell.KillActive()
	return s.State.Close()
}

// PythonExecutor runs python blocks against a State.
type PythonExecutor struct {
	state *State
}

// NewPythonExecutor returns an executor bound to state.
func NewPythonExecutor(state *State) *PythonExecutor {
	return &PythonExecutor{state: state}
}

func (e *PythonExecutor) Execute(ctx context.Context, code string) (Result, error) {
	return e.state.Exec(ctx, code)
}
