package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/codefionn/planrunner/internal/consts"
	"github.com/codefionn/planrunner/internal/procgroup"
)

// ShellExecutor runs each block with `bash -c`. Shells stay in the worker's
// process group so a signal to the worker's group reaches them too.
type ShellExecutor struct {
	shell   string
	dir     string
	timeout time.Duration

	mu     sync.Mutex
	active map[int]struct{}
}

// NewShellExecutor creates an executor running shell in dir. A zero
// timeout selects the default of 60 seconds.
func NewShellExecutor(shell, dir string, timeout time.Duration) *ShellExecutor {
	if shell == "" {
		shell = "bash"
	}
	if timeout <= 0 {
		timeout = consts.Timeout60Seconds
	}
	return &ShellExecutor{
		shell:   shell,
		dir:     dir,
		timeout: timeout,
		active:  make(map[int]struct{}),
	}
}

// Execute runs code. stderr is only reported for a non-zero exit.
func (e *ShellExecutor) Execute(ctx context.Context, code string) (Result, error) {
	cmd := exec.Command(e.shell, "-c", code)
	cmd.Dir = e.dir
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Result{Stderr: fmt.Sprintf("Bash execution error: %v", err)}, nil
	}
	pid := cmd.Process.Pid
	e.track(pid, true)
	defer e.track(pid, false)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err == nil {
			return Result{Stdout: stdout.String()}, nil
		}
		if _, exited := procgroup.ExitCodeFromError(err); exited {
			return Result{Stdout: stdout.String(), Stderr: stderr.String()}, nil
		}
		return Result{Stderr: fmt.Sprintf("Bash execution error: %v", err)}, nil
	case <-timer.C:
		e.killTree(cmd)
		<-done
		return Result{Stderr: fmt.Sprintf("Command timed out after %d seconds", int(e.timeout/time.Second))}, nil
	case <-ctx.Done():
		e.killTree(cmd)
		<-done
		return Result{}, ctx.Err()
	}
}

// KillActive kills every running shell and its children.
func (e *ShellExecutor) KillActive() int {
	e.mu.Lock()
	pids := make([]int, 0, len(e.active))
	for pid := range e.active {
		pids = append(pids, pid)
	}
	e.mu.Unlock()

	for _, pid := range pids {
		_ = procgroup.KillTree(pid)
	}
	return len(pids)
}

func (e *ShellExecutor) track(pid int, running bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if running {
		e.active[pid] = struct{}{}
	} else {
		delete(e.active, pid)
	}
}

func (e *ShellExecutor) killTree(cmd *exec.Cmd) {
	if procgroup.KillTree(cmd.Process.Pid) == nil {
		return
	}
	_ = cmd.Process.Kill()
}
