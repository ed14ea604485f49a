package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/codefionn/planrunner/internal/config"
	"github.com/codefionn/planrunner/internal/procgroup"
	"github.com/codefionn/planrunner/internal/task"
)

// workerProcess is the supervisor's handle on one running worker.
type workerProcess struct {
	taskID string
	cmd    *exec.Cmd
	pgid   int
	paths  task.SpoolPaths

	exited   chan struct{}
	exitCode int
}

// exitedNow reports whether the worker has been reaped, without blocking.
func (p *workerProcess) exitedNow() bool {
	select {
	case <-p.exited:
		return true
	default:
		return false
	}
}

// waitExit waits up to d for the worker to be reaped.
func (p *workerProcess) waitExit(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-p.exited:
		return true
	case <-timer.C:
		return false
	}
}

// spawn prepares the spool directory of taskID and starts its worker in a
// new process group.
func (s *Supervisor) spawn(taskID, goal string, paths task.SpoolPaths) (*workerProcess, error) {
	if err := task.WriteInput(paths, task.WorkerInput{TaskID: taskID, Task: goal}); err != nil {
		return nil, err
	}

	stdout, err := os.Create(paths.Stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout log: %w", err)
	}
	defer stdout.Close()
	stderr, err := os.Create(paths.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr log: %w", err)
	}
	defer stderr.Close()

	argv := append(append([]string(nil), s.command...), "--input", paths.Input, "--output", paths.Output)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = os.Environ()
	if s.cfg.ConfigPath != "" {
		cmd.Env = append(cmd.Env, config.EnvConfigPath+"="+s.cfg.ConfigPath)
	}
	procgroup.Configure(cmd)

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &workerProcess{
		taskID: taskID,
		cmd:    cmd,
		pgid:   procgroup.ID(cmd),
		paths:  paths,
		exited: make(chan struct{}),
	}
	if p.pgid == 0 {
		// Setpgid makes the child its own group leader.
		p.pgid = cmd.Process.Pid
	}

	go func() {
		_ = cmd.Wait()
		p.exitCode = procgroup.ExitCode(cmd.ProcessState)
		close(p.exited)
		s.nudge()
	}()
	return p, nil
}
