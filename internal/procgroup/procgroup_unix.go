//go:build !windows

package procgroup

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Configure makes cmd the leader of a new process group.
func Configure(cmd *exec.Cmd) {
	if cmd == nil {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// ID returns the process group of a started command, or 0.
func ID(cmd *exec.Cmd) int {
	if cmd == nil || cmd.Process == nil {
		return 0
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		return 0
	}
	return pgid
}

// Signal delivers sig to every member of the group.
func Signal(pgid int, sig syscall.Signal) error {
	if pgid <= 0 {
		return fmt.Errorf("invalid process group id: %d", pgid)
	}
	return syscall.Kill(-pgid, sig)
}

// Terminate asks the group to stop.
func Terminate(pgid int) error {
	return Signal(pgid, syscall.SIGTERM)
}

// Kill forcibly stops the group.
func Kill(pgid int) error {
	return Signal(pgid, syscall.SIGKILL)
}

func signaled(state *os.ProcessState) (int, bool) {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0, false
	}
	return int(ws.Signal()), true
}
