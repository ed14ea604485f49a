//go:build windows

package procgroup

import (
	"os"
	"os/exec"
	"syscall"
)

// Configure leaves cmd untouched; Windows has no POSIX process groups.
func Configure(cmd *exec.Cmd) {
	_ = cmd
}

// ID returns the pid of the started command, which stands in for the group.
func ID(cmd *exec.Cmd) int {
	if cmd == nil || cmd.Process == nil {
		return 0
	}
	return cmd.Process.Pid
}

// Signal is unsupported on Windows.
func Signal(pgid int, sig syscall.Signal) error {
	_ = pgid
	_ = sig
	return syscall.EWINDOWS
}

// Terminate kills the process; Windows cannot deliver a polite request.
func Terminate(pgid int) error {
	return Kill(pgid)
}

// Kill forcibly stops the process.
func Kill(pgid int) error {
	p, err := os.FindProcess(pgid)
	if err != nil {
		return err
	}
	return p.Kill()
}

// KillTree kills the process. Its descendants are left alone.
func KillTree(pid int) error {
	return Kill(pid)
}

func signaled(state *os.ProcessState) (int, bool) {
	return 0, false
}
