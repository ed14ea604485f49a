//go:build !windows

package lockfile

import (
	"errors"
	"syscall"
)

// isProcessRunning checks pid with signal 0.
func isProcessRunning(pid int) (bool, string) {
	if pid <= 0 {
		return false, "invalid pid"
	}
	err := syscall.Kill(pid, syscall.Signal(0))
	switch {
	case err == nil:
		return true, ""
	case errors.Is(err, syscall.EPERM):
		// exists, owned by someone else
		return true, ""
	case errors.Is(err, syscall.ESRCH):
		return false, "process has finished"
	default:
		return false, "cannot signal process"
	}
}
