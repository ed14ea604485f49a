// Package procgroup runs children in their own process group so a whole
// tree can be signalled at once, kills process trees that share a group
// with their caller, and maps wait statuses to shell-style exit codes.
package procgroup

import (
	"errors"
	"os"
	"os/exec"
)

// ExitCode returns the shell-convention exit code of a finished process:
// the exit status, or 128+signo when it was killed by a signal. It returns
// -1 when nothing is known.
func ExitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	if sig, ok := signaled(state); ok {
		return 128 + sig
	}
	return state.ExitCode()
}

// ExitCodeFromError digs the exit code out of an error returned by Wait.
func ExitCodeFromError(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return ExitCode(exitErr.ProcessState), true
	}
	return 0, false
}
