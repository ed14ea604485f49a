package supervisor

import (
	"errors"
	"syscall"
	"time"

	"github.com/codefionn/planrunner/internal/logger"
	"github.com/codefionn/planrunner/internal/procgroup"
)

// phase names the step of the termination routine that ended a worker.
type phase string

const (
	phaseExited    phase = "already_exited"
	phaseTerminate phase = "sigterm"
	phaseKill      phase = "sigkill"
	phaseUnreaped  phase = "unreaped"
)

// terminate stops p's whole process group: SIGTERM, up to grace for the
// group leader to exit, then SIGKILL and up to killWait more. The exit
// goroutine reaps the leader; the returned phase says which signal did it.
func terminate(p *workerProcess, grace, killWait time.Duration, log *logger.Logger) phase {
	if p.exitedNow() {
		return phaseExited
	}

	if err := procgroup.Terminate(p.pgid); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			p.waitExit(killWait)
			return phaseExited
		}
		log.Warn("SIGTERM to process group %d failed: %v", p.pgid, err)
	}
	if p.waitExit(grace) {
		return phaseTerminate
	}

	log.Warn("Worker for task %s ignored SIGTERM for %s, killing process group %d", logger.ShortID(p.taskID), grace, p.pgid)
	if err := procgroup.Kill(p.pgid); err != nil && !errors.Is(err, syscall.ESRCH) {
		log.Warn("SIGKILL to process group %d failed: %v", p.pgid, err)
	}
	if p.waitExit(killWait) {
		return phaseKill
	}

	log.Error("Worker for task %s did not exit after SIGKILL", logger.ShortID(p.taskID))
	return phaseUnreaped
}
