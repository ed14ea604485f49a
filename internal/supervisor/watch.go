package supervisor

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/codefionn/planrunner/internal/logger"
	"github.com/codefionn/planrunner/internal/task"
)

// spoolWatcher wakes the loop as soon as a worker publishes its output
// file, so reaping does not wait for the next poll.
type spoolWatcher struct {
	watcher *fsnotify.Watcher
	wake    func()
	stop    chan struct{}
	done    chan struct{}
	log     *logger.Logger
}

func newSpoolWatcher(wake func(), log *logger.Logger) (*spoolWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	sw := &spoolWatcher{
		watcher: w,
		wake:    wake,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		log:     log,
	}
	go sw.run()
	return sw, nil
}

func (sw *spoolWatcher) run() {
	defer close(sw.done)
	for {
		select {
		case <-sw.stop:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			// Output is published by rename, which surfaces as Create.
			if filepath.Base(event.Name) == task.OutputFile && event.Has(fsnotify.Create|fsnotify.Write) {
				sw.wake()
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.log.Warn("Spool watcher error: %v", err)
		}
	}
}

// add starts watching a task's spool directory.
func (sw *spoolWatcher) add(dir string) {
	if sw == nil {
		return
	}
	if err := sw.watcher.Add(dir); err != nil {
		sw.log.Warn("Failed to watch %s: %v", dir, err)
	}
}

// remove stops watching dir. The directory may already be gone.
func (sw *spoolWatcher) remove(dir string) {
	if sw == nil {
		return
	}
	_ = sw.watcher.Remove(dir)
}

func (sw *spoolWatcher) close() error {
	if sw == nil {
		return nil
	}
	close(sw.stop)
	err := sw.watcher.Close()
	<-sw.done
	return err
}
