// Package lockfile guards a spool directory so only one supervisor owns it
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrLocked is returned when another live supervisor holds the lock.
var ErrLocked = errors.New("spool is locked by another supervisor")

// Owner describes the process recorded in a lockfile.
type Owner struct {
	PID     int
	Addr    string
	Started time.Time
}

// Lockfile is an O_EXCL lockfile holding the owner's PID and listen address.
type Lockfile struct {
	path   string
	file   *os.File
	owner  Owner
	locked bool
}

// New creates a new lockfile instance
func New(path string) *Lockfile {
	return &Lockfile{path: path}
}

// TryAcquire takes the lock for a supervisor listening on addr. A lockfile
// left behind by a dead process is replaced once.
func (l *Lockfile) TryAcquire(addr string) error {
	if l.locked {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lockfile directory: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil && os.IsExist(err) {
		holder, readErr := ReadOwner(l.path)
		if readErr == nil {
			if running, _ := isProcessRunning(holder.PID); running {
				return fmt.Errorf("%w: pid %d serving %s since %s", ErrLocked, holder.PID, holder.Addr, holder.Started.Format(time.RFC3339))
			}
		}
		// dead owner or unreadable record
		if removeErr := os.Remove(l.path); removeErr != nil && !os.IsNotExist(removeErr) {
			return fmt.Errorf("failed to remove stale lockfile: %w", removeErr)
		}
		file, err = os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	}
	if err != nil {
		return fmt.Errorf("failed to create lockfile: %w", err)
	}

	l.file = file
	l.owner = Owner{PID: os.Getpid(), Addr: addr, Started: time.Now().UTC().Truncate(time.Second)}
	l.locked = true

	content := fmt.Sprintf("%d\n%s\n%s\n", l.owner.PID, l.owner.Addr, l.owner.Started.Format(time.RFC3339))
	if _, err := l.file.WriteString(content); err != nil {
		l.Release()
		return fmt.Errorf("failed to write to lockfile: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		l.Release()
		return fmt.Errorf("failed to sync lockfile: %w", err)
	}
	return nil
}

// ReadOwner parses the record written by TryAcquire.
func ReadOwner(path string) (Owner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Owner{}, err
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return Owner{}, fmt.Errorf("invalid PID in lockfile: %w", err)
	}

	owner := Owner{PID: pid}
	if len(lines) > 1 {
		owner.Addr = strings.TrimSpace(lines[1])
	}
	if len(lines) > 2 {
		owner.Started, _ = time.Parse(time.RFC3339, strings.TrimSpace(lines[2]))
	}
	return owner, nil
}

// Release closes and removes the lockfile
func (l *Lockfile) Release() error {
	if !l.locked {
		return nil
	}

	var err error
	if l.file != nil {
		err = l.file.Close()
		l.file = nil
	}
	if removeErr := os.Remove(l.path); removeErr != nil && !os.IsNotExist(removeErr) {
		err = errors.Join(err, fmt.Errorf("failed to remove lockfile: %w", removeErr))
	}

	l.locked = false
	return err
}

// Owner returns the record this process wrote, valid while locked.
func (l *Lockfile) Owner() Owner {
	return l.owner
}

// Locked returns true if the lock is held
func (l *Lockfile) Locked() bool {
	return l.locked
}

// Path returns the lockfile path
func (l *Lockfile) Path() string {
	return l.path
}
