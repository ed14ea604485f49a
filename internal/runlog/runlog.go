// Package runlog writes the human-readable record of one task run: the
// plan history, the after-step decisions and a transcript per step.
// Write failures are logged and never interrupt the run.
package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/codefionn/planrunner/internal/logger"
	"github.com/codefionn/planrunner/internal/redact"
)

// File names inside the run directory.
const (
	PlanFile      = "plan.txt"
	DecisionsFile = "decisions.txt"
	MessagesFile  = "messages.txt"
	ReasoningFile = "reasoning.txt"
)

const ruleWidth = 80

// Log appends to the files of one run directory. A nil *Log discards
// everything.
type Log struct {
	dir      string
	log      *logger.Logger
	redactor *redact.Redactor
	mu       sync.Mutex
}

// Open creates dir if needed and returns a Log writing below it.
func Open(dir string, log *logger.Logger) (*Log, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run log directory: %w", err)
	}
	if log == nil {
		log = logger.Global()
	}
	return &Log{dir: dir, log: log.WithPrefix("runlog")}, nil
}

// SetRedactor masks credentials in everything written afterwards.
func (l *Log) SetRedactor(r *redact.Redactor) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.redactor = r
	l.mu.Unlock()
}

// Dir returns the run directory.
func (l *Log) Dir() string {
	if l == nil {
		return ""
	}
	return l.dir
}

// Plan records a plan under a heading such as "Initial plan:".
func (l *Log) Plan(heading, formatted string) {
	if l == nil {
		return
	}
	l.appendEntry(filepath.Join(l.dir, PlanFile), heading+"\n"+formatted)
}

// Decision records the decision taken after step n.
func (l *Log) Decision(n int, decision any) {
	if l == nil {
		return
	}
	data, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		l.log.Warn("Failed to encode decision after step %d: %v", n, err)
		return
	}
	l.appendEntry(filepath.Join(l.dir, DecisionsFile), fmt.Sprintf("Decision after step %d:\n%s", n, data))
}

// Step returns the transcript writer of step n (1-based).
func (l *Log) Step(n int) *StepLog {
	if l == nil {
		return nil
	}
	return &StepLog{parent: l, dir: filepath.Join(l.dir, fmt.Sprintf("step_%d", n))}
}

func (l *Log) appendEntry(path, content string) {
	l.write(path, strings.TrimRight(content, " \t\r\n")+"\n\n")
}

func (l *Log) write(path, content string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		l.log.Warn("Failed to create %s: %v", filepath.Dir(path), err)
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		l.log.Warn("Failed to open %s: %v", path, err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(l.redactor.Redact(content)); err != nil {
		l.log.Warn("Failed to write %s: %v", path, err)
	}
}

// StepLog is the transcript of one step. A nil *StepLog discards
// everything.
type StepLog struct {
	parent *Log
	dir    string
}

// Message appends one conversation turn under a banner naming role.
func (s *StepLog) Message(role, content string) {
	if s == nil {
		return
	}
	rule := strings.Repeat("=", ruleWidth)
	s.parent.write(filepath.Join(s.dir, MessagesFile),
		fmt.Sprintf("\n%s\n[%s]\n%s\n%s\n\n", rule, strings.ToUpper(role), rule, content))
}

// Reasoning appends the model's reasoning for one reply. Empty reasoning
// is skipped.
func (s *StepLog) Reasoning(text string) {
	if s == nil || text == "" {
		return
	}
	s.parent.write(filepath.Join(s.dir, ReasoningFile),
		text+"\n\n"+strings.Repeat("~", ruleWidth)+"\n\n")
}
