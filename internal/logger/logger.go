// Package logger is the levelled printf-style logger shared by the serve
// process and its workers. A worker logs to stderr, which the supervisor
// captures as the task's stderr.log.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents a logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	// LevelNone disables all logging
	LevelNone
)

var levelNames = [...]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelNone:  "NONE",
}

// StderrPath selects standard error as the log destination.
const StderrPath = "-"

const timeLayout = "2006-01-02 15:04:05.000"

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel parses a level name case-insensitively. Unknown values map to
// LevelInfo.
func ParseLevel(s string) Level {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "WARNING":
		return LevelWarn
	case "OFF":
		return LevelNone
	}
	for lvl, name := range levelNames {
		if name == s {
			return Level(lvl)
		}
	}
	return LevelInfo
}

// sink is the destination shared by a logger and every logger derived from
// it with WithPrefix.
type sink struct {
	mu   sync.Mutex
	w    io.Writer
	file *os.File
}

func (s *sink) writeLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w != nil {
		_, _ = io.WriteString(s.w, line)
	}
}

func (s *sink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.w = nil
	return err
}

// Logger writes levelled, prefixed lines:
//
//	2006-01-02 15:04:05.000 [INFO] [supervisor] task queued
type Logger struct {
	level  Level
	prefix string
	out    *sink
}

var (
	globalMu     sync.Mutex
	globalLogger *Logger
	initOnce     sync.Once
)

// Init installs the global logger. Only the first call has an effect.
func Init(level Level, logPath string) error {
	var err error
	initOnce.Do(func() {
		var l *Logger
		if l, err = New(level, logPath, ""); err == nil {
			globalMu.Lock()
			globalLogger = l
			globalMu.Unlock()
		}
	})
	return err
}

// New creates a Logger. An empty path or StderrPath writes to stderr; any
// other path is opened for appending, creating parent directories.
func New(level Level, logPath string, prefix string) (*Logger, error) {
	if level == LevelNone {
		return NewWriter(LevelNone, io.Discard, prefix), nil
	}
	if logPath == "" || logPath == StderrPath {
		return NewWriter(level, os.Stderr, prefix), nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &Logger{level: level, prefix: prefix, out: &sink{w: file, file: file}}, nil
}

// NewWriter creates a logger that writes to w.
func NewWriter(level Level, w io.Writer, prefix string) *Logger {
	return &Logger{level: level, prefix: prefix, out: &sink{w: w}}
}

// Global returns the logger installed by Init, or a disabled one.
func Global() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewWriter(LevelNone, io.Discard, "")
	}
	return globalLogger
}

// WithPrefix returns a logger whose prefix is extended by prefix, joined
// with ":". The destination is shared.
func (l *Logger) WithPrefix(prefix string) *Logger {
	if l.prefix != "" {
		prefix = l.prefix + ":" + prefix
	}
	return &Logger{level: l.level, prefix: prefix, out: l.out}
}

// ShortID returns the first eight characters of an identifier.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Enabled reports whether messages at level are written.
func (l *Logger) Enabled(level Level) bool {
	return l.level != LevelNone && level >= l.level
}

func (l *Logger) log(level Level, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format(timeLayout))
	b.WriteString(" [")
	b.WriteString(level.String())
	b.WriteString("] ")
	if l.prefix != "" {
		b.WriteString("[")
		b.WriteString(l.prefix)
		b.WriteString("] ")
	}
	fmt.Fprintf(&b, format, args...)
	b.WriteByte('\n')
	l.out.writeLine(b.String())
}

func (l *Logger) Debug(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(LevelError, format, args...) }

// Close closes the log file, if any. Loggers derived with WithPrefix stop
// writing as well.
func (l *Logger) Close() error {
	return l.out.close()
}

// Package-level helpers log through Global().

func Debug(format string, args ...any) { Global().Debug(format, args...) }
func Info(format string, args ...any)  { Global().Info(format, args...) }
func Warn(format string, args ...any)  { Global().Warn(format, args...) }
func Error(format string, args ...any) { Global().Error(format, args...) }
