package logger

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"
)

// NewSlogHandler returns a slog.Handler that forwards records to l.
// If l is nil, it returns nil.
func NewSlogHandler(l *Logger) slog.Handler {
	if l == nil {
		return nil
	}
	return &slogAdapter{log: l}
}

// NewStdLogger bridges l into a *log.Logger whose lines are recorded at the
// given slog level. net/http's ErrorLog is the main consumer.
func NewStdLogger(l *Logger, level slog.Level) *log.Logger {
	if l == nil {
		l = Global()
	}
	return slog.NewLogLogger(NewSlogHandler(l), level)
}

type slogAdapter struct {
	log    *Logger
	groups []string

	// rendered holds attributes bound by WithAttrs, already qualified with
	// the groups that were open at the time.
	rendered []string
}

func (h *slogAdapter) Enabled(_ context.Context, level slog.Level) bool {
	return h.log.Enabled(fromSlogLevel(level))
}

func (h *slogAdapter) Handle(_ context.Context, record slog.Record) error {
	parts := append([]string(nil), h.rendered...)
	record.Attrs(func(attr slog.Attr) bool {
		parts = appendAttr(parts, attr, h.groups)
		return true
	})

	message := strings.TrimRight(record.Message, "\n")
	if text := strings.Join(parts, " "); text != "" {
		if message == "" {
			message = text
		} else {
			message += " " + text
		}
	}

	h.log.log(fromSlogLevel(record.Level), "%s", message)
	return nil
}

func (h *slogAdapter) WithAttrs(attrs []slog.Attr) slog.Handler {
	rendered := append([]string(nil), h.rendered...)
	for _, attr := range attrs {
		rendered = appendAttr(rendered, attr, h.groups)
	}
	return &slogAdapter{log: h.log, groups: h.groups, rendered: rendered}
}

func (h *slogAdapter) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	groups = append(groups, name)
	return &slogAdapter{log: h.log, groups: groups, rendered: h.rendered}
}

func fromSlogLevel(level slog.Level) Level {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarn
	case level >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

func appendAttr(parts []string, attr slog.Attr, path []string) []string {
	if attr.Equal(slog.Attr{}) {
		return parts
	}

	key := attr.Key
	if key == "" {
		key = "attr"
	}

	if attr.Value.Kind() == slog.KindGroup {
		nested := append(append([]string(nil), path...), key)
		for _, inner := range attr.Value.Group() {
			parts = appendAttr(parts, inner, nested)
		}
		return parts
	}

	full := append(append([]string(nil), path...), key)
	return append(parts, fmt.Sprintf("%s=%v", strings.Join(full, "."), attr.Value))
}
