package logging

import (
	"context"
	"log/slog"
	"time"

	"streamline/internal/services"
)

type Attr = slog.Attr

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

// Error renders err under the "error" key; a nil error is logged as "<nil>".
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Hint tells the operator what to check next.
func Hint(value string) Attr { return slog.String(FieldErrorHint, value) }

// Impact states what the failure means for the request or the run.
func Impact(value string) Attr { return slog.String(FieldImpact, value) }

// ErrorKind classifies err with the service error taxonomy.
func ErrorKind(err error) Attr {
	return slog.String(FieldErrorKind, string(services.KindOf(err)))
}

// warnDefaults fill in the fields every warning must carry.
var warnDefaults = []struct {
	key   string
	value string
}{
	{FieldErrorHint, "check logs for details"},
	{FieldImpact, "operation completed with warnings"},
}

// WarnWithContext logs a warning tagged with eventType. A missing error hint
// or impact gets a generic default so warnings stay filterable.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	present := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		present[a.Key] = true
	}
	args := make([]any, 0, len(attrs)+len(warnDefaults)+1)
	if !present[FieldEventType] {
		args = append(args, slog.String(FieldEventType, eventType))
	}
	for _, a := range attrs {
		args = append(args, a)
	}
	for _, d := range warnDefaults {
		if !present[d.key] {
			args = append(args, slog.String(d.key, d.value))
		}
	}
	logger.Warn(msg, args...)
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(discardHandler{})
}

// NewComponentLogger tags logger with a component name. A nil logger
// yields a no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(slog.String(FieldComponent, component))
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
