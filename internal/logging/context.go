package logging

import (
	"context"
	"log/slog"

	"streamline/internal/services"
)

// Structured field keys shared by every handler.
const (
	FieldComponent     = "component"
	FieldRunID         = "run_id"
	FieldJobID         = "job_id"
	FieldStage         = "stage"
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a line for filtering, e.g. redistribution_failed.
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldImpact    = "impact"
	FieldErrorKind = "error_kind"
)

// contextFields maps log keys to the services context accessors.
var contextFields = []struct {
	key    string
	lookup func(context.Context) (string, bool)
}{
	{FieldRunID, services.RunIDFromContext},
	{FieldJobID, services.JobIDFromContext},
	{FieldStage, services.StageFromContext},
	{FieldCorrelationID, services.RequestIDFromContext},
}

// WithContext returns logger with the run, job, stage and request ids found
// in ctx attached.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var args []any
	for _, f := range contextFields {
		if value, ok := f.lookup(ctx); ok {
			args = append(args, slog.String(f.key, value))
		}
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
