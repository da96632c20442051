package jobstatus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"streamline/internal/backend"
	"streamline/internal/ledger"
	"streamline/internal/logging"
	"streamline/internal/services"
	"streamline/internal/statuscache"
)

// RunLookup finds the local run that submitted a job.
type RunLookup interface {
	FindByJobID(ctx context.Context, jobID string) (*ledger.Run, error)
}

// Reader answers status reads.
type Reader struct {
	backend backend.JobReader
	cache   statuscache.Cache
	runs    RunLookup
	logger  *slog.Logger
}

// Option customizes a Reader.
type Option func(*Reader)

// WithCache caches finished views.
func WithCache(cache statuscache.Cache) Option {
	return func(r *Reader) {
		if cache != nil {
			r.cache = cache
		}
	}
}

// WithRuns attaches redistribution results from the run ledger.
func WithRuns(runs RunLookup) Option {
	return func(r *Reader) {
		r.runs = runs
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		r.logger = logger
	}
}

// NewReader builds a status reader over the backend.
func NewReader(b backend.JobReader, opts ...Option) *Reader {
	r := &Reader{backend: b, cache: statuscache.Nop{}}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "jobstatus")
	return r
}

// Read returns the current view of jobID.
func (r *Reader) Read(ctx context.Context, jobID string) (View, error) {
	logger := r.logger.With(logging.String(logging.FieldJobID, jobID))

	if data, hit, err := r.cache.Get(ctx, jobID); err != nil {
		logging.WarnWithContext(logger, "status cache read failed", "status_cache_unavailable",
			logging.Error(err),
			logging.Hint("check status_cache.addr"),
			logging.Impact("status served from backend"),
		)
	} else if hit {
		var view View
		if err := json.Unmarshal(data, &view); err == nil {
			return view, nil
		}
	}

	job, err := r.backend.ReadJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, backend.ErrJobNotFound) {
			return View{}, services.Wrap(services.ErrNotFound, "status", "read job", jobID, err)
		}
		return View{}, services.Wrap(services.ErrTransient, "status", "read job", jobID, err)
	}

	view, err := FromJob(job)
	if err != nil {
		logging.WarnWithContext(logger, "job metadata partially decoded", "job_metadata_invalid",
			logging.Error(err),
			logging.Impact("some targets or qualities omitted from status"),
		)
	}

	settled := true
	if r.runs != nil {
		run, err := r.runs.FindByJobID(ctx, jobID)
		switch {
		case err != nil:
			settled = false
			logger.Debug("run lookup failed", logging.Error(err))
		case run != nil:
			view.Redistribution = &RunSummary{
				RunID:     run.ID,
				State:     run.State,
				Files:     run.Files,
				Failed:    run.Failed,
				CleanedUp: run.CleanedUp,
				Error:     run.ErrorMessage,
			}
			settled = run.CleanedUp
		}
	}

	if view.Status.Terminal() && settled {
		r.store(ctx, logger, view)
	}
	return view, nil
}

func (r *Reader) store(ctx context.Context, logger *slog.Logger, view View) {
	data, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, view.ID, data); err != nil {
		logging.WarnWithContext(logger, "status cache write failed", "status_cache_unavailable",
			logging.Error(err),
			logging.Hint("check status_cache.addr"),
			logging.Impact("next read goes to the backend"),
		)
	}
}
