package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"streamline/internal/events"
	"streamline/internal/logging"
	"streamline/internal/services"
	"streamline/internal/staging"
	"streamline/internal/streaming"
)

const publishTimeout = 5 * time.Second

// run carries the state of one request. Submit owns it until the job id is
// known; the detached goroutine owns it afterwards.
type run struct {
	o      *Orchestrator
	id     string
	req    streaming.Request
	logger *slog.Logger

	state        State
	detail       string
	scratchDir   string
	inputKey     string
	outputPrefix string
	jobID        string
	// jobSettled is true once the backend job reached a terminal state.
	// Backend objects are only removed when no job exists or it settled.
	jobSettled bool

	cleanOnce sync.Once
}

func (r *run) background(base context.Context) context.Context {
	ctx := services.WithRunID(base, r.id)
	return services.WithJobID(ctx, r.jobID)
}

// transition records state and returns ctx tagged with it.
func (r *run) transition(ctx context.Context, state State, detail string) context.Context {
	r.state = state
	r.logger.Debug("run state changed", logging.String(logging.FieldStage, string(state)))
	if r.o.runs != nil {
		if err := r.o.runs.Transition(ctx, r.id, string(state), detail); err != nil {
			r.ledgerWarn("transition", err)
		}
	}
	r.publish(ctx, events.TypeStateChanged, state, detail)
	return services.WithStage(ctx, string(state))
}

func (r *run) setJobID(ctx context.Context, jobID string) {
	r.jobID = jobID
	r.logger = r.logger.With(logging.String(logging.FieldJobID, jobID))
	if r.o.runs != nil {
		if err := r.o.runs.SetJobID(ctx, r.id, jobID); err != nil {
			r.ledgerWarn("set job id", err)
		}
	}
}

// fail records a failure that stopped the run before submission.
func (r *run) fail(ctx context.Context, err error) {
	kind := services.KindOf(err)
	r.logger.Info("request failed before submission",
		logging.String(logging.FieldStage, string(r.state)),
		logging.String(logging.FieldErrorKind, string(kind)),
		logging.Error(err),
	)
	r.recordFailure(ctx, kind, err)
	r.transition(ctx, StateFailed, err.Error())
}

// warn records a failure that happened after the caller got its job id.
func (r *run) warn(ctx context.Context, msg, eventType string, err error, hint, impact string) {
	logging.WarnWithContext(r.logger, msg, eventType,
		logging.Error(err),
		logging.Hint(hint),
		logging.Impact(impact),
	)
	r.detail = err.Error()
	r.recordFailure(ctx, services.KindOf(err), err)
}

func (r *run) recordFailure(ctx context.Context, kind services.Kind, err error) {
	if r.o.runs == nil {
		return
	}
	if rerr := r.o.runs.RecordFailure(ctx, r.id, string(kind), err.Error()); rerr != nil {
		r.ledgerWarn("record failure", rerr)
	}
}

func (r *run) recordRedistribution(ctx context.Context, result staging.Redistribution) {
	if r.o.runs == nil || len(result.Files) == 0 {
		return
	}
	if err := r.o.runs.RecordRedistribution(ctx, r.id, result.Files, result.Failed); err != nil {
		r.ledgerWarn("record redistribution", err)
	}
}

// cleanup removes everything the run created. It runs at most once and
// never returns an error; problems are logged.
func (r *run) cleanup(parent context.Context) {
	r.cleanOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), r.o.cleanupTimeout)
		defer cancel()

		failed := r.state == StateFailed
		if !failed {
			r.transition(ctx, StateCleaningUp, "")
		}

		var errs []error
		if r.scratchDir != "" {
			if err := staging.RemoveScratch(r.scratchDir); err != nil {
				errs = append(errs, err)
			}
		}
		if r.jobID == "" || r.jobSettled {
			outputPrefix := ""
			if r.jobID != "" {
				outputPrefix = r.outputPrefix
			}
			if r.inputKey != "" || outputPrefix != "" {
				if err := r.o.transport.RemoveBackendObjects(ctx, r.inputKey, outputPrefix); err != nil {
					errs = append(errs, err)
				}
			}
		}
		if err := errors.Join(errs...); err != nil {
			logging.WarnWithContext(r.logger, "cleanup incomplete", "cleanup_failed",
				logging.Error(services.Wrap(services.ErrCleanup, string(StateCleaningUp), "", "", err)),
				logging.Hint("remove leftover scratch or backend objects manually"),
				logging.Impact("storage not reclaimed"),
			)
		}

		if !failed {
			r.transition(ctx, StateDone, r.detail)
		}
		if r.o.runs != nil {
			if err := r.o.runs.MarkCleanedUp(ctx, r.id); err != nil {
				r.ledgerWarn("mark cleaned up", err)
			}
		}
		r.publish(ctx, events.TypeCleanedUp, r.state, "")
		r.logger.Info("run finished", logging.String(logging.FieldStage, string(r.state)))
		if hook := r.o.afterCleanup; hook != nil {
			hook(r.id)
		}
	})
}

func (r *run) publish(ctx context.Context, typ string, state State, detail string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	evt := events.Event{
		Type:   typ,
		RunID:  r.id,
		JobID:  r.jobID,
		State:  string(state),
		Detail: detail,
		At:     time.Now().UTC(),
	}
	if err := r.o.events.Publish(ctx, evt); err != nil {
		r.logger.Debug("event publish failed", logging.String("type", typ), logging.Error(err))
	}
}

func (r *run) ledgerWarn(op string, err error) {
	logging.WarnWithContext(r.logger, "run ledger update failed", "ledger_write_failed",
		logging.String("operation", op),
		logging.Error(err),
		logging.Hint("check ledger path permissions and disk space"),
		logging.Impact("run history incomplete"),
	)
}
