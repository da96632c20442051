package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"streamline/internal/backend"
	"streamline/internal/events"
	"streamline/internal/jobrequest"
	"streamline/internal/jobstatus"
	"streamline/internal/ledger"
	"streamline/internal/logging"
	"streamline/internal/services"
	"streamline/internal/staging"
	"streamline/internal/streaming"
)

const defaultCleanupTimeout = 2 * time.Minute

// RunRecorder persists run progress. *ledger.Store implements it.
type RunRecorder interface {
	Create(ctx context.Context, runID, state, requestJSON string) (*ledger.Run, error)
	Transition(ctx context.Context, runID, state, detail string) error
	SetJobID(ctx context.Context, runID, jobID string) error
	RecordFailure(ctx context.Context, runID, kind, message string) error
	RecordRedistribution(ctx context.Context, runID string, files []string, failed int) error
	MarkCleanedUp(ctx context.Context, runID string) error
}

// Options wires an Orchestrator.
type Options struct {
	Backend        backend.Client
	Transport      *staging.Transport
	Runs           RunRecorder
	Events         events.Publisher
	OutputPrefix   string
	CleanupTimeout time.Duration
	Logger         *slog.Logger
}

// Submission is what the caller receives once the backend accepted the job.
type Submission struct {
	ID     string           `json:"id"`
	Status jobstatus.Status `json:"status"`
	RunID  string           `json:"-"`
}

// Orchestrator runs streaming requests. It is safe for concurrent use.
type Orchestrator struct {
	backend        backend.Client
	transport      *staging.Transport
	runs           RunRecorder
	events         events.Publisher
	outputPrefix   string
	cleanupTimeout time.Duration
	logger         *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool

	afterCleanup func(runID string)
}

// ErrShuttingDown is returned by Submit after Shutdown started.
var ErrShuttingDown = errors.New("orchestrator is shutting down")

// New validates opts and returns an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Backend == nil {
		return nil, errors.New("orchestrator: backend client is required")
	}
	if opts.Transport == nil {
		return nil, errors.New("orchestrator: staging transport is required")
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.CleanupTimeout <= 0 {
		opts.CleanupTimeout = defaultCleanupTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		backend:        opts.Backend,
		transport:      opts.Transport,
		runs:           opts.Runs,
		events:         opts.Events,
		outputPrefix:   opts.OutputPrefix,
		cleanupTimeout: opts.CleanupTimeout,
		logger:         logging.NewComponentLogger(opts.Logger, "orchestrator"),
		baseCtx:        ctx,
		cancel:         cancel,
	}, nil
}

// Submit runs the request up to job submission and returns the job id.
// The rest of the run continues in the background.
func (o *Orchestrator) Submit(ctx context.Context, req streaming.Request) (Submission, error) {
	if err := req.Validate(); err != nil {
		// Nothing is allocated before validation, so there is nothing to clean up.
		o.logger.Info("request rejected", logging.Error(err))
		return Submission{}, err
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Submission{}, ErrShuttingDown
	}
	o.wg.Add(1)
	o.mu.Unlock()

	r := o.newRun(ctx, req)
	ctx = services.WithRunID(ctx, r.id)
	handedOff := false
	defer func() {
		if !handedOff {
			r.cleanup(ctx)
			o.wg.Done()
		}
	}()

	if err := o.prepare(ctx, r); err != nil {
		r.fail(ctx, err)
		return Submission{}, err
	}

	handedOff = true
	go o.finish(r)

	return Submission{ID: r.jobID, Status: jobstatus.StatusProcessing, RunID: r.id}, nil
}

// prepare performs every synchronous stage. r.jobID is set on success.
func (o *Orchestrator) prepare(ctx context.Context, r *run) error {
	out := r.req.Output
	dest, err := o.transport.Store(out.Service)
	if err != nil {
		return services.Wrap(services.ErrPreconditionFailed, string(StateValidating), "resolve destination", string(out.Service), err)
	}
	if err := dest.CheckContainer(ctx, out.Container); err != nil {
		return services.Wrap(services.ErrPreconditionFailed, string(StateValidating), "check destination", out.Container, err)
	}

	ctx = r.transition(ctx, StateStagingInput, "")
	scratch, err := o.transport.NewScratch(r.id)
	if err != nil {
		return services.Wrap(services.ErrStagingFailure, string(StateStagingInput), "allocate scratch", "", err)
	}
	r.scratchDir = scratch
	local, err := o.transport.StageInput(ctx, scratch, *r.req.Input)
	if err != nil {
		return services.Wrap(services.ErrStagingFailure, string(StateStagingInput), "download input", r.req.Input.Path, err)
	}
	inputKey, err := o.transport.PushToBackend(ctx, local)
	if err != nil {
		return services.Wrap(services.ErrStagingFailure, string(StateStagingInput), "upload to backend", "", err)
	}
	r.inputKey = inputKey

	ctx = r.transition(ctx, StateAwaitingPipeline, "")
	pipelines, err := o.backend.ListPipelines(ctx)
	if err != nil {
		return services.Wrap(services.ErrPreconditionFailed, string(StateAwaitingPipeline), "list pipelines", "", err)
	}
	pipeline, ok := backend.FirstActive(pipelines)
	if !ok {
		return services.Wrap(services.ErrPreconditionFailed, string(StateAwaitingPipeline), "select pipeline",
			fmt.Sprintf("no active pipeline among %d", len(pipelines)), nil)
	}

	ctx = r.transition(ctx, StateSubmitting, pipeline.ID)
	r.outputPrefix = o.outputPrefix + r.id + "/"
	submission := jobrequest.Build(pipeline.ID, inputKey, r.outputPrefix, r.req)
	job, err := o.backend.SubmitJob(ctx, submission)
	if err != nil {
		return services.Wrap(services.ErrBackendJob, string(StateSubmitting), "submit job", pipeline.ID, err)
	}
	r.setJobID(ctx, job.ID)
	r.logger.Info("job submitted",
		logging.String("pipeline_id", pipeline.ID),
		logging.String("input_key", inputKey),
		logging.Int("outputs", len(submission.Outputs)),
	)
	r.transition(ctx, StateProcessing, "")
	return nil
}

// finish is the detached part of a run: await, redistribute, clean up.
func (o *Orchestrator) finish(r *run) {
	defer o.wg.Done()
	ctx := r.background(o.baseCtx)
	defer r.cleanup(ctx)

	job, err := o.backend.AwaitCompletion(ctx, r.jobID)
	if err != nil {
		r.jobSettled = false
		if ctx.Err() != nil {
			r.logger.Info("await cancelled; backend job left running", logging.Error(err))
			r.detail = "await cancelled"
			return
		}
		r.warn(ctx, "await failed", "backend_await_failed",
			services.Wrap(services.ErrBackendJob, string(StateProcessing), "await job", r.jobID, err),
			"check backend credentials and job state", "outputs not redistributed")
		return
	}
	r.jobSettled = true

	if jobstatus.FromBackend(job.Status) != jobstatus.StatusComplete {
		cause := fmt.Errorf("job ended in state %s", job.Status)
		if view, _ := jobstatus.FromJob(job); view.ErrorMessage != "" {
			cause = fmt.Errorf("%w: %s", cause, view.ErrorMessage)
		}
		r.warn(ctx, "backend job failed", "backend_job_failed",
			services.Wrap(services.ErrBackendJob, string(StateProcessing), "job result", r.jobID, cause),
			"inspect the job with the status command", "no outputs produced")
		return
	}

	ctx = r.transition(ctx, StateRedistributing, "")
	result, err := o.transport.Redistribute(ctx, r.outputPrefix, *r.req.Output)
	r.recordRedistribution(ctx, result)
	if err != nil {
		r.warn(ctx, "redistribution incomplete", "redistribution_failed", err,
			"check destination container permissions",
			fmt.Sprintf("%d outputs reached the destination, %d missing", len(result.Transferred()), result.Failed))
		return
	}
	r.logger.Info("outputs redistributed", logging.Int("files", len(result.Files)))
}

// Drain waits for in-flight runs without cancelling them.
func (o *Orchestrator) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown rejects new submissions, cancels in-flight waits and waits for
// their cleanup to finish or ctx to end.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.cancel()
	return o.Drain(ctx)
}

func (o *Orchestrator) newRun(ctx context.Context, req streaming.Request) *run {
	id := uuid.NewString()
	r := &run{
		o:      o,
		id:     id,
		req:    req,
		logger: o.logger.With(logging.String(logging.FieldRunID, id)),
	}
	if reqID, ok := services.RequestIDFromContext(ctx); ok {
		r.logger = r.logger.With(logging.String(logging.FieldCorrelationID, reqID))
	}
	if o.runs != nil {
		payload, _ := json.Marshal(req)
		if _, err := o.runs.Create(ctx, id, string(StateValidating), string(payload)); err != nil {
			r.ledgerWarn("create", err)
		}
	}
	r.publish(ctx, events.TypeStateChanged, StateValidating, "")
	return r
}
