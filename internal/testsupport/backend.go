package testsupport

import (
	"context"
	"fmt"
	"sync"

	"streamline/internal/backend"
)

// FakeBackend is an in-memory backend.Client. AwaitCompletion blocks until
// the test calls Finish for the job or the context ends.
type FakeBackend struct {
	mu          sync.Mutex
	pipelines   []backend.Pipeline
	listErr     error
	submitErr   error
	jobs        map[string]backend.Job
	released    map[string]chan struct{}
	submissions []backend.JobSubmission
	calls       map[string]int
	awaiting    chan string
	next        int
}

// NewFakeBackend returns a backend with a single active pipeline.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		pipelines: []backend.Pipeline{{ID: "pipeline-1", Name: "default", Status: backend.PipelineActive}},
		jobs:      make(map[string]backend.Job),
		released:  make(map[string]chan struct{}),
		calls:     make(map[string]int),
		awaiting:  make(chan string, 16),
	}
}

// SetPipelines replaces the pipeline listing.
func (f *FakeBackend) SetPipelines(pipelines ...backend.Pipeline) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pipelines = pipelines
}

// FailList makes ListPipelines fail.
func (f *FakeBackend) FailList(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

// FailSubmit makes SubmitJob fail.
func (f *FakeBackend) FailSubmit(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitErr = err
}

// PutJob stores a job record as-is, e.g. for status reads.
func (f *FakeBackend) PutJob(job backend.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
}

// Finish sets the job's terminal status and releases any await on it.
func (f *FakeBackend) Finish(id, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[id]
	job.ID = id
	job.Status = status
	f.jobs[id] = job
	if ch, ok := f.released[id]; ok {
		close(ch)
		delete(f.released, id)
	}
}

// Submissions returns every payload submitted so far.
func (f *FakeBackend) Submissions() []backend.JobSubmission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.JobSubmission(nil), f.submissions...)
}

// Awaiting yields job ids as AwaitCompletion starts waiting on them.
func (f *FakeBackend) Awaiting() <-chan string {
	return f.awaiting
}

// Calls reports how often op ("list", "submit", "read", "await") ran.
func (f *FakeBackend) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls is the sum of every operation count.
func (f *FakeBackend) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *FakeBackend) ListPipelines(context.Context) ([]backend.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["list"]++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]backend.Pipeline(nil), f.pipelines...), nil
}

func (f *FakeBackend) SubmitJob(_ context.Context, sub backend.JobSubmission) (backend.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["submit"]++
	if f.submitErr != nil {
		return backend.Job{}, f.submitErr
	}
	f.next++
	job := backend.Job{
		ID:              fmt.Sprintf("job-%d", f.next),
		PipelineID:      sub.PipelineID,
		Status:          backend.StateSubmitted,
		InputKey:        sub.Input.Key,
		OutputKeyPrefix: sub.OutputKeyPrefix,
		UserMetadata:    sub.UserMetadata,
	}
	for _, p := range sub.Playlists {
		job.Playlists = append(job.Playlists, backend.PlaylistRecord{Name: p.Name, Format: p.Format})
	}
	for _, o := range sub.Outputs {
		job.Outputs = append(job.Outputs, backend.OutputRecord{Key: o.Key, PresetID: o.PresetID})
	}
	f.jobs[job.ID] = job
	f.released[job.ID] = make(chan struct{})
	f.submissions = append(f.submissions, sub)
	return job, nil
}

func (f *FakeBackend) ReadJob(_ context.Context, id string) (backend.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["read"]++
	job, ok := f.jobs[id]
	if !ok {
		return backend.Job{}, fmt.Errorf("read job %s: %w", id, backend.ErrJobNotFound)
	}
	return job, nil
}

func (f *FakeBackend) AwaitCompletion(ctx context.Context, id string) (backend.Job, error) {
	f.mu.Lock()
	f.calls["await"]++
	ch, waiting := f.released[id]
	f.mu.Unlock()

	select {
	case f.awaiting <- id:
	default:
	}
	if waiting {
		select {
		case <-ctx.Done():
			return backend.Job{}, ctx.Err()
		case <-ch:
		}
	}
	return f.ReadJob(ctx, id)
}
