package backend

import (
	"context"
	"errors"
)

// Native job states reported by the backend.
const (
	StateSubmitted   = "Submitted"
	StateProgressing = "Progressing"
	StateComplete    = "Complete"
	StateCanceled    = "Canceled"
	StateError       = "Error"
)

// PipelineActive is the status of a pipeline that accepts jobs.
const PipelineActive = "Active"

// ErrJobNotFound is returned when the backend has no job with the given id.
var ErrJobNotFound = errors.New("job not found")

// Pipeline is a backend execution lane.
type Pipeline struct {
	ID     string
	Name   string
	Status string
}

// JobInput describes the staged source object.
type JobInput struct {
	Key          string
	FrameRate    string
	Resolution   string
	AspectRatio  string
	Interlaced   string
	Container    string
	ClipDuration string
}

// JobOutput is one rendition to produce.
type JobOutput struct {
	Key              string
	PresetID         string
	ThumbnailPattern string
	Rotate           string
	SegmentDuration  string
}

// JobPlaylist groups outputs into an adaptive playlist.
type JobPlaylist struct {
	Name       string
	Format     string
	OutputKeys []string
}

// JobSubmission is the payload of a new job.
type JobSubmission struct {
	PipelineID      string
	Input           JobInput
	OutputKeyPrefix string
	Outputs         []JobOutput
	Playlists       []JobPlaylist
	UserMetadata    map[string]string
}

// OutputRecord is the backend's view of one output of a job.
type OutputRecord struct {
	Key          string
	PresetID     string
	Status       string
	StatusDetail string
}

// PlaylistRecord is the backend's view of one playlist of a job.
type PlaylistRecord struct {
	Name   string
	Format string
	Status string
}

// Job is a job record as returned by the backend.
type Job struct {
	ID              string
	PipelineID      string
	Status          string
	InputKey        string
	OutputKeyPrefix string
	Outputs         []OutputRecord
	Playlists       []PlaylistRecord
	UserMetadata    map[string]string
}

// Terminal reports whether the backend will not change the job state again.
func (j Job) Terminal() bool {
	switch j.Status {
	case StateSubmitted, StateProgressing:
		return false
	default:
		return true
	}
}

// JobReader reads one job record.
type JobReader interface {
	ReadJob(ctx context.Context, id string) (Job, error)
}

// Client is everything the orchestrator needs from the transcoding service.
type Client interface {
	JobReader
	ListPipelines(ctx context.Context) ([]Pipeline, error)
	SubmitJob(ctx context.Context, submission JobSubmission) (Job, error)
	// AwaitCompletion blocks until the job is terminal or ctx is done.
	AwaitCompletion(ctx context.Context, id string) (Job, error)
}

// FirstActive returns the first pipeline reporting an active status.
func FirstActive(pipelines []Pipeline) (Pipeline, bool) {
	for _, p := range pipelines {
		if p.Status == PipelineActive {
			return p, true
		}
	}
	return Pipeline{}, false
}
