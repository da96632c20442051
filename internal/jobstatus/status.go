// Package jobstatus turns backend job records into the user-facing status
// view. Outputs are rebuilt from the job's flattened metadata and its
// playlist records; no other datastore is needed to answer a status read.
package jobstatus

import (
	"fmt"
	"strings"

	"streamline/internal/backend"
	"streamline/internal/jobrequest"
	"streamline/internal/preset"
	"streamline/internal/streaming"
)

// Status is the user-facing job state.
type Status int

const (
	StatusProcessing Status = iota + 1
	StatusComplete
	StatusError
)

var statusNames = map[Status]string{
	StatusProcessing: "processing",
	StatusComplete:   "complete",
	StatusError:      "error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

func (s Status) MarshalText() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("marshal status: invalid value %d", int(s))
	}
	return []byte(name), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for k, v := range statusNames {
		if strings.EqualFold(v, string(text)) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(text))
}

// FromBackend maps a native backend state. Anything that is neither in
// progress nor complete is an error.
func FromBackend(native string) Status {
	switch native {
	case backend.StateSubmitted, backend.StateProgressing:
		return StatusProcessing
	case backend.StateComplete:
		return StatusComplete
	default:
		return StatusError
	}
}

// Output pairs a requested target with its playlist and optional thumbnail.
type Output struct {
	Target    preset.Target `json:"target"`
	Playlist  string        `json:"playlist"`
	Thumbnail string        `json:"thumbnail,omitempty"`
}

// RunSummary is the local orchestration outcome attached when known.
type RunSummary struct {
	RunID     string   `json:"runId"`
	State     string   `json:"state"`
	Files     []string `json:"files,omitempty"`
	Failed    int      `json:"failed"`
	CleanedUp bool     `json:"cleanedUp"`
	Error     string   `json:"error,omitempty"`
}

// View is the answer to a status read.
type View struct {
	ID             string            `json:"id"`
	Status         Status            `json:"status"`
	ErrorMessage   string            `json:"errorMessage,omitempty"`
	Service        streaming.Service `json:"service"`
	Container      string            `json:"container"`
	Targets        []preset.Target   `json:"targets"`
	Qualities      []preset.Quality  `json:"qualities"`
	Thumbnail      bool              `json:"thumbnail"`
	Outputs        []Output          `json:"outputs,omitempty"`
	Redistribution *RunSummary       `json:"redistribution,omitempty"`
}

// FromJob builds the view of a job record. The returned error reports
// metadata that could only be partially decoded; the view is still usable.
func FromJob(job backend.Job) (View, error) {
	md, mdErr := jobrequest.DecodeMetadata(job.UserMetadata)
	view := View{
		ID:        job.ID,
		Status:    FromBackend(job.Status),
		Service:   md.Service,
		Container: md.Container,
		Targets:   md.Targets,
		Qualities: md.Qualities,
		Thumbnail: md.Thumbnail,
	}
	if view.Targets == nil {
		view.Targets = []preset.Target{}
	}
	if view.Qualities == nil {
		view.Qualities = []preset.Quality{}
	}

	switch view.Status {
	case StatusError:
		view.ErrorMessage = firstOutputError(job)
	case StatusComplete:
		view.Outputs = buildOutputs(job, md)
	}
	return view, mdErr
}

func firstOutputError(job backend.Job) string {
	for _, out := range job.Outputs {
		if out.Status == backend.StateError {
			return out.StatusDetail
		}
	}
	return ""
}

func buildOutputs(job backend.Job, md jobrequest.Metadata) []Output {
	playlists := make(map[preset.Family]string, len(job.Playlists))
	for _, p := range job.Playlists {
		if f, ok := preset.FamilyForFormat(p.Format); ok {
			if _, seen := playlists[f]; !seen {
				playlists[f] = p.Name
			}
		}
	}

	outputs := make([]Output, 0, len(md.Targets))
	for _, target := range md.Targets {
		family := target.Family()
		name, ok := playlists[family]
		if !ok {
			continue
		}
		out := Output{
			Target:   target,
			Playlist: preset.PlaylistPath(md.PathPrefix, name, family),
		}
		if md.Thumbnail {
			out.Thumbnail = preset.ThumbnailPath(md.PathPrefix, family)
		}
		outputs = append(outputs, out)
	}
	return outputs
}
