// Package jobrequest turns a validated streaming request into a backend job
// submission. It performs no I/O.
package jobrequest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"streamline/internal/backend"
	"streamline/internal/preset"
	"streamline/internal/streaming"
)

// Metadata keys carried through the backend as flat strings.
const (
	KeyService    = "service"
	KeyContainer  = "container"
	KeyPathPrefix = "pathPrefix"
	KeyTargets    = "targets"
	KeyQualities  = "qualities"
	KeyThumbnail  = "thumbnail"
)

const (
	listSeparator = "/"
	autoDetect    = "auto"
	clipDuration  = "00010.000"
)

// Build composes the job submission for req on the given pipeline. inputKey
// is the staged source object; outputKeyPrefix scopes every output of the run.
func Build(pipelineID, inputKey, outputKeyPrefix string, req streaming.Request) backend.JobSubmission {
	out := req.Output
	outputs := preset.BuildOutputs(preset.ResolvePresets(out.Targets, out.Qualities), out.Thumbnail)

	submission := backend.JobSubmission{
		PipelineID:      pipelineID,
		OutputKeyPrefix: outputKeyPrefix,
		Input: backend.JobInput{
			Key:          inputKey,
			FrameRate:    autoDetect,
			Resolution:   autoDetect,
			AspectRatio:  autoDetect,
			Interlaced:   autoDetect,
			Container:    autoDetect,
			ClipDuration: clipDuration,
		},
		UserMetadata: EncodeMetadata(*out),
	}
	for _, o := range outputs {
		submission.Outputs = append(submission.Outputs, backend.JobOutput{
			Key:              o.Key,
			PresetID:         string(o.PresetID),
			ThumbnailPattern: o.ThumbnailPattern,
			Rotate:           o.Rotate,
			SegmentDuration:  o.SegmentDuration,
		})
	}
	for _, p := range preset.BuildPlaylists(outputs) {
		submission.Playlists = append(submission.Playlists, backend.JobPlaylist{
			Name:       p.Name,
			Format:     p.Format,
			OutputKeys: p.OutputKeys,
		})
	}
	return submission
}

// Metadata is the part of a request output recovered from a job record.
type Metadata struct {
	Service    streaming.Service
	Container  string
	PathPrefix string
	Targets    []preset.Target
	Qualities  []preset.Quality
	Thumbnail  bool
}

// EncodeMetadata flattens the output description into backend user metadata.
func EncodeMetadata(out streaming.Output) map[string]string {
	targets := make([]string, 0, len(out.Targets))
	for _, t := range out.Targets {
		targets = append(targets, t.String())
	}
	qualities := make([]string, 0, len(out.Qualities))
	for _, q := range out.Qualities {
		qualities = append(qualities, q.String())
	}
	return map[string]string{
		KeyService:    string(out.Service),
		KeyContainer:  out.Container,
		KeyPathPrefix: out.CleanPrefix(),
		KeyTargets:    strings.Join(targets, listSeparator),
		KeyQualities:  strings.Join(qualities, listSeparator),
		KeyThumbnail:  strconv.FormatBool(out.Thumbnail),
	}
}

// DecodeMetadata reverses EncodeMetadata. Unrecognised list entries are
// dropped and reported together in the returned error; the partial result is
// still usable.
func DecodeMetadata(meta map[string]string) (Metadata, error) {
	md := Metadata{
		Service:    streaming.Service(meta[KeyService]),
		Container:  meta[KeyContainer],
		PathPrefix: meta[KeyPathPrefix],
	}
	var problems []error
	for _, raw := range splitList(meta[KeyTargets]) {
		t, err := preset.ParseTarget(raw)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		md.Targets = append(md.Targets, t)
	}
	for _, raw := range splitList(meta[KeyQualities]) {
		q, err := preset.ParseQuality(raw)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		md.Qualities = append(md.Qualities, q)
	}
	if raw, ok := meta[KeyThumbnail]; ok && raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Errorf("thumbnail flag %q: %w", raw, err))
		}
		md.Thumbnail = v
	}
	if len(problems) > 0 {
		return md, fmt.Errorf("decode job metadata: %w", errors.Join(problems...))
	}
	return md, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, listSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
