// Package streaming models a transcoding request: where the source video
// lives, where the renditions must land, and which targets and qualities to
// produce.
package streaming

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"streamline/internal/preset"
	"streamline/internal/services"
)

// Service identifies a storage domain.
type Service string

const (
	ServiceLocal   Service = "local"
	ServiceBucket  Service = "bucket"
	ServiceBackend Service = "backend"
	ServiceURL     Service = "url"
)

var (
	inputServices  = map[Service]struct{}{ServiceLocal: {}, ServiceBucket: {}, ServiceURL: {}}
	outputServices = map[Service]struct{}{ServiceLocal: {}, ServiceBucket: {}, ServiceBackend: {}}

	containerPattern = regexp.MustCompile(`(?i)^[a-z][a-z0-9\-_]*$`)
	urlPattern       = regexp.MustCompile(`(?i)^https?://`)
)

// Input locates the source video. Path is a full URL when Service is url.
type Input struct {
	Service   Service `json:"service"`
	Container string  `json:"container,omitempty"`
	Path      string  `json:"path"`
}

// Output describes the destination and the renditions wanted.
type Output struct {
	Service    Service          `json:"service"`
	Container  string           `json:"container"`
	PathPrefix string           `json:"pathPrefix"`
	Targets    []preset.Target  `json:"targets"`
	Qualities  []preset.Quality `json:"qualities"`
	Thumbnail  bool             `json:"thumbnail,omitempty"`
}

// Request is one streaming submission.
type Request struct {
	Input  *Input  `json:"input"`
	Output *Output `json:"output"`
}

// Decode reads a JSON request. Malformed payloads and unknown enum values are
// reported as invalid requests.
func Decode(r io.Reader) (Request, error) {
	var req Request
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return Request{}, services.Wrap(services.ErrInvalidRequest, "validating", "decode request", "", err)
	}
	return req, nil
}

// Validate checks shape and enum membership without touching any storage.
// Every problem found is reported.
func (r Request) Validate() error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if r.Input == nil {
		add("input is required")
	} else {
		in := r.Input
		if _, ok := inputServices[in.Service]; !ok {
			add("input.service %q is not one of local, bucket, url", in.Service)
		}
		if in.Service != ServiceURL && strings.TrimSpace(in.Container) == "" {
			add("input.container is required")
		}
		if strings.TrimSpace(in.Path) == "" {
			add("input.path is required")
		} else if in.Service == ServiceURL && !urlPattern.MatchString(in.Path) {
			add("input.path must be an http(s) url")
		}
	}

	if r.Output == nil {
		add("output is required")
	} else {
		out := r.Output
		if _, ok := outputServices[out.Service]; !ok {
			add("output.service %q is not one of local, bucket, backend", out.Service)
		}
		if !containerPattern.MatchString(out.Container) {
			add("output.container %q must start with a letter and contain only letters, digits, '-' or '_'", out.Container)
		}
		if strings.Trim(strings.TrimSpace(out.PathPrefix), "/") == "" {
			add("output.pathPrefix is required")
		}
		if len(out.Targets) == 0 {
			add("output.targets must not be empty")
		}
		for _, t := range out.Targets {
			if !t.Valid() {
				add("output.targets contains unknown value %s", t)
			}
		}
		if len(out.Qualities) == 0 {
			add("output.qualities must not be empty")
		}
		for _, q := range out.Qualities {
			if !q.Valid() {
				add("output.qualities contains unknown value %s", q)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return services.Wrap(services.ErrInvalidRequest, "validating", "", "", errors.Join(problems...))
}

// CleanPrefix is the output path prefix without surrounding slashes.
func (o Output) CleanPrefix() string {
	return strings.Trim(strings.TrimSpace(o.PathPrefix), "/")
}
