package streaming_test

import (
	"errors"
	"strings"
	"testing"

	"streamline/internal/preset"
	"streamline/internal/services"
	"streamline/internal/streaming"
)

func validRequest() streaming.Request {
	return streaming.Request{
		Input: &streaming.Input{Service: streaming.ServiceLocal, Container: "uploads", Path: "raw/clip.mov"},
		Output: &streaming.Output{
			Service:    streaming.ServiceBucket,
			Container:  "media_out",
			PathPrefix: "videos/clip",
			Targets:    []preset.Target{preset.TargetIOS},
			Qualities:  []preset.Quality{preset.QualityHD},
		},
	}
}

func TestValidateAcceptsWellFormedRequest(t *testing.T) {
	if err := validRequest().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := validRequest()
	req.Input = &streaming.Input{Service: streaming.ServiceURL, Path: "https://cdn.example.com/clip.mp4"}
	if err := req.Validate(); err != nil {
		t.Fatalf("url inputs need no container: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*streaming.Request)
		want   string
	}{
		{"missing input", func(r *streaming.Request) { r.Input = nil }, "input is required"},
		{"missing output", func(r *streaming.Request) { r.Output = nil }, "output is required"},
		{"bad input service", func(r *streaming.Request) { r.Input.Service = "ftp" }, "input.service"},
		{"backend is not an input", func(r *streaming.Request) { r.Input.Service = streaming.ServiceBackend }, "input.service"},
		{"url is not an output", func(r *streaming.Request) { r.Output.Service = streaming.ServiceURL }, "output.service"},
		{"missing input container", func(r *streaming.Request) { r.Input.Container = "" }, "input.container"},
		{"missing path", func(r *streaming.Request) { r.Input.Path = " " }, "input.path is required"},
		{"url without scheme", func(r *streaming.Request) {
			r.Input = &streaming.Input{Service: streaming.ServiceURL, Path: "cdn.example.com/clip.mp4"}
		}, "http(s) url"},
		{"container starts with digit", func(r *streaming.Request) { r.Output.Container = "9media" }, "output.container"},
		{"container with dot", func(r *streaming.Request) { r.Output.Container = "media.out" }, "output.container"},
		{"missing prefix", func(r *streaming.Request) { r.Output.PathPrefix = "/" }, "pathPrefix"},
		{"empty targets", func(r *streaming.Request) { r.Output.Targets = nil }, "targets must not be empty"},
		{"unknown quality", func(r *streaming.Request) { r.Output.Qualities = []preset.Quality{preset.Quality(42)} }, "qualities contains unknown"},
		{"unknown target", func(r *streaming.Request) { r.Output.Targets = []preset.Target{preset.Target(7)} }, "targets contains unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			err := req.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrInvalidRequest) {
				t.Fatalf("expected invalid request marker, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	req := validRequest()
	req.Output.Targets = nil
	req.Output.Qualities = nil
	err := req.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"targets", "qualities"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %q", want, err.Error())
		}
	}
}

func TestDecode(t *testing.T) {
	body := `{
		"input": {"service": "url", "path": "https://example.com/v.mp4"},
		"output": {"service": "local", "container": "public", "pathPrefix": "v/1",
			"targets": ["IOS", "ANDROID"], "qualities": ["SD", "UHD"], "thumbnail": true}
	}`
	req, err := streaming.Decode(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if req.Output.Targets[1] != preset.TargetAndroid || req.Output.Qualities[1] != preset.QualityUHD {
		t.Fatalf("unexpected enums: %+v", req.Output)
	}
	if !req.Output.Thumbnail {
		t.Fatal("expected thumbnail flag")
	}

	_, err = streaming.Decode(strings.NewReader(`{"output": {"qualities": ["8K"]}}`))
	if !errors.Is(err, services.ErrInvalidRequest) {
		t.Fatalf("expected invalid request for unknown quality, got %v", err)
	}
}
