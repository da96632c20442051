package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"streamline/internal/backend"
	"streamline/internal/jobstatus"
	"streamline/internal/orchestrator"
)

func TestSubmitFromFlagsThenStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeSource(t, "uploads/clip.mov", "raw")

	stdout, _, err := env.run(t,
		"submit", "-o", "json",
		"--input-service", "local", "--input-container", "media", "--input-path", "uploads/clip.mov",
		"--output-service", "local", "--output-container", "media", "--prefix", "videos/clip",
		"--target", "ios", "--quality", "SD",
	)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var sub orchestrator.Submission
	if err := json.Unmarshal([]byte(stdout), &sub); err != nil {
		t.Fatalf("decode submission %q: %v", stdout, err)
	}
	if sub.ID == "" || sub.Status != jobstatus.StatusProcessing {
		t.Fatalf("unexpected submission %+v", sub)
	}

	stdout, _, err = env.run(t, "status", "-o", "table", sub.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, stdout, "Status:      Processing")
	requireContains(t, stdout, "Targets:     IOS")
	requireContains(t, stdout, "Destination: local/media")
}

func TestSubmitFromFileWaitsForCompletion(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeSource(t, "uploads/talk.mp4", "raw")

	requestPath := filepath.Join(t.TempDir(), "request.json")
	body := `{
  "input": {"service": "local", "container": "media", "path": "uploads/talk.mp4"},
  "output": {"service": "local", "container": "media", "pathPrefix": "talks/1",
             "targets": ["ANDROID"], "qualities": ["HD"]}
}`
	if err := os.WriteFile(requestPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write request: %v", err)
	}

	go func() {
		var id string
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if subs := env.fake.Submissions(); len(subs) == 1 {
				env.staged.Put(env.cfg.Backend.OutputContainer, subs[0].OutputKeyPrefix+"mpeg-dash/playlist.mpd", "<MPD/>")
				id = "job-1"
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		if id != "" {
			env.fake.Finish(id, backend.StateComplete)
		}
	}()

	stdout, _, err := env.run(t, "submit", "-f", requestPath, "--wait", "--interval", "20ms", "--timeout", "5s", "-o", "json")
	if err != nil {
		t.Fatalf("submit --wait: %v", err)
	}
	var view jobstatus.View
	if err := json.Unmarshal([]byte(stdout), &view); err != nil {
		t.Fatalf("decode view %q: %v", stdout, err)
	}
	if view.Status != jobstatus.StatusComplete {
		t.Fatalf("expected complete, got %s", view.Status)
	}
	if len(view.Outputs) != 1 || view.Outputs[0].Playlist != "talks/1/mpeg-dash/playlist.mpd" {
		t.Fatalf("unexpected outputs %+v", view.Outputs)
	}
}

func TestSubmitRejectedRequestReportsKind(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := env.run(t,
		"submit",
		"--input-service", "local", "--input-container", "media", "--input-path", "missing.mov",
		"--output-service", "local", "--output-container", "9bad", "--prefix", "out",
		"--target", "IOS", "--quality", "SD",
	)
	if err == nil {
		t.Fatal("expected invalid request to fail")
	}
	requireContains(t, err.Error(), "api 400")
	if n := len(env.fake.Submissions()); n != 0 {
		t.Fatalf("expected no backend submissions, got %d", n)
	}
}

func TestSubmitRequiresARequest(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := env.run(t, "submit")
	if err == nil || !strings.Contains(err.Error(), "request file") {
		t.Fatalf("expected missing request error, got %v", err)
	}
}

func TestSubmitRejectsUnknownTargetFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := env.run(t,
		"submit", "--input-service", "local", "--output-service", "local", "--target", "BETAMAX",
	)
	if err == nil || !strings.Contains(err.Error(), "unknown target") {
		t.Fatalf("expected unknown target error, got %v", err)
	}
}

func TestWaitForJobPollsUntilTerminal(t *testing.T) {
	var calls atomic.Int32
	status := func(_ context.Context, id string) (jobstatus.View, error) {
		if calls.Add(1) < 3 {
			return jobstatus.View{ID: id, Status: jobstatus.StatusProcessing}, nil
		}
		return jobstatus.View{ID: id, Status: jobstatus.StatusError, ErrorMessage: "bad input"}, nil
	}

	view, err := waitForJob(context.Background(), time.Millisecond, "job-9", status)
	if err != nil {
		t.Fatalf("waitForJob: %v", err)
	}
	if view.Status != jobstatus.StatusError || calls.Load() != 3 {
		t.Fatalf("unexpected result %+v after %d calls", view, calls.Load())
	}
}

func TestWaitForJobHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	status := func(_ context.Context, id string) (jobstatus.View, error) {
		return jobstatus.View{ID: id, Status: jobstatus.StatusProcessing}, nil
	}
	if _, err := waitForJob(ctx, 5*time.Millisecond, "job-1", status); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
