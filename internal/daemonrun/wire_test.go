package daemonrun_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"streamline/internal/api"
	"streamline/internal/backend"
	"streamline/internal/daemonrun"
	"streamline/internal/jobstatus"
	"streamline/internal/objectstore"
	"streamline/internal/preset"
	"streamline/internal/streaming"
	"streamline/internal/testsupport"
)

func TestAssembledRuntimeEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLocalContainers("media"))
	fake := testsupport.NewFakeBackend()
	staged := testsupport.NewMemoryStore(cfg.Backend.InputContainer)

	source := filepath.Join(cfg.Storage.LocalRoot, "media", "uploads", "clip.mov")
	if err := os.MkdirAll(filepath.Dir(source), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(source, []byte("raw-video"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	rt, err := daemonrun.Assemble(cfg, nil, daemonrun.Collaborators{
		Backend: fake,
		Stores: objectstore.Registry{
			streaming.ServiceLocal:   objectstore.NewLocal(cfg.Storage.LocalRoot),
			streaming.ServiceBackend: staged,
		},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Orchestrator.Shutdown(ctx)
		for _, c := range rt.Closers() {
			_ = c.Close()
		}
	})
	if rt.Ledger == nil {
		t.Fatal("expected ledger to be opened")
	}

	srv := httptest.NewServer(rt.Handler)
	t.Cleanup(srv.Close)
	client := api.NewClient(srv.URL, "", srv.Client())
	ctx := context.Background()

	sub, err := client.Submit(ctx, streaming.Request{
		Input: &streaming.Input{Service: streaming.ServiceLocal, Container: "media", Path: "uploads/clip.mov"},
		Output: &streaming.Output{
			Service:    streaming.ServiceLocal,
			Container:  "media",
			PathPrefix: "videos/clip",
			Targets:    []preset.Target{preset.TargetIOS},
			Qualities:  []preset.Quality{preset.QualitySD},
			Thumbnail:  true,
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	view, err := client.Status(ctx, sub.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if view.Status != jobstatus.StatusProcessing {
		t.Fatalf("expected processing, got %s", view.Status)
	}

	prefix := fake.Submissions()[0].OutputKeyPrefix
	staged.Put(cfg.Backend.OutputContainer, prefix+"hls/playlist.m3u8", "#EXTM3U")
	staged.Put(cfg.Backend.OutputContainer, prefix+"hls/60x108-00001.png", "png")
	fake.Finish(sub.ID, backend.StateComplete)

	deadline := time.Now().Add(5 * time.Second)
	for {
		view, err = client.Status(ctx, sub.ID)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if view.Redistribution != nil && view.Redistribution.CleanedUp {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("run never finished: %+v", view)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if view.Status != jobstatus.StatusComplete || len(view.Outputs) != 1 {
		t.Fatalf("unexpected final view %+v", view)
	}
	if view.Outputs[0].Playlist != "videos/clip/hls/playlist.m3u8" {
		t.Fatalf("unexpected playlist %q", view.Outputs[0].Playlist)
	}
	if len(view.Redistribution.Files) != 2 || view.Redistribution.Failed != 0 {
		t.Fatalf("unexpected redistribution %+v", view.Redistribution)
	}
	for _, rel := range []string{"videos/clip/hls/playlist.m3u8", "videos/clip/hls/60x108-00001.png"} {
		if _, err := os.Stat(filepath.Join(cfg.Storage.LocalRoot, "media", rel)); err != nil {
			t.Fatalf("expected %s in destination: %v", rel, err)
		}
	}
	if keys := staged.Keys(cfg.Backend.InputContainer); len(keys) != 0 {
		t.Fatalf("expected backend objects removed, got %v", keys)
	}

	runs, err := client.Runs(ctx, 5)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].JobID != sub.ID || runs[0].State != "done" {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

func TestAssembleWithoutLedger(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLedgerDisabled())
	rt, err := daemonrun.Assemble(cfg, nil, daemonrun.Collaborators{
		Backend: testsupport.NewFakeBackend(),
		Stores:  objectstore.Registry{streaming.ServiceBackend: testsupport.NewMemoryStore()},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if rt.Ledger != nil {
		t.Fatal("expected no ledger")
	}
	if n := len(rt.Closers()); n != 2 {
		t.Fatalf("expected events and cache closers, got %d", n)
	}
}

func TestAssembleRequiresBackendStore(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLedgerDisabled())
	if _, err := daemonrun.Assemble(cfg, nil, daemonrun.Collaborators{Backend: testsupport.NewFakeBackend()}); err == nil {
		t.Fatal("expected error without stores")
	}
}
