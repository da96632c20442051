package staging_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"streamline/internal/fetch"
	"streamline/internal/objectstore"
	"streamline/internal/preset"
	"streamline/internal/services"
	"streamline/internal/staging"
	"streamline/internal/streaming"
	"streamline/internal/testsupport"
)

const (
	backendBucket = "transcoder"
	userBucket    = "media"
)

type fixture struct {
	transport *staging.Transport
	backend   *testsupport.MemoryStore
	user      *testsupport.MemoryStore
	scratch   string
}

func newFixture(t *testing.T, fetcher staging.Fetcher) fixture {
	t.Helper()
	backendStore := testsupport.NewMemoryStore(backendBucket)
	userStore := testsupport.NewMemoryStore(userBucket)
	scratch := t.TempDir()
	transport, err := staging.NewTransport(staging.Options{
		Stores: objectstore.Registry{
			streaming.ServiceBackend: backendStore,
			streaming.ServiceBucket:  userStore,
		},
		Fetcher:         fetcher,
		ScratchRoot:     scratch,
		InputContainer:  backendBucket,
		OutputContainer: backendBucket,
		InputPrefix:     "in/",
		Concurrency:     2,
	})
	if err != nil {
		t.Fatalf("NewTransport: %v", err)
	}
	return fixture{transport: transport, backend: backendStore, user: userStore, scratch: scratch}
}

func TestNewTransportRequiresBackendStore(t *testing.T) {
	_, err := staging.NewTransport(staging.Options{
		Stores:      objectstore.Registry{streaming.ServiceLocal: testsupport.NewMemoryStore()},
		ScratchRoot: t.TempDir(),
	})
	if !errors.Is(err, objectstore.ErrUnsupportedService) {
		t.Fatalf("expected ErrUnsupportedService, got %v", err)
	}
}

func TestStageInputAndPushToBackend(t *testing.T) {
	fx := newFixture(t, nil)
	fx.user.Put(userBucket, "uploads/clip.mov", "raw-video")

	dir, err := fx.transport.NewScratch("run-1")
	if err != nil {
		t.Fatalf("NewScratch: %v", err)
	}
	local, err := fx.transport.StageInput(context.Background(), dir, streaming.Input{
		Service: streaming.ServiceBucket, Container: userBucket, Path: "uploads/clip.mov",
	})
	if err != nil {
		t.Fatalf("StageInput: %v", err)
	}
	if filepath.Ext(local) != ".mov" || filepath.Dir(local) != dir {
		t.Fatalf("unexpected scratch path %s", local)
	}

	key, err := fx.transport.PushToBackend(context.Background(), local)
	if err != nil {
		t.Fatalf("PushToBackend: %v", err)
	}
	if !strings.HasPrefix(key, "in/") || !strings.HasSuffix(key, ".mov") {
		t.Fatalf("unexpected input key %s", key)
	}
	data, ok := fx.backend.Get(backendBucket, key)
	if !ok || string(data) != "raw-video" {
		t.Fatalf("backend copy missing or wrong: %q", data)
	}

	other, err := fx.transport.PushToBackend(context.Background(), local)
	if err != nil {
		t.Fatal(err)
	}
	if other == key {
		t.Fatal("input keys must be unique per push")
	}
}

func TestStageInputFromURLKeepsHintExtension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="talk.webm"`)
		_, _ = io.WriteString(w, "webm-bytes")
	}))
	defer srv.Close()

	fx := newFixture(t, fetch.NewClient(time.Second, 1))
	dir, _ := fx.transport.NewScratch("run-url")
	local, err := fx.transport.StageInput(context.Background(), dir, streaming.Input{
		Service: streaming.ServiceURL, Path: srv.URL + "/v?id=1",
	})
	if err != nil {
		t.Fatalf("StageInput: %v", err)
	}
	if filepath.Base(local) != "source.webm" {
		t.Fatalf("unexpected scratch name %s", local)
	}
	data, _ := os.ReadFile(local)
	if string(data) != "webm-bytes" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestStageInputMissingSourceLeavesNoFile(t *testing.T) {
	fx := newFixture(t, nil)
	dir, _ := fx.transport.NewScratch("run-missing")

	_, err := fx.transport.StageInput(context.Background(), dir, streaming.Input{
		Service: streaming.ServiceBucket, Container: userBucket, Path: "nope.mp4",
	})
	if !errors.Is(err, objectstore.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected empty scratch dir, found %d entries", len(entries))
	}
}

func destination() streaming.Output {
	return streaming.Output{
		Service:    streaming.ServiceBucket,
		Container:  userBucket,
		PathPrefix: "/shows/ep1/",
		Targets:    []preset.Target{preset.TargetIOS},
		Qualities:  []preset.Quality{preset.QualitySD},
	}
}

func TestRedistributeAttemptsEveryFile(t *testing.T) {
	fx := newFixture(t, nil)
	fx.backend.Put(backendBucket, "out/run/hls/audio-160k.ts", "a")
	fx.backend.Put(backendBucket, "out/run/hls/playlist.m3u8", "b")
	fx.backend.Put(backendBucket, "out/run/hls/video-600k.ts", "c")
	fx.user.FailUpload("shows/ep1/hls/playlist.m3u8", errors.New("quota exceeded"))

	result, err := fx.transport.Redistribute(context.Background(), "out/run/", destination())
	if !errors.Is(err, services.ErrRedistribution) {
		t.Fatalf("expected ErrRedistribution, got %v", err)
	}
	if result.Failed != 1 || len(result.Files) != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Files[1] != staging.FailedPrefix+"out/run/hls/playlist.m3u8" {
		t.Fatalf("expected failure marker in position 2, got %q", result.Files[1])
	}
	transferred := result.Transferred()
	if len(transferred) != 2 || transferred[0] != "shows/ep1/hls/audio-160k.ts" || transferred[1] != "shows/ep1/hls/video-600k.ts" {
		t.Fatalf("unexpected transferred list %v", transferred)
	}
	if fx.user.Calls("upload") != 3 {
		t.Fatalf("expected 3 upload attempts, got %d", fx.user.Calls("upload"))
	}
	if _, ok := fx.user.Get(userBucket, "shows/ep1/hls/video-600k.ts"); !ok {
		t.Fatal("third file should have been copied")
	}
}

func TestRedistributeWithNoOutputsFails(t *testing.T) {
	fx := newFixture(t, nil)
	_, err := fx.transport.Redistribute(context.Background(), "out/empty/", destination())
	if !errors.Is(err, services.ErrRedistribution) {
		t.Fatalf("expected ErrRedistribution, got %v", err)
	}
}

func TestRemoveBackendObjects(t *testing.T) {
	fx := newFixture(t, nil)
	fx.backend.Put(backendBucket, "in/abc.mov", "x")
	fx.backend.Put(backendBucket, "out/abc/hls/a.ts", "x")
	fx.backend.Put(backendBucket, "out/abc/hls/b.ts", "x")
	fx.backend.Put(backendBucket, "out/other/keep.ts", "x")

	if err := fx.transport.RemoveBackendObjects(context.Background(), "in/abc.mov", "out/abc/"); err != nil {
		t.Fatalf("RemoveBackendObjects: %v", err)
	}
	keys := fx.backend.Keys(backendBucket)
	if len(keys) != 1 || keys[0] != "out/other/keep.ts" {
		t.Fatalf("unexpected remaining keys %v", keys)
	}
}

func TestRemoveBackendObjectsAttemptsBoth(t *testing.T) {
	fx := newFixture(t, nil)
	fx.backend.Put(backendBucket, "in/abc.mov", "x")
	fx.backend.Put(backendBucket, "out/abc/a.ts", "x")
	fx.backend.FailDelete("in/abc.mov", errors.New("denied"))

	err := fx.transport.RemoveBackendObjects(context.Background(), "in/abc.mov", "out/abc/")
	if err == nil {
		t.Fatal("expected error from failed input delete")
	}
	if _, ok := fx.backend.Get(backendBucket, "out/abc/a.ts"); ok {
		t.Fatal("outputs should be deleted despite the input failure")
	}
}
