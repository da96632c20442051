package jobstatus_test

import (
	"encoding/json"
	"testing"

	"streamline/internal/backend"
	"streamline/internal/jobstatus"
	"streamline/internal/preset"
)

func completeJob(meta map[string]string) backend.Job {
	return backend.Job{
		ID:     "job-1",
		Status: backend.StateComplete,
		Playlists: []backend.PlaylistRecord{
			{Name: "hls/playlist", Format: "HLSv4"},
			{Name: "mpeg-dash/playlist", Format: "MPEG-DASH"},
		},
		UserMetadata: meta,
	}
}

func TestFromJobPairsTargetsWithFamilyPlaylists(t *testing.T) {
	view, err := jobstatus.FromJob(completeJob(map[string]string{
		"service":    "bucket",
		"container":  "media",
		"pathPrefix": "shows/ep1",
		"targets":    "IOS/ANDROID",
		"qualities":  "HD",
		"thumbnail":  "false",
	}))
	if err != nil {
		t.Fatalf("FromJob: %v", err)
	}
	if view.Status != jobstatus.StatusComplete {
		t.Fatalf("expected complete, got %s", view.Status)
	}
	if len(view.Outputs) != 2 {
		t.Fatalf("expected 2 outputs, got %+v", view.Outputs)
	}
	if view.Outputs[0].Target != preset.TargetIOS || view.Outputs[0].Playlist != "shows/ep1/hls/playlist.m3u8" {
		t.Fatalf("unexpected IOS output %+v", view.Outputs[0])
	}
	if view.Outputs[1].Target != preset.TargetAndroid || view.Outputs[1].Playlist != "shows/ep1/mpeg-dash/playlist.mpd" {
		t.Fatalf("unexpected ANDROID output %+v", view.Outputs[1])
	}
	if view.Outputs[0].Thumbnail != "" {
		t.Fatal("thumbnails were not requested")
	}
	if len(view.Qualities) != 1 || view.Qualities[0] != preset.QualityHD {
		t.Fatalf("qualities must come from the qualities key, got %v", view.Qualities)
	}
}

func TestFromJobThumbnailPaths(t *testing.T) {
	view, _ := jobstatus.FromJob(completeJob(map[string]string{
		"pathPrefix": "p",
		"targets":    "WEB_MPEG_DASH",
		"qualities":  "SD",
		"thumbnail":  "true",
	}))
	if len(view.Outputs) != 1 || view.Outputs[0].Thumbnail != "p/mpeg-dash/60x108-00001.png" {
		t.Fatalf("unexpected outputs %+v", view.Outputs)
	}
}

func TestFromJobOmitsTargetsWithoutPlaylist(t *testing.T) {
	job := completeJob(map[string]string{"targets": "IOS/ANDROID", "qualities": "SD"})
	job.Playlists = job.Playlists[:1]

	view, _ := jobstatus.FromJob(job)
	if len(view.Outputs) != 1 || view.Outputs[0].Target != preset.TargetIOS {
		t.Fatalf("expected only the IOS output, got %+v", view.Outputs)
	}
}

func TestFromJobErrorDetail(t *testing.T) {
	job := backend.Job{
		ID:     "job-2",
		Status: backend.StateError,
		Outputs: []backend.OutputRecord{
			{Key: "hls/audio-160k", Status: "Complete"},
			{Key: "hls/video-1m", Status: backend.StateError, StatusDetail: "4000 input file is corrupt"},
			{Key: "hls/video-2m", Status: backend.StateError, StatusDetail: "later"},
		},
	}
	view, _ := jobstatus.FromJob(job)
	if view.Status != jobstatus.StatusError || view.ErrorMessage != "4000 input file is corrupt" {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Outputs != nil {
		t.Fatal("error views carry no outputs")
	}
}

func TestFromBackendMapping(t *testing.T) {
	cases := map[string]jobstatus.Status{
		backend.StateSubmitted:   jobstatus.StatusProcessing,
		backend.StateProgressing: jobstatus.StatusProcessing,
		backend.StateComplete:    jobstatus.StatusComplete,
		backend.StateCanceled:    jobstatus.StatusError,
		backend.StateError:       jobstatus.StatusError,
		"Mystery":                jobstatus.StatusError,
	}
	for native, want := range cases {
		if got := jobstatus.FromBackend(native); got != want {
			t.Errorf("FromBackend(%q) = %s, want %s", native, got, want)
		}
	}
}

func TestViewJSONShape(t *testing.T) {
	view, _ := jobstatus.FromJob(completeJob(map[string]string{
		"service": "local", "container": "c", "targets": "IOS", "qualities": "SD", "thumbnail": "true",
	}))
	data, err := json.Marshal(view)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["status"] != "complete" || raw["service"] != "local" || raw["thumbnail"] != true {
		t.Fatalf("unexpected json %s", data)
	}
	outputs := raw["outputs"].([]any)
	first := outputs[0].(map[string]any)
	if first["target"] != "IOS" || first["playlist"] != "hls/playlist.m3u8" {
		t.Fatalf("unexpected output json %v", first)
	}
}
