package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"streamline/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("AWS_REGION", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantScratch := filepath.Join(tempHome, ".local", "share", "streamline", "scratch")
	if cfg.Paths.ScratchDir != wantScratch {
		t.Fatalf("unexpected scratch dir: got %q want %q", cfg.Paths.ScratchDir, wantScratch)
	}
	if cfg.Ledger.Path != filepath.Join(cfg.Paths.LogDir, "ledger.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.Ledger.Path)
	}
	if cfg.Backend.Region != "eu-west-1" {
		t.Fatalf("unexpected region: %q", cfg.Backend.Region)
	}
	if cfg.Backend.InputPrefix != "in/" || cfg.Backend.OutputPrefix != "out/" {
		t.Fatalf("unexpected prefixes: %q %q", cfg.Backend.InputPrefix, cfg.Backend.OutputPrefix)
	}
	if cfg.Backend.MaxRetries != 3 {
		t.Fatalf("unexpected max retries: %d", cfg.Backend.MaxRetries)
	}
	if cfg.StatusCache.Enabled || cfg.Events.Enabled {
		t.Fatal("expected optional integrations disabled by default")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.ScratchDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "streamline.toml")

	type payload struct {
		Backend struct {
			Region         string `toml:"region"`
			InputPrefix    string `toml:"input_prefix"`
			OutputPrefix   string `toml:"output_prefix"`
			InputContainer string `toml:"input_container"`
		} `toml:"backend"`
		Paths struct {
			ScratchDir string `toml:"scratch_dir"`
		} `toml:"paths"`
	}
	custom := payload{}
	custom.Backend.Region = "us-east-1"
	custom.Backend.InputPrefix = "/incoming"
	custom.Backend.OutputPrefix = "produced//"
	custom.Backend.InputContainer = "media-in"
	custom.Paths.ScratchDir = filepath.Join(tempDir, "scratch")

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Backend.Region != "us-east-1" {
		t.Fatalf("unexpected region: %q", cfg.Backend.Region)
	}
	if cfg.Backend.InputPrefix != "incoming/" {
		t.Fatalf("expected normalized input prefix, got %q", cfg.Backend.InputPrefix)
	}
	if cfg.Backend.OutputPrefix != "produced/" {
		t.Fatalf("expected normalized output prefix, got %q", cfg.Backend.OutputPrefix)
	}
	if cfg.Backend.OutputContainer != "a2server-transcoder" {
		t.Fatalf("expected default output container, got %q", cfg.Backend.OutputContainer)
	}
	if cfg.Paths.ScratchDir != filepath.Join(tempDir, "scratch") {
		t.Fatalf("unexpected scratch dir: %q", cfg.Paths.ScratchDir)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "streamline.toml")
	if err := os.WriteFile(configPath, []byte("[backend]\nregoin = \"typo\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected parse error for unknown key")
	}
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("STREAMLINE_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend.AccessKeyID != "AKIDEXAMPLE" || cfg.Backend.SecretAccessKey != "secret" {
		t.Fatalf("expected credentials from env, got %q/%q", cfg.Backend.AccessKeyID, cfg.Backend.SecretAccessKey)
	}
	if cfg.Storage.AccessKeyID != "AKIDEXAMPLE" {
		t.Fatalf("expected bucket credentials to fall back to backend credentials, got %q", cfg.Storage.AccessKeyID)
	}
	if len(cfg.Events.Brokers) != 2 || cfg.Events.Brokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.Events.Brokers)
	}
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"events without brokers", func(c *config.Config) { c.Events.Enabled = true; c.Events.Brokers = nil }, "events.brokers"},
		{"zero concurrency", func(c *config.Config) { c.Orchestrator.RedistributeConcurrency = 0 }, "redistribute_concurrency"},
		{"same prefixes", func(c *config.Config) { c.Backend.OutputPrefix = c.Backend.InputPrefix }, "output_prefix"},
		{"half credentials", func(c *config.Config) { c.Storage.AccessKeyID = "id" }, "storage.access_key_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	samplePath := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(samplePath); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	t.Setenv("HOME", t.TempDir())
	cfg, _, exists, err := config.Load(samplePath)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Backend.InputContainer != "a2server-transcoder" {
		t.Fatalf("unexpected container from sample: %q", cfg.Backend.InputContainer)
	}
}
