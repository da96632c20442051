package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"streamline/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Optional integrations (status cache, events) stay disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Storage.LocalRoot = filepath.Join(base, "fs")
	cfgVal.Ledger.Path = filepath.Join(base, "logs", "ledger.db")
	cfgVal.Backend.PollIntervalSeconds = 1
	cfgVal.Orchestrator.CleanupTimeoutSeconds = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithLocalContainers creates the named directories under the local storage
// root so they pass container checks.
func WithLocalContainers(names ...string) ConfigOption {
	return func(b *configBuilder) {
		for _, name := range names {
			dir := filepath.Join(b.cfg.Storage.LocalRoot, name)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				b.t.Fatalf("mkdir container %s: %v", name, err)
			}
		}
	}
}

// WithLedgerDisabled turns the run ledger off.
func WithLedgerDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.Enabled = false
	}
}

// WithRedistributeConcurrency overrides the fan-out limit.
func WithRedistributeConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Orchestrator.RedistributeConcurrency = n
	}
}
