package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"streamline/internal/config"
	"streamline/internal/daemonrun"
	"streamline/internal/objectstore"
	"streamline/internal/streaming"
	"streamline/internal/testsupport"
)

const testToken = "cli-secret"

type cliTestEnv struct {
	cfg        *config.Config
	runtime    *daemonrun.Runtime
	fake       *testsupport.FakeBackend
	staged     *testsupport.MemoryStore
	server     *httptest.Server
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithLocalContainers("media"))
	cfg.Paths.APIToken = testToken
	fake := testsupport.NewFakeBackend()
	staged := testsupport.NewMemoryStore(cfg.Backend.InputContainer)

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
	srv := httptest.NewServer(rt.Handler)

	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Orchestrator.Shutdown(ctx)
		for _, c := range rt.Closers() {
			_ = c.Close()
		}
	})

	configPath := filepath.Join(t.TempDir(), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		runtime:    rt,
		fake:       fake,
		staged:     staged,
		server:     srv,
		configPath: configPath,
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--api", e.server.URL}, args...), e.configPath)
}

func (e *cliTestEnv) writeSource(t *testing.T, rel, body string) {
	t.Helper()
	path := filepath.Join(e.cfg.Storage.LocalRoot, "media", filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir source: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
scratch_dir = %q
log_dir = %q
api_bind = %q
api_token = %q

[storage]
local_root = %q

[ledger]
enabled = false
`,
		cfg.Paths.ScratchDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.Paths.APIToken,
		cfg.Storage.LocalRoot,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
