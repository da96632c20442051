package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	ScratchDir        string   `toml:"scratch_dir"`
	LogDir            string   `toml:"log_dir"`
	APIBind           string   `toml:"api_bind"`
	APIToken          string   `toml:"api_token"`
	APIAllowedOrigins []string `toml:"api_allowed_origins"`
}

// Backend configures the transcoding service and its companion object storage.
type Backend struct {
	Region              string `toml:"region"`
	Endpoint            string `toml:"endpoint"`
	StorageEndpoint     string `toml:"storage_endpoint"`
	AccessKeyID         string `toml:"access_key_id"`
	SecretAccessKey     string `toml:"secret_access_key"`
	InputContainer      string `toml:"input_container"`
	OutputContainer     string `toml:"output_container"`
	InputPrefix         string `toml:"input_prefix"`
	OutputPrefix        string `toml:"output_prefix"`
	MaxRetries          int    `toml:"max_retries"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
}

// Storage configures the user-facing storage services (local and bucket).
type Storage struct {
	LocalRoot       string `toml:"local_root"`
	BucketRegion    string `toml:"bucket_region"`
	BucketEndpoint  string `toml:"bucket_endpoint"`
	BucketPathStyle bool   `toml:"bucket_path_style"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

// Fetch configures downloads of url inputs.
type Fetch struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRedirects   int    `toml:"max_redirects"`
	MaxAttempts    int    `toml:"max_attempts"`
	UserAgent      string `toml:"user_agent"`
}

// Orchestrator configures the job pipeline.
type Orchestrator struct {
	RedistributeConcurrency int `toml:"redistribute_concurrency"`
	CleanupTimeoutSeconds   int `toml:"cleanup_timeout_seconds"`
	StaleScratchHours       int `toml:"stale_scratch_hours"`
}

// StatusCache configures the Redis cache for terminal job status views.
type StatusCache struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

// Events configures publication of run lifecycle events.
type Events struct {
	Enabled bool     `toml:"enabled"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// Ledger configures the SQLite run ledger.
type Ledger struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path"`
	RetentionDays int    `toml:"retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for streamline.
//
// Configuration sections by subsystem:
//   - Paths: scratch/log directories, API bind address, token and CORS origins
//   - Backend: transcoding service, its containers and key prefixes
//   - Storage: local filesystem root and bucket service credentials
//   - Fetch: url input downloads
//   - Orchestrator: redistribution fan-out and cleanup limits
//   - StatusCache: Redis cache for finished job views
//   - Events: Kafka lifecycle events
//   - Ledger: SQLite run history
//   - Logging: log format and level
type Config struct {
	Paths        Paths        `toml:"paths"`
	Backend      Backend      `toml:"backend"`
	Storage      Storage      `toml:"storage"`
	Fetch        Fetch        `toml:"fetch"`
	Orchestrator Orchestrator `toml:"orchestrator"`
	StatusCache  StatusCache  `toml:"status_cache"`
	Events       Events       `toml:"events"`
	Ledger       Ledger       `toml:"ledger"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("streamline.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchDir, c.Paths.LogDir, c.Storage.LocalRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Ledger.Enabled {
		if err := os.MkdirAll(filepath.Dir(c.Ledger.Path), 0o755); err != nil {
			return fmt.Errorf("create ledger directory: %w", err)
		}
	}
	return nil
}

// LedgerRetention is how long finished runs stay in the ledger; zero keeps
// them forever.
func (c *Config) LedgerRetention() time.Duration {
	return time.Duration(c.Ledger.RetentionDays) * 24 * time.Hour
}

// PollInterval is how often the backend is asked whether a job finished.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Backend.PollIntervalSeconds) * time.Second
}

// CleanupTimeout bounds the best-effort cleanup of one run.
func (c *Config) CleanupTimeout() time.Duration {
	return time.Duration(c.Orchestrator.CleanupTimeoutSeconds) * time.Second
}

// StaleScratchAge is the age after which leftover scratch directories are swept.
func (c *Config) StaleScratchAge() time.Duration {
	return time.Duration(c.Orchestrator.StaleScratchHours) * time.Hour
}

// FetchTimeout bounds a single url input download.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// StatusCacheTTL is how long finished job views stay cached.
func (c *Config) StatusCacheTTL() time.Duration {
	return time.Duration(c.StatusCache.TTLSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
