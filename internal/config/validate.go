package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"backend.poll_interval_seconds":         c.Backend.PollIntervalSeconds,
		"fetch.timeout_seconds":                 c.Fetch.TimeoutSeconds,
		"fetch.max_attempts":                    c.Fetch.MaxAttempts,
		"orchestrator.redistribute_concurrency": c.Orchestrator.RedistributeConcurrency,
		"orchestrator.cleanup_timeout_seconds":  c.Orchestrator.CleanupTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Fetch.MaxRedirects < 0 {
		return errors.New("fetch.max_redirects must be >= 0")
	}
	if c.Ledger.RetentionDays < 0 {
		return errors.New("ledger.retention_days must be >= 0")
	}
	if c.Orchestrator.StaleScratchHours < 0 {
		return errors.New("orchestrator.stale_scratch_hours must be >= 0")
	}
	if err := c.validateStatusCache(); err != nil {
		return err
	}
	return c.validateEvents()
}

func (c *Config) validateBackend() error {
	if c.Backend.InputPrefix == c.Backend.OutputPrefix && c.Backend.InputContainer == c.Backend.OutputContainer {
		return errors.New("backend.input_prefix and backend.output_prefix must differ when both containers are the same")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if strings.TrimSpace(c.Storage.LocalRoot) == "" {
		return errors.New("storage.local_root must be set")
	}
	if (c.Storage.AccessKeyID == "") != (c.Storage.SecretAccessKey == "") {
		return errors.New("storage.access_key_id and storage.secret_access_key must be set together")
	}
	return nil
}

func (c *Config) validateStatusCache() error {
	if !c.StatusCache.Enabled {
		return nil
	}
	if c.StatusCache.TTLSeconds <= 0 {
		return errors.New("status_cache.ttl_seconds must be positive when status_cache.enabled is true")
	}
	if c.StatusCache.DB < 0 {
		return errors.New("status_cache.db must be >= 0")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if len(c.Events.Brokers) == 0 {
		return errors.New("events.brokers must be set when events.enabled is true (or set STREAMLINE_KAFKA_BROKERS)")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
