package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeFetch()
	c.normalizeServices()
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("STREAMLINE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	origins := make([]string, 0, len(c.Paths.APIAllowedOrigins))
	for _, origin := range c.Paths.APIAllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.Paths.APIAllowedOrigins = origins
	return nil
}

func (c *Config) normalizeBackend() {
	b := &c.Backend
	b.Region = strings.TrimSpace(b.Region)
	if b.Region == "" {
		if value, ok := os.LookupEnv("AWS_REGION"); ok {
			b.Region = strings.TrimSpace(value)
		}
	}
	if b.Region == "" {
		b.Region = defaultRegion
	}
	b.Endpoint = strings.TrimSpace(b.Endpoint)
	b.StorageEndpoint = strings.TrimSpace(b.StorageEndpoint)
	b.AccessKeyID = strings.TrimSpace(b.AccessKeyID)
	if b.AccessKeyID == "" {
		if value, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok {
			b.AccessKeyID = strings.TrimSpace(value)
		}
	}
	b.SecretAccessKey = strings.TrimSpace(b.SecretAccessKey)
	if b.SecretAccessKey == "" {
		if value, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok {
			b.SecretAccessKey = strings.TrimSpace(value)
		}
	}
	b.InputContainer = strings.TrimSpace(b.InputContainer)
	if b.InputContainer == "" {
		b.InputContainer = defaultContainer
	}
	b.OutputContainer = strings.TrimSpace(b.OutputContainer)
	if b.OutputContainer == "" {
		b.OutputContainer = defaultContainer
	}
	b.InputPrefix = normalizePrefix(b.InputPrefix, defaultInputPrefix)
	b.OutputPrefix = normalizePrefix(b.OutputPrefix, defaultOutputPrefix)
	if b.MaxRetries < 0 {
		b.MaxRetries = 0
	}
	if b.PollIntervalSeconds == 0 {
		b.PollIntervalSeconds = defaultPollIntervalSeconds
	}
}

// normalizePrefix trims slashes and guarantees a single trailing one so keys
// can be built by concatenation.
func normalizePrefix(value, fallback string) string {
	trimmed := strings.Trim(strings.TrimSpace(value), "/")
	if trimmed == "" {
		return fallback
	}
	return trimmed + "/"
}

func (c *Config) normalizeStorage() error {
	var err error
	if strings.TrimSpace(c.Storage.LocalRoot) == "" {
		c.Storage.LocalRoot = defaultLocalRoot
	}
	if c.Storage.LocalRoot, err = expandPath(c.Storage.LocalRoot); err != nil {
		return fmt.Errorf("storage.local_root: %w", err)
	}
	c.Storage.BucketRegion = strings.TrimSpace(c.Storage.BucketRegion)
	if c.Storage.BucketRegion == "" {
		c.Storage.BucketRegion = c.Backend.Region
	}
	c.Storage.BucketEndpoint = strings.TrimSpace(c.Storage.BucketEndpoint)
	c.Storage.AccessKeyID = strings.TrimSpace(c.Storage.AccessKeyID)
	c.Storage.SecretAccessKey = strings.TrimSpace(c.Storage.SecretAccessKey)
	if c.Storage.AccessKeyID == "" && c.Storage.SecretAccessKey == "" {
		c.Storage.AccessKeyID = c.Backend.AccessKeyID
		c.Storage.SecretAccessKey = c.Backend.SecretAccessKey
	}
	return nil
}

func (c *Config) normalizeFetch() {
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = defaultFetchTimeoutSeconds
	}
	if c.Fetch.MaxAttempts <= 0 {
		c.Fetch.MaxAttempts = defaultFetchMaxAttempts
	}
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultFetchUserAgent
	}
}

func (c *Config) normalizeServices() {
	c.StatusCache.Addr = strings.TrimSpace(c.StatusCache.Addr)
	if c.StatusCache.Addr == "" {
		if value, ok := os.LookupEnv("STREAMLINE_REDIS_ADDR"); ok {
			c.StatusCache.Addr = strings.TrimSpace(value)
		}
	}
	if c.StatusCache.Addr == "" {
		c.StatusCache.Addr = defaultRedisAddr
	}
	if c.StatusCache.TTLSeconds == 0 {
		c.StatusCache.TTLSeconds = defaultStatusCacheTTLSeconds
	}

	if len(c.Events.Brokers) == 0 {
		if value, ok := os.LookupEnv("STREAMLINE_KAFKA_BROKERS"); ok {
			c.Events.Brokers = strings.Split(value, ",")
		}
	}
	brokers := make([]string, 0, len(c.Events.Brokers))
	for _, broker := range c.Events.Brokers {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	c.Events.Brokers = brokers
	c.Events.Topic = strings.TrimSpace(c.Events.Topic)
	if c.Events.Topic == "" {
		c.Events.Topic = defaultEventsTopic
	}
}

func (c *Config) normalizeLedger() error {
	var err error
	if strings.TrimSpace(c.Ledger.Path) == "" {
		c.Ledger.Path = filepath.Join(c.Paths.LogDir, defaultLedgerFile)
	}
	if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
