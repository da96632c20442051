package config

const (
	defaultConfigPath              = "~/.config/streamline/config.toml"
	defaultScratchDir              = "~/.local/share/streamline/scratch"
	defaultLogDir                  = "~/.local/share/streamline/logs"
	defaultAPIBind                 = "127.0.0.1:7490"
	defaultRegion                  = "eu-west-1"
	defaultContainer               = "a2server-transcoder"
	defaultInputPrefix             = "in/"
	defaultOutputPrefix            = "out/"
	defaultMaxRetries              = 3
	defaultPollIntervalSeconds     = 15
	defaultLocalRoot               = "~/.local/share/streamline/fs"
	defaultFetchTimeoutSeconds     = 600
	defaultFetchMaxRedirects       = 10
	defaultFetchMaxAttempts        = 3
	defaultFetchUserAgent          = "streamline/dev"
	defaultRedistributeConcurrency = 4
	defaultCleanupTimeoutSeconds   = 120
	defaultStaleScratchHours       = 24
	defaultRedisAddr               = "localhost:6379"
	defaultStatusCacheTTLSeconds   = 3600
	defaultEventsTopic             = "streamline.runs"
	defaultLedgerFile              = "ledger.db"
	defaultLedgerRetentionDays     = 30
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Backend: Backend{
			Region:              defaultRegion,
			InputContainer:      defaultContainer,
			OutputContainer:     defaultContainer,
			InputPrefix:         defaultInputPrefix,
			OutputPrefix:        defaultOutputPrefix,
			MaxRetries:          defaultMaxRetries,
			PollIntervalSeconds: defaultPollIntervalSeconds,
		},
		Storage: Storage{
			LocalRoot: defaultLocalRoot,
		},
		Fetch: Fetch{
			TimeoutSeconds: defaultFetchTimeoutSeconds,
			MaxRedirects:   defaultFetchMaxRedirects,
			MaxAttempts:    defaultFetchMaxAttempts,
			UserAgent:      defaultFetchUserAgent,
		},
		Orchestrator: Orchestrator{
			RedistributeConcurrency: defaultRedistributeConcurrency,
			CleanupTimeoutSeconds:   defaultCleanupTimeoutSeconds,
			StaleScratchHours:       defaultStaleScratchHours,
		},
		StatusCache: StatusCache{
			Addr:       defaultRedisAddr,
			TTLSeconds: defaultStatusCacheTTLSeconds,
		},
		Events: Events{
			Topic: defaultEventsTopic,
		},
		Ledger: Ledger{
			Enabled:       true,
			RetentionDays: defaultLedgerRetentionDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
