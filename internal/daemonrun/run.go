package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"streamline/internal/config"
	"streamline/internal/daemon"
	"streamline/internal/logging"
)

// PIDFileName is written to the log directory while the daemon runs.
const PIDFileName = "streamline.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the streamline daemon and blocks until SIGINT/SIGTERM or
// cmdCtx ends.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logCfg := *cfg
	if opts.LogLevel != "" {
		logCfg.Logging.Level = opts.LogLevel
	}
	if opts.Development {
		logCfg.Logging.Format = "console"
		logCfg.Logging.Level = "debug"
	}
	logger, err := logging.NewFromConfig(&logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logConfigSnapshot(logger, cfg)
	pidPath := filepath.Join(cfg.Paths.LogDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	rt, err := Wire(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("wire components", logging.Error(err))
		return err
	}

	d, err := daemon.New(cfg, logger, daemon.Options{
		Handler:      rt.Handler,
		Orchestrator: rt.Orchestrator,
		Closers:      rt.Closers(),
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("streamline daemon shutting down")
	d.Stop(context.Background())
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("region", cfg.Backend.Region),
		logging.String("input_container", cfg.Backend.InputContainer),
		logging.String("output_container", cfg.Backend.OutputContainer),
		logging.Bool("backend_credentials_present", cfg.Backend.AccessKeyID != ""),
		logging.Bool("ledger_enabled", cfg.Ledger.Enabled),
		logging.Bool("status_cache_enabled", cfg.StatusCache.Enabled),
		logging.Bool("events_enabled", cfg.Events.Enabled),
		logging.Bool("api_token_present", cfg.Paths.APIToken != ""),
	)
}
