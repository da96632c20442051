package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"streamline/internal/config"
	"streamline/internal/logging"
	"streamline/internal/staging"
)

// LockFileName is created in the log directory while a daemon runs.
const LockFileName = "streamlined.lock"

// Drainer is the orchestrator side of shutdown.
type Drainer interface {
	Shutdown(ctx context.Context) error
}

// Options are the collaborators built by the caller.
type Options struct {
	Handler      http.Handler
	Orchestrator Drainer
	// Closers are released by Close in order, after the orchestrator drained.
	Closers []io.Closer
}

// Daemon manages the process lifecycle and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	orch    Drainer
	server  *apiServer
	closers []io.Closer

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	stopOnce  sync.Once
	closeOnce sync.Once
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool   `json:"running"`
	PID          int    `json:"pid"`
	APIAddress   string `json:"apiAddress,omitempty"`
	LockFilePath string `json:"lockFilePath"`
	LedgerPath   string `json:"ledgerPath,omitempty"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil || opts.Handler == nil || opts.Orchestrator == nil {
		return nil, errors.New("daemon requires config, handler, and orchestrator")
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	lockPath := filepath.Join(cfg.Paths.LogDir, LockFileName)
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		orch:     opts.Orchestrator,
		server:   newAPIServer(cfg.Paths.APIBind, opts.Handler, logger),
		closers:  opts.Closers,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the lock, sweeps stale scratch and starts serving.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another streamline daemon instance is already running")
	}

	swept := staging.CleanStale(ctx, d.cfg.Paths.ScratchDir, d.cfg.StaleScratchAge(), d.logger)
	if len(swept.Removed) > 0 || len(swept.Errors) > 0 {
		d.logger.Info("stale scratch swept",
			logging.Int("removed", len(swept.Removed)),
			logging.Int("errors", len(swept.Errors)),
		)
	}

	if err := d.server.start(); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("streamline daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api_address", d.server.addr()),
	)
	return nil
}

// Stop stops serving, drains in-flight runs and releases the lock. It is
// safe to call more than once.
func (d *Daemon) Stop(ctx context.Context) {
	if !d.running.Load() {
		return
	}
	d.stopOnce.Do(func() {
		d.server.stop(ctx)

		drainCtx, cancel := context.WithTimeout(ctx, d.cfg.CleanupTimeout())
		defer cancel()
		if err := d.orch.Shutdown(drainCtx); err != nil {
			logging.WarnWithContext(d.logger, "orchestrator drain incomplete", "shutdown_drain_timeout",
				logging.Error(err),
				logging.Hint("raise orchestrator.cleanup_timeout_seconds"),
				logging.Impact("scratch directories may remain until the next start"),
			)
		}

		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
		d.running.Store(false)
		d.logger.Info("streamline daemon stopped")
	})
}

// Close stops the daemon and releases every closer.
func (d *Daemon) Close() error {
	d.Stop(context.Background())
	var errs []error
	d.closeOnce.Do(func() {
		for _, c := range d.closers {
			if c == nil {
				continue
			}
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// Addr is the bound API address, useful when binding port 0.
func (d *Daemon) Addr() string {
	return d.server.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		APIAddress:   d.server.addr(),
		LockFilePath: d.lockPath,
	}
	if d.cfg.Ledger.Enabled {
		status.LedgerPath = d.cfg.Ledger.Path
	}
	return status
}
