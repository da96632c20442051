package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"streamline/internal/api"
	"streamline/internal/awsconf"
	"streamline/internal/backend"
	"streamline/internal/config"
	"streamline/internal/events"
	"streamline/internal/fetch"
	"streamline/internal/jobstatus"
	"streamline/internal/ledger"
	"streamline/internal/logging"
	"streamline/internal/objectstore"
	"streamline/internal/orchestrator"
	"streamline/internal/staging"
	"streamline/internal/statuscache"
	"streamline/internal/streaming"
)

// Runtime holds every component of a running daemon.
type Runtime struct {
	Orchestrator *orchestrator.Orchestrator
	Reader       *jobstatus.Reader
	Ledger       *ledger.Store
	Events       events.Publisher
	Cache        statuscache.Cache
	Handler      http.Handler
}

// Closers lists what must be released after the orchestrator drained.
func (r *Runtime) Closers() []io.Closer {
	closers := []io.Closer{r.Events, r.Cache}
	if r.Ledger != nil {
		closers = append(closers, r.Ledger)
	}
	return closers
}

// Collaborators are the external-facing clients a Runtime is assembled from.
type Collaborators struct {
	Backend backend.Client
	Stores  objectstore.Registry
	Fetcher staging.Fetcher
}

// Wire builds AWS-backed collaborators from cfg and assembles the runtime.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	backendAWS, err := awsconf.Load(ctx, awsconf.Options{
		Region:          cfg.Backend.Region,
		AccessKeyID:     cfg.Backend.AccessKeyID,
		SecretAccessKey: cfg.Backend.SecretAccessKey,
		MaxRetries:      cfg.Backend.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("backend credentials: %w", err)
	}
	bucketAWS, err := awsconf.Load(ctx, awsconf.Options{
		Region:          cfg.Storage.BucketRegion,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		MaxRetries:      cfg.Backend.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("bucket credentials: %w", err)
	}

	return Assemble(cfg, logger, Collaborators{
		Backend: backend.NewElasticTranscoder(backendAWS, cfg.Backend.Endpoint, cfg.PollInterval(), logger),
		Stores: objectstore.Registry{
			streaming.ServiceLocal: objectstore.NewLocal(cfg.Storage.LocalRoot),
			streaming.ServiceBucket: objectstore.NewS3(bucketAWS, objectstore.S3Options{
				Endpoint:  cfg.Storage.BucketEndpoint,
				PathStyle: cfg.Storage.BucketPathStyle,
			}),
			streaming.ServiceBackend: objectstore.NewS3(backendAWS, objectstore.S3Options{
				Endpoint: cfg.Backend.StorageEndpoint,
			}),
		},
		Fetcher: fetch.NewClient(cfg.FetchTimeout(), cfg.Fetch.MaxRedirects,
			fetch.WithRetryMaxAttempts(cfg.Fetch.MaxAttempts),
			fetch.WithUserAgent(cfg.Fetch.UserAgent),
		),
	})
}

// Assemble builds the orchestrator, status reader, optional integrations and
// the HTTP handler around the given collaborators.
func Assemble(cfg *config.Config, logger *slog.Logger, c Collaborators) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	transport, err := staging.NewTransport(staging.Options{
		Stores:          c.Stores,
		Fetcher:         c.Fetcher,
		ScratchRoot:     cfg.Paths.ScratchDir,
		InputContainer:  cfg.Backend.InputContainer,
		OutputContainer: cfg.Backend.OutputContainer,
		InputPrefix:     cfg.Backend.InputPrefix,
		Concurrency:     cfg.Orchestrator.RedistributeConcurrency,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Events: events.New(cfg, logger),
		Cache:  statuscache.New(cfg, logger),
	}
	orchOpts := orchestrator.Options{
		Backend:        c.Backend,
		Transport:      transport,
		Events:         rt.Events,
		OutputPrefix:   cfg.Backend.OutputPrefix,
		CleanupTimeout: cfg.CleanupTimeout(),
		Logger:         logger,
	}
	readerOpts := []jobstatus.Option{jobstatus.WithCache(rt.Cache), jobstatus.WithLogger(logger)}
	var runs *api.RunService
	if cfg.Ledger.Enabled {
		store, err := ledger.Open(cfg)
		if err != nil {
			rt.closeIntegrations()
			return nil, fmt.Errorf("open run ledger: %w", err)
		}
		rt.Ledger = store
		pruneLedger(store, cfg, logger)
		orchOpts.Runs = store
		readerOpts = append(readerOpts, jobstatus.WithRuns(store))
		runs = api.NewRunService(store)
	}

	rt.Orchestrator, err = orchestrator.New(orchOpts)
	if err != nil {
		rt.closeIntegrations()
		return nil, err
	}
	rt.Reader = jobstatus.NewReader(c.Backend, readerOpts...)
	rt.Handler, err = api.NewHandler(api.Options{
		Submitter:      rt.Orchestrator,
		Status:         rt.Reader,
		Runs:           runs,
		Token:          cfg.Paths.APIToken,
		AllowedOrigins: cfg.Paths.APIAllowedOrigins,
		Logger:         logger,
	})
	if err != nil {
		rt.closeIntegrations()
		return nil, err
	}
	return rt, nil
}

func (r *Runtime) closeIntegrations() {
	for _, c := range r.Closers() {
		if c != nil {
			_ = c.Close()
		}
	}
}

const pruneTimeout = 30 * time.Second

// pruneLedger drops finished runs older than ledger.retention_days.
func pruneLedger(store *ledger.Store, cfg *config.Config, logger *slog.Logger) {
	retention := cfg.LedgerRetention()
	if retention <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()
	removed, err := store.Prune(ctx, time.Now().Add(-retention))
	if err != nil {
		logging.WarnWithContext(logger, "ledger prune failed", "ledger_prune_failed",
			logging.Error(err),
			logging.Hint("check ledger.path permissions"),
			logging.Impact("old runs kept"),
		)
		return
	}
	if removed > 0 && logger != nil {
		logger.Info("pruned old runs", logging.Int64("removed", removed), logging.Duration("retention", retention))
	}
}
