package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"streamline/internal/fetch"
	"streamline/internal/fileutil"
	"streamline/internal/logging"
	"streamline/internal/objectstore"
	"streamline/internal/services"
	"streamline/internal/streaming"
)

// FailedPrefix marks a redistribution entry whose transfer failed.
const FailedPrefix = "Error: "

const sourceBaseName = "source"

// Fetcher downloads url inputs.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*fetch.Result, error)
}

// Options wires a Transport.
type Options struct {
	Stores          objectstore.Registry
	Fetcher         Fetcher
	ScratchRoot     string
	InputContainer  string
	OutputContainer string
	InputPrefix     string
	Concurrency     int
	Logger          *slog.Logger
}

// Transport performs the staging and redistribution transfers of a run.
type Transport struct {
	opts   Options
	logger *slog.Logger
}

// NewTransport validates opts and returns a Transport.
func NewTransport(opts Options) (*Transport, error) {
	if opts.Stores == nil {
		return nil, errors.New("staging: stores registry is required")
	}
	if _, err := opts.Stores.For(streaming.ServiceBackend); err != nil {
		return nil, fmt.Errorf("staging: %w", err)
	}
	if strings.TrimSpace(opts.ScratchRoot) == "" {
		return nil, errors.New("staging: scratch root is required")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Transport{opts: opts, logger: logging.NewComponentLogger(logger, "staging")}, nil
}

// Store resolves the store of a service.
func (t *Transport) Store(service streaming.Service) (objectstore.Store, error) {
	return t.opts.Stores.For(service)
}

// NewScratch creates the private scratch directory of a run.
func (t *Transport) NewScratch(runID string) (string, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	dir := filepath.Join(t.opts.ScratchRoot, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, nil
}

// RemoveScratch deletes a run's scratch directory. A missing directory is
// not an error.
func RemoveScratch(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return nil
	}
	return os.RemoveAll(dir)
}

// StageInput copies the source into scratchDir and returns the local path.
// Partial files never remain on failure.
func (t *Transport) StageInput(ctx context.Context, scratchDir string, in streaming.Input) (string, error) {
	var (
		body io.ReadCloser
		ext  string
	)
	switch in.Service {
	case streaming.ServiceURL:
		if t.opts.Fetcher == nil {
			return "", fmt.Errorf("%w: url", objectstore.ErrUnsupportedService)
		}
		res, err := t.opts.Fetcher.Get(ctx, in.Path)
		if err != nil {
			return "", err
		}
		body = res.Body
		ext = path.Ext(res.FilenameHint)
		logging.WithContext(ctx, t.logger).Debug("url input opened",
			logging.String("content_type", res.ContentType),
			logging.String("filename_hint", res.FilenameHint),
			logging.Int64("content_length", res.ContentLength),
		)
	default:
		store, err := t.opts.Stores.For(in.Service)
		if err != nil {
			return "", err
		}
		rc, err := store.Download(ctx, in.Container, in.Path)
		if err != nil {
			return "", err
		}
		body = rc
		ext = path.Ext(in.Path)
	}
	defer body.Close()

	local := filepath.Join(scratchDir, sourceBaseName+ext)
	written, err := fileutil.WriteFrom(local, body)
	if err != nil {
		return "", fmt.Errorf("write scratch copy: %w", err)
	}
	logging.WithContext(ctx, t.logger).Info("input staged locally",
		logging.String("service", string(in.Service)),
		logging.String("path", local),
		logging.Int64("bytes", written),
	)
	return local, nil
}

// PushToBackend uploads the scratch copy into the backend input area under a
// random key and returns that key.
func (t *Transport) PushToBackend(ctx context.Context, localPath string) (string, error) {
	store, err := t.opts.Stores.For(streaming.ServiceBackend)
	if err != nil {
		return "", err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open scratch copy: %w", err)
	}
	defer f.Close()

	key := t.opts.InputPrefix + uuid.NewString() + filepath.Ext(localPath)
	if err := store.Upload(ctx, t.opts.InputContainer, key, f); err != nil {
		return "", err
	}
	logging.WithContext(ctx, t.logger).Info("input pushed to backend",
		logging.String("container", t.opts.InputContainer),
		logging.String("key", key),
	)
	return key, nil
}

// Redistribution is the outcome of fanning outputs out to the destination.
// Files keeps listing order; failed transfers appear as FailedPrefix plus
// the backend key.
type Redistribution struct {
	Files  []string `json:"files"`
	Failed int      `json:"failed"`
}

// Transferred returns the successfully written destination paths.
func (r Redistribution) Transferred() []string {
	out := make([]string, 0, len(r.Files)-r.Failed)
	for _, f := range r.Files {
		if !strings.HasPrefix(f, FailedPrefix) {
			out = append(out, f)
		}
	}
	return out
}

// Redistribute copies every object under outputPrefix in the backend output
// container to the destination. Every object is attempted; the returned error
// is non-nil when listing failed, nothing was produced, or any transfer
// failed.
func (t *Transport) Redistribute(ctx context.Context, outputPrefix string, out streaming.Output) (Redistribution, error) {
	const stage = "redistributing"
	source, err := t.opts.Stores.For(streaming.ServiceBackend)
	if err != nil {
		return Redistribution{}, services.Wrap(services.ErrRedistribution, stage, "resolve source", "", err)
	}
	dest, err := t.opts.Stores.For(out.Service)
	if err != nil {
		return Redistribution{}, services.Wrap(services.ErrRedistribution, stage, "resolve destination", "", err)
	}

	objects, err := source.List(ctx, t.opts.OutputContainer, outputPrefix)
	if err != nil {
		return Redistribution{}, services.Wrap(services.ErrRedistribution, stage, "list outputs", outputPrefix, err)
	}
	if len(objects) == 0 {
		return Redistribution{}, services.Wrap(services.ErrRedistribution, stage, "list outputs", "backend produced no files", nil)
	}

	logger := logging.WithContext(ctx, t.logger)
	prefix := out.CleanPrefix()
	files := make([]string, len(objects))
	var g errgroup.Group
	g.SetLimit(t.opts.Concurrency)
	for i, obj := range objects {
		target := destinationKey(prefix, strings.TrimPrefix(obj.Key, outputPrefix))
		g.Go(func() error {
			if err := t.transfer(ctx, source, dest, obj.Key, out.Container, target); err != nil {
				logging.WarnWithContext(logger, "output transfer failed", "redistribution_file_failed",
					logging.String("source_key", obj.Key),
					logging.String("destination", target),
					logging.Error(err),
					logging.Hint("check destination container permissions"),
					logging.Impact("file missing from destination"),
				)
				files[i] = FailedPrefix + obj.Key
				return nil
			}
			files[i] = target
			return nil
		})
	}
	_ = g.Wait()

	result := Redistribution{Files: files}
	for _, f := range files {
		if strings.HasPrefix(f, FailedPrefix) {
			result.Failed++
		}
	}
	logger.Info("redistribution finished",
		logging.Int("files", len(files)),
		logging.Int("failed", result.Failed),
		logging.String("container", out.Container),
	)
	if result.Failed > 0 {
		return result, services.Wrap(services.ErrRedistribution, stage, "transfer",
			fmt.Sprintf("%d of %d files failed", result.Failed, len(files)), nil)
	}
	return result, nil
}

func (t *Transport) transfer(ctx context.Context, source, dest objectstore.Store, key, container, target string) error {
	rc, err := source.Download(ctx, t.opts.OutputContainer, key)
	if err != nil {
		return err
	}
	defer rc.Close()
	return dest.Upload(ctx, container, target, rc)
}

func destinationKey(prefix, rel string) string {
	rel = strings.TrimLeft(rel, "/")
	if prefix == "" {
		return rel
	}
	return prefix + "/" + rel
}

// RemoveBackendObjects deletes the staged input and every output under
// outputPrefix. Both deletions are attempted; failures are joined.
func (t *Transport) RemoveBackendObjects(ctx context.Context, inputKey, outputPrefix string) error {
	store, err := t.opts.Stores.For(streaming.ServiceBackend)
	if err != nil {
		return err
	}
	var errs []error
	if inputKey != "" {
		if err := store.Delete(ctx, t.opts.InputContainer, []string{inputKey}); err != nil {
			errs = append(errs, fmt.Errorf("delete input: %w", err))
		}
	}
	if outputPrefix != "" {
		objects, err := store.List(ctx, t.opts.OutputContainer, outputPrefix)
		if err != nil {
			errs = append(errs, fmt.Errorf("list outputs: %w", err))
		} else if len(objects) > 0 {
			keys := make([]string, 0, len(objects))
			for _, obj := range objects {
				keys = append(keys, obj.Key)
			}
			if err := store.Delete(ctx, t.opts.OutputContainer, keys); err != nil {
				errs = append(errs, fmt.Errorf("delete outputs: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}
