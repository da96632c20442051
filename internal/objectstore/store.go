// Package objectstore is the blob storage facade used for staging and
// redistribution. Every storage service (local filesystem, user bucket,
// backend storage) implements Store; Registry resolves a service name to its
// Store.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"streamline/internal/streaming"
)

var (
	// ErrContainerNotFound reports a missing or inaccessible container.
	ErrContainerNotFound = errors.New("container not found")
	// ErrObjectNotFound reports a missing object.
	ErrObjectNotFound = errors.New("object not found")
	// ErrUnsupportedService reports a service with no configured store.
	ErrUnsupportedService = errors.New("unsupported storage service")
)

// Object is one listed blob.
type Object struct {
	Key  string
	Size int64
}

// Store reads and writes blobs in named containers.
type Store interface {
	// CheckContainer returns ErrContainerNotFound when the container is
	// missing or not accessible.
	CheckContainer(ctx context.Context, container string) error
	// Upload streams body to container/key, replacing any existing object.
	Upload(ctx context.Context, container, key string, body io.Reader) error
	// Download opens container/key for reading. Callers close the reader.
	Download(ctx context.Context, container, key string) (io.ReadCloser, error)
	// List returns every object whose key starts with prefix.
	List(ctx context.Context, container, prefix string) ([]Object, error)
	// Delete removes keys. Missing keys are not errors; every other failure
	// is reported after all keys were attempted.
	Delete(ctx context.Context, container string, keys []string) error
}

// Registry maps storage services to stores.
type Registry map[streaming.Service]Store

// For returns the store serving service.
func (r Registry) For(service streaming.Service) (Store, error) {
	store, ok := r[service]
	if !ok || store == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedService, service)
	}
	return store, nil
}
