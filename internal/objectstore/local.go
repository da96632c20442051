package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"streamline/internal/fileutil"
)

// Local stores objects as files under Root/<container>/<key>.
type Local struct {
	Root string
}

// NewLocal returns a filesystem store rooted at root.
func NewLocal(root string) *Local {
	return &Local{Root: root}
}

func (l *Local) containerDir(container string) (string, error) {
	if container == "" || strings.ContainsAny(container, `/\`) || container == "." || container == ".." {
		return "", fmt.Errorf("invalid container name %q", container)
	}
	return filepath.Join(l.Root, container), nil
}

// objectPath resolves key inside the container and rejects keys that escape it.
func (l *Local) objectPath(container, key string) (string, error) {
	dir, err := l.containerDir(container)
	if err != nil {
		return "", err
	}
	clean := filepath.Clean(filepath.FromSlash(strings.TrimLeft(key, "/")))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(dir, clean), nil
}

func (l *Local) CheckContainer(_ context.Context, container string) error {
	dir, err := l.containerDir(container)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrContainerNotFound, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrContainerNotFound, container, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrContainerNotFound, container)
	}
	return nil
}

func (l *Local) Upload(ctx context.Context, container, key string, body io.Reader) error {
	if err := l.CheckContainer(ctx, container); err != nil {
		return err
	}
	path, err := l.objectPath(container, key)
	if err != nil {
		return err
	}
	if _, err := fileutil.WriteFrom(path, body); err != nil {
		return fmt.Errorf("write %s/%s: %w", container, key, err)
	}
	return nil
}

func (l *Local) Download(_ context.Context, container, key string) (io.ReadCloser, error) {
	path, err := l.objectPath(container, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, container, key)
		}
		return nil, err
	}
	return f, nil
}

func (l *Local) List(ctx context.Context, container, prefix string) ([]Object, error) {
	if err := l.CheckContainer(ctx, container); err != nil {
		return nil, err
	}
	dir, _ := l.containerDir(container)
	var objects []Object
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".part") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{Key: key, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", container, prefix, err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (l *Local) Delete(_ context.Context, container string, keys []string) error {
	dir, err := l.containerDir(container)
	if err != nil {
		return err
	}
	var errs []error
	for _, key := range keys {
		path, err := l.objectPath(container, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
			continue
		}
		pruneEmptyParents(filepath.Dir(path), dir)
	}
	return errors.Join(errs...)
}

// pruneEmptyParents removes now-empty directories between dir and stop.
func pruneEmptyParents(dir, stop string) {
	for dir != stop && strings.HasPrefix(dir, stop) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
