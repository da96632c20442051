package testsupport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"streamline/internal/objectstore"
)

// MemoryStore is an in-memory objectstore.Store with failure injection and
// per-operation call counting.
type MemoryStore struct {
	mu           sync.Mutex
	containers   map[string]map[string][]byte
	failUpload   map[string]error
	failPrefix   map[string]error
	failDownload map[string]error
	failDelete   map[string]error
	failCheck    error
	calls        map[string]int
}

// NewMemoryStore creates a store holding the named empty containers.
func NewMemoryStore(containers ...string) *MemoryStore {
	m := &MemoryStore{
		containers:   make(map[string]map[string][]byte),
		failUpload:   make(map[string]error),
		failPrefix:   make(map[string]error),
		failDownload: make(map[string]error),
		failDelete:   make(map[string]error),
		calls:        make(map[string]int),
	}
	for _, c := range containers {
		m.containers[c] = make(map[string][]byte)
	}
	return m
}

// Put seeds an object, creating the container if needed.
func (m *MemoryStore) Put(container, key, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.containers[container] == nil {
		m.containers[container] = make(map[string][]byte)
	}
	m.containers[container][key] = []byte(body)
}

// Get returns the stored bytes of an object.
func (m *MemoryStore) Get(container, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.containers[container][key]
	return data, ok
}

// Keys lists the keys of a container in sorted order.
func (m *MemoryStore) Keys(container string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.containers[container]))
	for k := range m.containers[container] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FailUpload makes every upload to key fail with err.
func (m *MemoryStore) FailUpload(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failUpload[key] = err
}

// FailUploadsUnder makes every upload to a key starting with prefix fail
// with err. Use it when the key is generated by the code under test.
func (m *MemoryStore) FailUploadsUnder(prefix string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPrefix[prefix] = err
}

// FailDownload makes every download of key fail with err.
func (m *MemoryStore) FailDownload(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDownload[key] = err
}

// FailDelete makes deletion of key fail with err.
func (m *MemoryStore) FailDelete(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDelete[key] = err
}

// FailCheck makes CheckContainer fail with err.
func (m *MemoryStore) FailCheck(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCheck = err
}

// Calls reports how often op ("check", "upload", "download", "list",
// "delete") was invoked.
func (m *MemoryStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// TotalCalls is the sum of every operation count.
func (m *MemoryStore) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *MemoryStore) CheckContainer(_ context.Context, container string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["check"]++
	if m.failCheck != nil {
		return m.failCheck
	}
	if _, ok := m.containers[container]; !ok {
		return fmt.Errorf("%w: %s", objectstore.ErrContainerNotFound, container)
	}
	return nil
}

func (m *MemoryStore) Upload(ctx context.Context, container, key string, body io.Reader) error {
	m.mu.Lock()
	m.calls["upload"]++
	failure := m.failUpload[key]
	for prefix, err := range m.failPrefix {
		if failure == nil && strings.HasPrefix(key, prefix) {
			failure = err
		}
	}
	_, exists := m.containers[container]
	m.mu.Unlock()

	if failure != nil {
		return failure
	}
	if !exists {
		return fmt.Errorf("%w: %s", objectstore.ErrContainerNotFound, container)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.containers[container][key] = data
	return nil
}

func (m *MemoryStore) Download(_ context.Context, container, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["download"]++
	if err := m.failDownload[key]; err != nil {
		return nil, err
	}
	data, ok := m.containers[container][key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", objectstore.ErrObjectNotFound, container, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStore) List(_ context.Context, container, prefix string) ([]objectstore.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["list"]++
	objects, ok := m.containers[container]
	if !ok {
		return nil, fmt.Errorf("%w: %s", objectstore.ErrContainerNotFound, container)
	}
	var out []objectstore.Object
	for key, data := range objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, objectstore.Object{Key: key, Size: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, container string, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["delete"]++
	var errs []error
	for _, key := range keys {
		if err := m.failDelete[key]; err != nil {
			errs = append(errs, err)
			continue
		}
		delete(m.containers[container], key)
	}
	return errors.Join(errs...)
}
