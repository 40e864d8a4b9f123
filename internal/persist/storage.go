// Package persist keeps a wizard draft (step plus document) in a namespaced
// key/value store with a time-to-live, and provides a debounced autosaver.
package persist

import (
	"context"
	"sort"
	"sync"
)

// Storage is a namespaced string key/value store. Implementations must apply
// a Set atomically: either every entry is written or none is.
type Storage interface {
	// Get returns the value of key in namespace; ok is false when absent.
	Get(ctx context.Context, namespace, key string) (value string, ok bool, err error)
	// Set writes entries into namespace, overwriting existing keys.
	Set(ctx context.Context, namespace string, entries map[string]string) error
	// DeleteNamespace removes every key of namespace.
	DeleteNamespace(ctx context.Context, namespace string) error
}

// MemoryStorage is an in-process Storage, used by tests and by the terminal
// composer when no database is configured.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]map[string]string)}
}

// Get implements Storage.
func (m *MemoryStorage) Get(_ context.Context, namespace, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[namespace][key]
	return v, ok, nil
}

// Set implements Storage.
func (m *MemoryStorage) Set(_ context.Context, namespace string, entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.data[namespace]
	if !ok {
		ns = make(map[string]string, len(entries))
		m.data[namespace] = ns
	}
	for k, v := range entries {
		ns[k] = v
	}
	return nil
}

// DeleteNamespace implements Storage.
func (m *MemoryStorage) DeleteNamespace(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, namespace)
	return nil
}

// Keys returns the sorted keys stored under namespace.
func (m *MemoryStorage) Keys(namespace string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data[namespace]))
	for k := range m.data[namespace] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
