package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using a Go map. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string][]byte)}
}

// Get returns the value for key, or ErrKeyNotFound.
func (m *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, fmt.Errorf("memstore get %s: %w", key, ErrKeyNotFound)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put stores a copy of value under key.
func (m *MemStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.entries[key] = v
	return nil
}

// Delete removes a key if present.
func (m *MemStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Scan visits every key with the given prefix.
func (m *MemStore) Scan(_ context.Context, prefix string, fn func(key string, value []byte) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, v := range m.entries {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns a copy of the full key space.
func (m *MemStore) Snapshot(_ context.Context) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(m.entries))
	for k, v := range m.entries {
		c := make([]byte, len(v))
		copy(c, v)
		out[k] = c
	}
	return out, nil
}

// ReplaceAll swaps the entire key space in one step.
func (m *MemStore) ReplaceAll(_ context.Context, entries map[string][]byte) error {
	next := make(map[string][]byte, len(entries))
	for k, v := range entries {
		c := make([]byte, len(v))
		copy(c, v)
		next[k] = c
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = next
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
