// Package cache stores weekly report entries keyed by namespace and key.
//
// It is plain memoization with manual invalidation: entries never expire and there
// is no eviction. Values are stored JSON encoded so every backend behaves the same
// way, including the copy semantics of a read.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// GlobalScope is the namespace suffix used for the administrator view
const GlobalScope = "global"

// Cache is a namespaced key/value store for report entries.
// Get decodes the stored value into dest and reports whether the key existed.
// Delete of a missing key is a no-op.
type Cache interface {
	Get(ctx context.Context, namespace, key string, dest any) (bool, error)
	Set(ctx context.Context, namespace, key string, value any) error
	Delete(ctx context.Context, namespace, key string) error
}

// Namespace returns the cache namespace for an employee's weekly report
func Namespace(employeeID string) string {
	return "timesheet:" + employeeID
}

// Memory is a process-local Cache
type Memory struct {
	mu      sync.RWMutex
	entries map[string]map[string][]byte
}

// NewMemory creates an empty in-memory cache
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]map[string][]byte)}
}

// Get implements Cache
func (m *Memory) Get(_ context.Context, namespace, key string, dest any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.entries[namespace][key]
	m.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cache entry %s/%s: %w", namespace, key, err)
	}
	return true, nil
}

// Set implements Cache
func (m *Memory) Set(_ context.Context, namespace, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %s/%s: %w", namespace, key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.entries[namespace]
	if !ok {
		ns = make(map[string][]byte)
		m.entries[namespace] = ns
	}
	ns[key] = raw
	return nil
}

// Delete implements Cache
func (m *Memory) Delete(_ context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ns, ok := m.entries[namespace]; ok {
		delete(ns, key)
		if len(ns) == 0 {
			delete(m.entries, namespace)
		}
	}
	return nil
}

// Len returns the number of entries in a namespace
func (m *Memory) Len(namespace string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries[namespace])
}
