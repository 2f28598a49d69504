// Package cache stores rendered include output keyed by a caller-chosen
// cache key. A miss is reported with ok == false and a nil error, so a
// cached empty string is distinguishable from an absent entry.
package cache

import (
	"fmt"
	"sync"
)

// Store is a key/value store for rendered content. Implementations are
// safe for concurrent use; the last writer wins.
type Store interface {
	Get(key string) (content string, ok bool, err error)
	Set(key, content string) error
}

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemory returns an empty memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *Memory) Set(key, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = content
	return nil
}

// Len returns the number of cached entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Open returns the store named by driver: "memory" (or ""), "file" with
// path as the cache directory, or "sqlite" with path as the database.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "file":
		return NewFile(path)
	case "sqlite":
		return OpenSQLite(path)
	}
	return nil, fmt.Errorf("cache: unknown driver %q", driver)
}
