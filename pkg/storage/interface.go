// Package storage defines the response-cache abstraction used by the
// single-shot fetch operations, with pluggable backends.
package storage

import (
	"context"
	"time"
)

// Backend stores fetched response bodies keyed by URL.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Get retrieves the cached value for key. Returns ErrKeyNotFound when
	// the key is absent or its entry has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A zero ttl means the entry never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the entry for key. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a live entry exists for key.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Manager manages multiple named cache backends.
type Manager struct {
	backends    map[string]Backend
	defaultName string
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		backends: make(map[string]Backend),
	}
}

// Register registers a backend under a name. The first registered backend
// becomes the default.
func (m *Manager) Register(name string, backend Backend) {
	m.backends[name] = backend

	if m.defaultName == "" {
		m.defaultName = name
	}
}

// SetDefault selects the default backend by name.
func (m *Manager) SetDefault(name string) error {
	if _, exists := m.backends[name]; !exists {
		return ErrBackendNotFound
	}

	m.defaultName = name

	return nil
}

// Backend returns a backend by name.
func (m *Manager) Backend(name string) (Backend, error) {
	backend, exists := m.backends[name]
	if !exists {
		return nil, ErrBackendNotFound
	}

	return backend, nil
}

// Default returns the default backend.
func (m *Manager) Default() (Backend, error) {
	if m.defaultName == "" {
		return nil, ErrNoDefaultBackend
	}

	return m.backends[m.defaultName], nil
}

// Close closes every registered backend, returning the first error seen.
func (m *Manager) Close() error {
	var firstErr error

	for _, backend := range m.backends {
		if err := backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
