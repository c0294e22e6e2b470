package backends

import (
	"context"
	"sync"
	"time"

	"github.com/jwcomptech/gofetch/pkg/storage"
)

// MemoryBackend is an in-process cache backend. Entries expire lazily on
// access.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired() bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
	}
}

// Get retrieves the cached value for key.
func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	entry, exists := b.entries[key]
	b.mu.RUnlock()

	if !exists || entry.expired() {
		return nil, storage.ErrKeyNotFound
	}

	value := make([]byte, len(entry.value))
	copy(value, entry.value)

	return value, nil
}

// Set stores value under key.
func (b *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	entry := memoryEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	b.mu.Lock()
	b.entries[key] = entry
	b.mu.Unlock()

	return nil
}

// Delete removes the entry for key.
func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.entries, key)
	b.mu.Unlock()

	return nil
}

// Exists reports whether a live entry exists for key.
func (b *MemoryBackend) Exists(_ context.Context, key string) (bool, error) {
	b.mu.RLock()
	entry, exists := b.entries[key]
	b.mu.RUnlock()

	return exists && !entry.expired(), nil
}

// Close clears the cache.
func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	b.entries = make(map[string]memoryEntry)
	b.mu.Unlock()

	return nil
}
