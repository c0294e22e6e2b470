package backends

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jwcomptech/gofetch/pkg/storage"
)

// FilesystemBackend caches values as files under a base directory. Keys are
// hashed so arbitrary URLs map to safe filenames. Expiry is kept in a sidecar
// file next to each entry and enforced lazily on access.
type FilesystemBackend struct {
	baseDir string
}

// NewFilesystemBackend creates a backend rooted at baseDir, creating the
// directory if needed.
func NewFilesystemBackend(baseDir string) (*FilesystemBackend, error) {
	if baseDir == "" {
		return nil, storage.ErrInvalidConfig
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}

	return &FilesystemBackend{baseDir: baseDir}, nil
}

func (b *FilesystemBackend) entryPath(key string) string {
	sum := sha256.Sum256([]byte(key))

	return filepath.Join(b.baseDir, hex.EncodeToString(sum[:]))
}

func (b *FilesystemBackend) expiryPath(key string) string {
	return b.entryPath(key) + ".expires"
}

// expired reports whether the entry for key has an expiry sidecar in the
// past. A missing or unreadable sidecar means no expiry.
func (b *FilesystemBackend) expired(key string) bool {
	raw, err := os.ReadFile(b.expiryPath(key))
	if err != nil {
		return false
	}

	expiresAt, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return false
	}

	return time.Now().UnixNano() > expiresAt
}

// Get retrieves the cached value for key.
func (b *FilesystemBackend) Get(_ context.Context, key string) ([]byte, error) {
	if b.expired(key) {
		_ = b.remove(key)

		return nil, storage.ErrKeyNotFound
	}

	value, err := os.ReadFile(b.entryPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrKeyNotFound
		}

		return nil, err
	}

	return value, nil
}

// Set stores value under key.
func (b *FilesystemBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := os.WriteFile(b.entryPath(key), value, 0o644); err != nil {
		return err
	}

	if ttl > 0 {
		expiresAt := time.Now().Add(ttl).UnixNano()

		return os.WriteFile(b.expiryPath(key), []byte(strconv.FormatInt(expiresAt, 10)), 0o644)
	}

	// A re-set without ttl clears any stale expiry.
	_ = os.Remove(b.expiryPath(key))

	return nil
}

// Delete removes the entry for key.
func (b *FilesystemBackend) Delete(_ context.Context, key string) error {
	return b.remove(key)
}

func (b *FilesystemBackend) remove(key string) error {
	err := os.Remove(b.entryPath(key))
	_ = os.Remove(b.expiryPath(key))

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}

// Exists reports whether a live entry exists for key.
func (b *FilesystemBackend) Exists(_ context.Context, key string) (bool, error) {
	if b.expired(key) {
		return false, nil
	}

	_, err := os.Stat(b.entryPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// Close is a no-op for the filesystem backend.
func (b *FilesystemBackend) Close() error {
	return nil
}
