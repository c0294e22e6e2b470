// Package storage provides the disk-space preflight used before a transfer
// opens its destination file.
package storage

import (
	"os"
	"path/filepath"

	gferrors "github.com/jwcomptech/gofetch/pkg/errors"
)

// SpaceInfo represents disk space information for a path.
type SpaceInfo struct {
	TotalBytes     uint64
	FreeBytes      uint64
	AvailableBytes uint64 // available to non-privileged users
	Path           string
}

// SpaceChecker checks available disk space before writes.
type SpaceChecker struct {
	// SafetyMargin is extra headroom required beyond the bytes to write.
	SafetyMargin uint64
}

// DefaultSafetyMargin keeps a little room so a transfer never fills the
// volume to the last byte.
const DefaultSafetyMargin = 10 * 1024 * 1024

// NewSpaceChecker creates a SpaceChecker with the default safety margin.
func NewSpaceChecker() *SpaceChecker {
	return &SpaceChecker{SafetyMargin: DefaultSafetyMargin}
}

// CheckSpace verifies that the volume holding path has room for the given
// number of bytes. The path itself does not need to exist; the nearest
// existing ancestor directory is measured.
func (c *SpaceChecker) CheckSpace(path string, requiredBytes int64) error {
	if requiredBytes <= 0 {
		return nil
	}

	info, err := c.GetSpaceInfo(path)
	if err != nil {
		return gferrors.Wrap(err, gferrors.CodeStorageError,
			"failed to determine available disk space")
	}

	needed := uint64(requiredBytes) + c.SafetyMargin
	if info.AvailableBytes < needed {
		return gferrors.Wrap(gferrors.ErrInsufficientSpace,
			gferrors.CodeInsufficientSpace, "insufficient disk space")
	}

	return nil
}

// GetSpaceInfo returns space information for the volume holding path.
func (c *SpaceChecker) GetSpaceInfo(path string) (*SpaceInfo, error) {
	measured := existingAncestor(path)

	return statSpace(measured)
}

// existingAncestor walks up from path to the nearest directory that exists.
func existingAncestor(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(path)
		if parent == path {
			return path
		}

		path = parent
	}
}
