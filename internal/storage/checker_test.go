package storage

import (
	"errors"
	"path/filepath"
	"testing"

	gferrors "github.com/jwcomptech/gofetch/pkg/errors"
)

func TestCheckSpaceSmallRequirement(t *testing.T) {
	checker := NewSpaceChecker()

	if err := checker.CheckSpace(t.TempDir(), 1024); err != nil {
		t.Errorf("CheckSpace(1KB) = %v, want nil", err)
	}
}

func TestCheckSpaceZeroOrNegative(t *testing.T) {
	checker := NewSpaceChecker()

	if err := checker.CheckSpace(t.TempDir(), 0); err != nil {
		t.Errorf("CheckSpace(0) = %v, want nil", err)
	}

	if err := checker.CheckSpace(t.TempDir(), -1); err != nil {
		t.Errorf("CheckSpace(-1) = %v, want nil", err)
	}
}

func TestCheckSpaceImpossibleRequirement(t *testing.T) {
	checker := NewSpaceChecker()

	// One exabyte should exceed any test machine's free space.
	err := checker.CheckSpace(t.TempDir(), 1<<60)
	if !errors.Is(err, gferrors.ErrInsufficientSpace) {
		t.Errorf("CheckSpace(1EB) = %v, want ErrInsufficientSpace", err)
	}
}

func TestCheckSpaceNonexistentPath(t *testing.T) {
	checker := NewSpaceChecker()

	// The destination file does not exist yet; the nearest existing ancestor
	// is measured instead.
	target := filepath.Join(t.TempDir(), "sub", "dir", "file.bin")

	if err := checker.CheckSpace(target, 1024); err != nil {
		t.Errorf("CheckSpace(nonexistent) = %v, want nil", err)
	}
}

func TestGetSpaceInfo(t *testing.T) {
	checker := NewSpaceChecker()

	info, err := checker.GetSpaceInfo(t.TempDir())
	if err != nil {
		t.Fatalf("GetSpaceInfo: %v", err)
	}

	if info.TotalBytes == 0 {
		t.Error("TotalBytes = 0")
	}

	if info.AvailableBytes > info.TotalBytes {
		t.Errorf("AvailableBytes %d > TotalBytes %d", info.AvailableBytes, info.TotalBytes)
	}
}
