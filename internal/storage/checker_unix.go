//go:build !windows

package storage

import "syscall"

// statSpace reads volume statistics via statfs.
func statSpace(path string) (*SpaceInfo, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return nil, err
	}

	blockSize := uint64(stat.Bsize)

	return &SpaceInfo{
		TotalBytes:     stat.Blocks * blockSize,
		FreeBytes:      stat.Bfree * blockSize,
		AvailableBytes: stat.Bavail * blockSize,
		Path:           path,
	}, nil
}
