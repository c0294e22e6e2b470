//go:build windows

package storage

import "golang.org/x/sys/windows"

// statSpace reads volume statistics via GetDiskFreeSpaceEx.
func statSpace(path string) (*SpaceInfo, error) {
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}

	var freeBytesAvailable, totalBytes, totalFreeBytes uint64
	if err := windows.GetDiskFreeSpaceEx(pathPtr, &freeBytesAvailable, &totalBytes, &totalFreeBytes); err != nil {
		return nil, err
	}

	return &SpaceInfo{
		TotalBytes:     totalBytes,
		FreeBytes:      totalFreeBytes,
		AvailableBytes: freeBytesAvailable,
		Path:           path,
	}, nil
}
