// Package types defines the core types shared by the gofetch transfer library.
package types

import "time"

// Status represents the lifecycle state of a transfer.
type Status int32

const (
	// StatusIdle means the transfer has been created but never started.
	StatusIdle Status = iota

	// StatusDownloading means the background streamer is active.
	StatusDownloading

	// StatusPaused means a pause was requested. The streamer observes the
	// change at its next chunk boundary and exits, keeping the counters.
	StatusPaused

	// StatusCancelled means a cancel was requested. Terminal for the current
	// attempt; a fresh Start resets the counters and begins over.
	StatusCancelled

	// StatusComplete means the stream reached end-of-file while still
	// downloading. All bytes are on disk.
	StatusComplete

	// StatusError means negotiation, classification, or streaming failed.
	// The failure text is recorded as the transfer's error message.
	StatusError
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusDownloading:
		return "downloading"
	case StatusPaused:
		return "paused"
	case StatusCancelled:
		return "cancelled"
	case StatusComplete:
		return "complete"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// UnknownSize is the totalSize value of a transfer whose content length has
// not been negotiated yet.
const UnknownSize int64 = -1

// Snapshot is a point-in-time copy of a transfer's observable state.
// All fields are plain values so a Snapshot never races with the streamer.
type Snapshot struct {
	// URL is the immutable source of the transfer.
	URL string

	// Filename is the last path segment of the URL, set once the first
	// negotiation succeeds.
	Filename string

	// Filepath is the destination path the streamer writes to.
	Filepath string

	// TotalSize is the negotiated full size in bytes, or UnknownSize.
	TotalSize int64

	// BytesTransferred is how many bytes are on disk so far.
	BytesTransferred int64

	// Status is the lifecycle state at the time of the snapshot.
	Status Status

	// ErrorMessage is the last classified failure text. Meaningful only
	// when Status is StatusError.
	ErrorMessage string

	// StartedAt is when the current attempt entered StatusDownloading.
	StartedAt time.Time
}
