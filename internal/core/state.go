// Package core implements the transfer state machine and the background
// streaming loop.
package core

import (
	"sync"
	"time"

	"github.com/jwcomptech/gofetch/pkg/types"
	"github.com/jwcomptech/gofetch/pkg/validation"
)

// State is the mutex-guarded state cell shared between the caller's
// goroutine and the background streamer. Status writes from Pause and Cancel
// are fire-and-forget; the streamer observes them once per chunk.
//
// Every BeginDownload/BeginResume opens a new attempt and bumps the attempt
// counter. A streamer carries the attempt it was spawned for, and all of its
// writes are attempt-guarded: a stale streamer that wakes from a blocked read
// after a newer attempt has started cannot advance the new counters, mark the
// new attempt complete, or fail it.
type State struct {
	mu sync.Mutex

	url            string
	destinationDir string

	filename string
	filepath string

	totalSize        int64
	bytesTransferred int64

	status       types.Status
	errorMessage string
	startedAt    time.Time

	attempt uint64
}

// NewState creates the state cell for one transfer. The destination directory
// is stored without a trailing separator.
func NewState(url, destinationDir string) *State {
	return &State{
		url:            url,
		destinationDir: validation.NormalizeDestinationDir(destinationDir),
		totalSize:      types.UnknownSize,
		status:         types.StatusIdle,
	}
}

// URL returns the immutable transfer URL.
func (s *State) URL() string {
	return s.url
}

// DestinationDir returns the normalized destination directory.
func (s *State) DestinationDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.destinationDir
}

// BeginDownload moves the transfer into StatusDownloading for a fresh
// attempt, resetting the counters to (unknown, 0) and clearing the derived
// file fields and the error message. Returns false without touching anything
// when a streamer is already running.
func (s *State) BeginDownload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == types.StatusDownloading {
		return false
	}

	s.totalSize = types.UnknownSize
	s.bytesTransferred = 0
	s.filename = ""
	s.filepath = ""
	s.errorMessage = ""
	s.status = types.StatusDownloading
	s.startedAt = time.Now()
	s.attempt++

	return true
}

// BeginResume moves the transfer back into StatusDownloading without
// resetting any counters; the next negotiation's Range offset is the current
// bytesTransferred. Returns false when a streamer is already running.
//
// No other precondition is enforced: resuming a cancelled or failed transfer
// is not rejected, it simply continues from whatever the counters hold.
func (s *State) BeginResume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == types.StatusDownloading {
		return false
	}

	s.status = types.StatusDownloading
	s.startedAt = time.Now()
	s.attempt++

	return true
}

// Attempt returns the current attempt number. Each successful BeginDownload
// or BeginResume opens a new attempt.
func (s *State) Attempt() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.attempt
}

// ActiveAttempt reports whether the given attempt is still the current one
// and the transfer is still downloading. This is the streamer's loop
// condition; it goes false on pause, cancel, failure, or when a newer
// attempt has superseded the streamer.
func (s *State) ActiveAttempt(attempt uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status == types.StatusDownloading && s.attempt == attempt
}

// Pause requests a pause. Unconditional; the streamer observes the change at
// its next chunk boundary.
func (s *State) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = types.StatusPaused
}

// Cancel requests a cancel. Unconditional and terminal for this attempt.
func (s *State) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = types.StatusCancelled
}

// CompleteAttempt marks the transfer complete, but only if the given attempt
// is still current and still downloading. A pause or cancel that won the
// race is preserved, and a stale streamer cannot complete a newer attempt.
func (s *State) CompleteAttempt(attempt uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == types.StatusDownloading && s.attempt == attempt {
		s.status = types.StatusComplete
	}
}

// Fail records a failure message and moves the transfer to StatusError.
// Unconditional; used by the synchronous fetch path.
func (s *State) Fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = types.StatusError
	s.errorMessage = message
}

// FailAttempt records a failure for the given attempt. Ignored when a newer
// attempt has superseded the caller.
func (s *State) FailAttempt(attempt uint64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempt != attempt {
		return
	}

	s.status = types.StatusError
	s.errorMessage = message
}

// Status returns the current lifecycle state.
func (s *State) Status() types.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

// Counters returns bytesTransferred and totalSize as one consistent pair.
func (s *State) Counters() (bytesTransferred, totalSize int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.bytesTransferred, s.totalSize
}

// BytesTransferred returns the bytes on disk so far.
func (s *State) BytesTransferred() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.bytesTransferred
}

// TotalSize returns the negotiated size, or types.UnknownSize.
func (s *State) TotalSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.totalSize
}

// AddBytes advances the transferred counter after a successful write.
// Ignored when the attempt is no longer current, so a stale streamer cannot
// pollute a fresh attempt's counters.
func (s *State) AddBytes(attempt uint64, n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempt != attempt {
		return
	}

	s.bytesTransferred += n
}

// SetTotalSizeOnce records the negotiated content length. It only takes
// effect while the size is still unknown and the attempt is current, so a
// resumed negotiation that reports the remaining length cannot shrink an
// already known total, and a stale streamer cannot size a newer attempt.
func (s *State) SetTotalSizeOnce(attempt uint64, size int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempt != attempt || s.totalSize != types.UnknownSize {
		return false
	}

	s.totalSize = size

	return true
}

// SetFileOnce records the derived filename and filepath. They are assigned
// at most once per attempt; BeginDownload clears them for the next attempt.
func (s *State) SetFileOnce(attempt uint64, filename, filepath string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempt != attempt || s.filepath != "" {
		return
	}

	s.filename = filename
	s.filepath = filepath
}

// Filepath returns the destination path, or "" before the first negotiation.
func (s *State) Filepath() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filepath
}

// Filename returns the derived filename, or "" before the first negotiation.
func (s *State) Filename() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filename
}

// ErrorMessage returns the last recorded failure text.
func (s *State) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.errorMessage
}

// Snapshot returns a consistent copy of the observable state.
func (s *State) Snapshot() types.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return types.Snapshot{
		URL:              s.url,
		Filename:         s.filename,
		Filepath:         s.filepath,
		TotalSize:        s.totalSize,
		BytesTransferred: s.bytesTransferred,
		Status:           s.status,
		ErrorMessage:     s.errorMessage,
		StartedAt:        s.startedAt,
	}
}
