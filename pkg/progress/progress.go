// Package progress derives human-facing progress figures from a transfer's
// byte counters.
package progress

import (
	"sync"
	"time"
)

// Percentage converts the counters to a completion percentage.
// An unnegotiated total (-1) or a zero total would produce NaN or a division
// by zero; both are reported as 0. The result is clamped to [0, 100].
func Percentage(bytesTransferred, totalSize int64) float64 {
	if totalSize <= 0 {
		return 0
	}

	percent := float64(bytesTransferred) / float64(totalSize) * 100

	if percent < 0 {
		return 0
	}

	if percent > 100 {
		return 100
	}

	return percent
}

// Callback receives progress updates from the streaming loop. Speed is in
// bytes per second, averaged over the whole attempt.
type Callback func(bytesTransferred, totalSize int64, speed int64)

// Tracker accumulates timing information across one transfer attempt and
// forwards per-chunk updates to an optional callback.
type Tracker struct {
	mu        sync.Mutex
	startTime time.Time
	callback  Callback
}

// NewTracker creates a Tracker. The callback may be nil.
func NewTracker(callback Callback) *Tracker {
	return &Tracker{callback: callback}
}

// Start marks the beginning of an attempt. Called once per Start/Resume.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = time.Now()
}

// Update reports the counters after a chunk has been written.
func (t *Tracker) Update(bytesTransferred, totalSize int64) {
	t.mu.Lock()
	callback := t.callback
	speed := t.speedLocked(bytesTransferred)
	t.mu.Unlock()

	if callback != nil {
		callback(bytesTransferred, totalSize, speed)
	}
}

// speedLocked computes the average transfer speed in bytes per second.
// Caller must hold t.mu.
func (t *Tracker) speedLocked(bytesTransferred int64) int64 {
	if t.startTime.IsZero() {
		return 0
	}

	elapsed := time.Since(t.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}

	return int64(float64(bytesTransferred) / elapsed)
}
