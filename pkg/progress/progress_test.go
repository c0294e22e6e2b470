package progress

import (
	"sync"
	"testing"

	"github.com/jwcomptech/gofetch/pkg/types"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		name        string
		transferred int64
		total       int64
		want        float64
	}{
		{"halfway", 500, 1000, 50},
		{"complete", 1000, 1000, 100},
		{"nothing yet", 0, 1000, 0},
		{"unknown total", 0, types.UnknownSize, 0},
		{"unknown total with bytes", 400, types.UnknownSize, 0},
		{"zero total", 0, 0, 0},
		{"overshoot clamped", 1100, 1000, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percentage(tt.transferred, tt.total); got != tt.want {
				t.Errorf("Percentage(%d, %d) = %v, want %v", tt.transferred, tt.total, got, tt.want)
			}
		})
	}
}

func TestTrackerCallback(t *testing.T) {
	var (
		mu      sync.Mutex
		samples []int64
	)

	tracker := NewTracker(func(bytesTransferred, totalSize, speed int64) {
		mu.Lock()
		samples = append(samples, bytesTransferred)
		mu.Unlock()

		if totalSize != 1000 {
			t.Errorf("totalSize = %d, want 1000", totalSize)
		}

		if speed < 0 {
			t.Errorf("speed = %d, want >= 0", speed)
		}
	})

	tracker.Start()
	tracker.Update(400, 1000)
	tracker.Update(1000, 1000)

	mu.Lock()
	defer mu.Unlock()

	if len(samples) != 2 || samples[0] != 400 || samples[1] != 1000 {
		t.Errorf("samples = %v, want [400 1000]", samples)
	}
}

func TestTrackerNilCallback(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Start()
	tracker.Update(10, 100) // must not panic
}
