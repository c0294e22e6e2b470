package core

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jwcomptech/gofetch/internal/negotiate"
	"github.com/jwcomptech/gofetch/pkg/progress"
	"github.com/jwcomptech/gofetch/pkg/protocols"
	"github.com/jwcomptech/gofetch/pkg/types"
)

// newRangeServer serves content honoring "Range: bytes=N-" requests and
// records every Range header it sees.
func newRangeServer(content []byte, gotRanges *[]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rangeHeader := r.Header.Get("Range")
		if gotRanges != nil {
			*gotRanges = append(*gotRanges, rangeHeader)
		}

		var offset int64
		if rangeHeader != "" {
			_, _ = fmt.Sscanf(rangeHeader, "bytes=%d-", &offset)
		}

		if offset > int64(len(content)) {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)

			return
		}

		remaining := content[offset:]
		w.Header().Set("Content-Length", strconv.Itoa(len(remaining)))

		if offset > 0 {
			w.Header().Set("Content-Range",
				fmt.Sprintf("bytes %d-%d/%d", offset, len(content)-1, len(content)))
			w.WriteHeader(http.StatusPartialContent)
		}

		_, _ = w.Write(remaining)
	}))
}

func newTestRegistry() *protocols.Registry {
	return protocols.NewRegistry(negotiate.New())
}

func makeContent(n int) []byte {
	content := make([]byte, n)
	for i := range content {
		content[i] = byte(i % 251)
	}

	return content
}

// A 1000-byte resource with the default 1024-byte chunk completes in a
// single iteration.
func TestStreamerCompletesSmallFile(t *testing.T) {
	content := makeContent(1000)
	server := newRangeServer(content, nil)
	defer server.Close()

	destDir := t.TempDir()
	state := NewState(server.URL+"/file.bin", destDir)
	state.BeginDownload()

	streamer := NewStreamer(StreamerConfig{
		State:    state,
		Registry: newTestRegistry(),
	})
	streamer.Run(context.Background(), state.Attempt())

	if state.Status() != types.StatusComplete {
		t.Fatalf("status = %v (%s), want complete", state.Status(), state.ErrorMessage())
	}

	bytesTransferred, totalSize := state.Counters()
	if bytesTransferred != 1000 || totalSize != 1000 {
		t.Errorf("counters = (%d, %d), want (1000, 1000)", bytesTransferred, totalSize)
	}

	written, err := os.ReadFile(filepath.Join(destDir, "file.bin"))
	if err != nil {
		t.Fatalf("reading destination file: %v", err)
	}

	if !bytes.Equal(written, content) {
		t.Error("destination file content differs from served content")
	}
}

// Pause after exactly 400 bytes, then resume: the second negotiation must
// request bytes=400- and the final file must be byte-identical with no
// duplicated or missing ranges.
func TestStreamerPauseResume(t *testing.T) {
	content := makeContent(1000)

	var gotRanges []string

	server := newRangeServer(content, &gotRanges)
	defer server.Close()

	destDir := t.TempDir()
	state := NewState(server.URL+"/file.bin", destDir)
	state.BeginDownload()

	// The progress callback fires synchronously after each chunk, so with a
	// 100-byte chunk the pause lands at exactly 400 bytes.
	pausing := NewStreamer(StreamerConfig{
		State:     state,
		Registry:  newTestRegistry(),
		ChunkSize: 100,
		Tracker: progress.NewTracker(func(bytesTransferred, _, _ int64) {
			if bytesTransferred >= 400 {
				state.Pause()
			}
		}),
	})
	pausing.Run(context.Background(), state.Attempt())

	if state.Status() != types.StatusPaused {
		t.Fatalf("status after pause = %v, want paused", state.Status())
	}

	pausedAt := state.BytesTransferred()
	if pausedAt < 400 || pausedAt >= 1000 {
		t.Fatalf("bytesTransferred after pause = %d, want partial progress past 400", pausedAt)
	}

	if !state.BeginResume() {
		t.Fatal("BeginResume() = false")
	}

	resuming := NewStreamer(StreamerConfig{
		State:     state,
		Registry:  newTestRegistry(),
		ChunkSize: 100,
	})
	resuming.Run(context.Background(), state.Attempt())

	if state.Status() != types.StatusComplete {
		t.Fatalf("status after resume = %v (%s), want complete", state.Status(), state.ErrorMessage())
	}

	wantResumeRange := fmt.Sprintf("bytes=%d-", pausedAt)
	if len(gotRanges) != 2 || gotRanges[0] != "bytes=0-" || gotRanges[1] != wantResumeRange {
		t.Errorf("ranges = %v, want [bytes=0- %s]", gotRanges, wantResumeRange)
	}

	written, err := os.ReadFile(filepath.Join(destDir, "file.bin"))
	if err != nil {
		t.Fatalf("reading destination file: %v", err)
	}

	if !bytes.Equal(written, content) {
		t.Error("resumed file differs from served content")
	}
}

// A declared content length of zero fails the attempt before any file is
// created.
func TestStreamerInvalidContentLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	destDir := t.TempDir()
	state := NewState(server.URL+"/file.bin", destDir)
	state.BeginDownload()

	streamer := NewStreamer(StreamerConfig{
		State:    state,
		Registry: newTestRegistry(),
	})
	streamer.Run(context.Background(), state.Attempt())

	if state.Status() != types.StatusError {
		t.Fatalf("status = %v, want error", state.Status())
	}

	if state.ErrorMessage() != "Invalid Content Length!" {
		t.Errorf("errorMessage = %q, want %q", state.ErrorMessage(), "Invalid Content Length!")
	}

	entries, err := os.ReadDir(destDir)
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 0 {
		t.Errorf("destination dir has %d entries, want none", len(entries))
	}
}

func TestStreamerClassifiedFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	destDir := t.TempDir()
	state := NewState(server.URL+"/missing.bin", destDir)
	state.BeginDownload()

	streamer := NewStreamer(StreamerConfig{
		State:    state,
		Registry: newTestRegistry(),
	})
	streamer.Run(context.Background(), state.Attempt())

	if state.Status() != types.StatusError {
		t.Fatalf("status = %v, want error", state.Status())
	}

	if state.ErrorMessage() != "Not Found!" {
		t.Errorf("errorMessage = %q, want %q", state.ErrorMessage(), "Not Found!")
	}

	entries, err := os.ReadDir(destDir)
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 0 {
		t.Errorf("destination dir has %d entries, want none", len(entries))
	}
}

func TestStreamerTransportFailure(t *testing.T) {
	state := NewState("http://127.0.0.1:1/unreachable.bin", t.TempDir())
	state.BeginDownload()

	streamer := NewStreamer(StreamerConfig{
		State:    state,
		Registry: newTestRegistry(),
	})
	streamer.Run(context.Background(), state.Attempt())

	if state.Status() != types.StatusError {
		t.Fatalf("status = %v, want error", state.Status())
	}

	if state.ErrorMessage() == "" {
		t.Error("errorMessage is empty, want transport error text")
	}
}

// Progress samples during an uninterrupted download are non-decreasing and
// stay within [0, 100].
func TestStreamerProgressMonotonic(t *testing.T) {
	content := makeContent(5000)
	server := newRangeServer(content, nil)
	defer server.Close()

	destDir := t.TempDir()
	state := NewState(server.URL+"/file.bin", destDir)
	state.BeginDownload()

	var samples []float64

	streamer := NewStreamer(StreamerConfig{
		State:     state,
		Registry:  newTestRegistry(),
		ChunkSize: 512,
		Tracker: progress.NewTracker(func(bytesTransferred, totalSize, _ int64) {
			samples = append(samples, progress.Percentage(bytesTransferred, totalSize))
		}),
	})
	streamer.Run(context.Background(), state.Attempt())

	if state.Status() != types.StatusComplete {
		t.Fatalf("status = %v, want complete", state.Status())
	}

	previous := float64(0)
	for i, sample := range samples {
		if sample < previous {
			t.Errorf("sample %d = %v decreased from %v", i, sample, previous)
		}

		if sample < 0 || sample > 100 {
			t.Errorf("sample %d = %v out of [0, 100]", i, sample)
		}

		previous = sample
	}

	if len(samples) == 0 || samples[len(samples)-1] != 100 {
		t.Errorf("final sample = %v, want 100", samples)
	}
}

// A resume when every byte is already on disk negotiates a remaining length
// of zero and completes cleanly without writing.
func TestStreamerResumeFullyReceived(t *testing.T) {
	content := makeContent(1000)
	server := newRangeServer(content, nil)
	defer server.Close()

	destDir := t.TempDir()
	state := NewState(server.URL+"/file.bin", destDir)
	state.BeginDownload()

	first := NewStreamer(StreamerConfig{
		State:    state,
		Registry: newTestRegistry(),
	})
	first.Run(context.Background(), state.Attempt())

	if state.Status() != types.StatusComplete {
		t.Fatalf("status = %v, want complete", state.Status())
	}

	state.BeginResume()

	second := NewStreamer(StreamerConfig{
		State:    state,
		Registry: newTestRegistry(),
	})
	second.Run(context.Background(), state.Attempt())

	if state.Status() != types.StatusComplete {
		t.Fatalf("status after redundant resume = %v (%s), want complete",
			state.Status(), state.ErrorMessage())
	}

	if got := state.BytesTransferred(); got != 1000 {
		t.Errorf("bytesTransferred = %d, want 1000 unchanged", got)
	}
}
