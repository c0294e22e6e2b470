package core

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/jwcomptech/gofetch/internal/classify"
	"github.com/jwcomptech/gofetch/internal/storage"
	gferrors "github.com/jwcomptech/gofetch/pkg/errors"
	"github.com/jwcomptech/gofetch/pkg/progress"
	"github.com/jwcomptech/gofetch/pkg/protocols"
	"github.com/jwcomptech/gofetch/pkg/types"
	"github.com/jwcomptech/gofetch/pkg/validation"
)

// DefaultChunkSize is the per-iteration buffer size when the caller
// configures none.
const DefaultChunkSize int64 = 1024

// Streamer moves bytes from a negotiated connection into the destination
// file, governed by the shared State. It never returns an error; every
// failure terminates in StatusError with a recorded message.
type Streamer struct {
	state         *State
	registry      *protocols.Registry
	spaceChecker  *storage.SpaceChecker
	tracker       *progress.Tracker
	chunkSize     int64
	apiMode       bool
	logger        *log.Logger
	enableLogging bool
}

// StreamerConfig collects the streamer's collaborators and tuning knobs.
type StreamerConfig struct {
	State        *State
	Registry     *protocols.Registry
	SpaceChecker *storage.SpaceChecker
	Tracker      *progress.Tracker

	// ChunkSize bounds each read. Zero selects DefaultChunkSize.
	ChunkSize int64

	// APIMode selects GitHub-style classification of error responses.
	APIMode bool

	Logger        *log.Logger
	EnableLogging bool
}

// NewStreamer creates a streamer bound to one transfer's state cell.
func NewStreamer(config StreamerConfig) *Streamer {
	chunkSize := config.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	spaceChecker := config.SpaceChecker
	if spaceChecker == nil {
		spaceChecker = storage.NewSpaceChecker()
	}

	tracker := config.Tracker
	if tracker == nil {
		tracker = progress.NewTracker(nil)
	}

	return &Streamer{
		state:         config.State,
		registry:      config.Registry,
		spaceChecker:  spaceChecker,
		tracker:       tracker,
		chunkSize:     chunkSize,
		apiMode:       config.APIMode,
		logger:        config.Logger,
		enableLogging: config.EnableLogging,
	}
}

// Run executes one attempt: negotiate, classify, preflight, then stream until
// end-of-file or until the status leaves StatusDownloading. Pause and cancel
// are observed once per chunk, so at most one extra chunk may land after the
// request returns.
//
// attempt is the attempt number the streamer was spawned for (State.Attempt
// at spawn time). Every state write below is guarded by it, so a streamer
// that outlives its attempt exits without touching the successor's state.
func (s *Streamer) Run(ctx context.Context, attempt uint64) {
	s.tracker.Start()

	offset := s.state.BytesTransferred()

	s.logInfo("negotiate", "opening connection", map[string]interface{}{
		"url":    s.state.URL(),
		"offset": offset,
	})

	conn, err := s.registry.Open(ctx, s.state.URL(), offset)
	if err != nil {
		s.fail(attempt, "negotiate", err)

		return
	}

	defer func() {
		_ = conn.Body.Close()
	}()

	outcome := classify.Classify(conn.StatusCode, s.apiMode, conn.Body)
	if !outcome.IsSuccess() {
		s.fail(attempt, "classify", outcome.Err)

		return
	}

	// The declared length is validated on the first negotiation only. A
	// resumed negotiation reports just the remaining bytes, and a fully
	// received resume legitimately reports zero.
	if s.state.TotalSize() == types.UnknownSize {
		if err := validation.ValidateContentLength(conn.ContentLength); err != nil {
			s.fail(attempt, "negotiate", gferrors.NewWithDetails(
				gferrors.CodeInvalidContentLength, "Invalid Content Length!", err.Error()))

			return
		}

		s.state.SetTotalSizeOnce(attempt, conn.ContentLength)
	}

	if err := s.ensureFile(attempt); err != nil {
		s.fail(attempt, "negotiate", err)

		return
	}

	bytesTransferred, totalSize := s.state.Counters()

	if err := s.spaceChecker.CheckSpace(s.state.Filepath(), totalSize-bytesTransferred); err != nil {
		s.fail(attempt, "preflight", err)

		return
	}

	if err := s.stream(attempt, conn.Body); err != nil {
		s.fail(attempt, "stream", err)

		return
	}

	// Only an end-of-stream exit while the attempt is still current and
	// downloading completes the transfer; a pause, cancel, or newer attempt
	// that stopped the loop is preserved.
	s.state.CompleteAttempt(attempt)

	s.logInfo("stream", "attempt finished", map[string]interface{}{
		"status":            s.state.Status().String(),
		"bytes_transferred": s.state.BytesTransferred(),
	})
}

// ensureFile derives filename and filepath from the URL on the first
// negotiation of an attempt.
func (s *Streamer) ensureFile(attempt uint64) error {
	if s.state.Filepath() != "" {
		return nil
	}

	filename, err := validation.FilenameFromURL(s.state.URL())
	if err != nil {
		return gferrors.Wrap(err, gferrors.CodeInvalidDestination,
			"cannot derive filename from URL")
	}

	s.state.SetFileOnce(attempt, filename, filepath.Join(s.state.DestinationDir(), filename))

	return nil
}

// stream runs the chunk loop against an open body.
func (s *Streamer) stream(attempt uint64, body io.Reader) error {
	file, err := os.OpenFile(s.state.Filepath(), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return gferrors.Wrap(err, gferrors.CodeStorageError,
			fmt.Sprintf("cannot open destination file: %v", err))
	}

	defer func() {
		_ = file.Close()
	}()

	if _, err := file.Seek(s.state.BytesTransferred(), io.SeekStart); err != nil {
		return gferrors.Wrap(err, gferrors.CodeStorageError,
			fmt.Sprintf("cannot seek destination file: %v", err))
	}

	buffer := make([]byte, s.chunkSize)

	for s.state.ActiveAttempt(attempt) {
		bytesTransferred, totalSize := s.state.Counters()

		chunk := totalSize - bytesTransferred
		if chunk <= 0 {
			break
		}

		if chunk > s.chunkSize {
			chunk = s.chunkSize
		}

		n, readErr := body.Read(buffer[:chunk])

		if n > 0 {
			if _, writeErr := file.Write(buffer[:n]); writeErr != nil {
				return gferrors.Wrap(writeErr, gferrors.CodeStorageError,
					fmt.Sprintf("write failed: %v", writeErr))
			}

			s.state.AddBytes(attempt, int64(n))
			s.tracker.Update(s.state.Counters())
		}

		if readErr == io.EOF {
			break
		}

		if readErr != nil {
			return gferrors.Wrap(readErr, gferrors.CodeNetworkError, readErr.Error())
		}
	}

	return nil
}

// fail records the failure on the state cell and logs it.
func (s *Streamer) fail(attempt uint64, operation string, err error) {
	s.state.FailAttempt(attempt, gferrors.MessageOf(err))
	s.logError(operation, err, map[string]interface{}{
		"url":               s.state.URL(),
		"bytes_transferred": s.state.BytesTransferred(),
	})
}

// logError logs error messages with context when logging is enabled.
func (s *Streamer) logError(operation string, err error, context map[string]interface{}) {
	if !s.enableLogging || s.logger == nil {
		return
	}

	logMsg := fmt.Sprintf("Operation: %s, Error: %v", operation, err)
	if len(context) > 0 {
		logMsg += ", Context: "
		for key, value := range context {
			logMsg += fmt.Sprintf("%s=%v ", key, value)
		}
	}

	s.logger.Println(logMsg)
}

// logInfo logs informational messages when logging is enabled.
func (s *Streamer) logInfo(operation string, message string, context map[string]interface{}) {
	if !s.enableLogging || s.logger == nil {
		return
	}

	logMsg := fmt.Sprintf("Operation: %s, Info: %s", operation, message)
	if len(context) > 0 {
		logMsg += ", Context: "
		for key, value := range context {
			logMsg += fmt.Sprintf("%s=%v ", key, value)
		}
	}

	s.logger.Println(logMsg)
}
