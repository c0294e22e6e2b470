// Package gofetch provides a resumable file and content downloader with
// pause, resume, and cancel semantics.
//
// A Transfer owns one download. Start spawns a background streamer that
// negotiates the connection with a Range header, classifies the response,
// and moves bytes into the destination file while the transfer stays in the
// downloading state. Pause and Cancel only flip the shared status; the
// streamer observes the change at its next chunk boundary, so at most one
// extra chunk may be written after either call returns. Resume re-enters the
// download without resetting the byte counters, and the next negotiation
// requests "bytes=<transferred>-".
//
// The single-shot fetch operations (FetchString, FetchBool, FetchJSONArray)
// reuse the same negotiation and classification but buffer the whole body in
// memory instead of streaming to disk.
package gofetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jwcomptech/gofetch/internal/classify"
	"github.com/jwcomptech/gofetch/internal/core"
	"github.com/jwcomptech/gofetch/internal/negotiate"
	ftpproto "github.com/jwcomptech/gofetch/internal/protocols/ftp"
	gcsproto "github.com/jwcomptech/gofetch/internal/protocols/gcs"
	s3proto "github.com/jwcomptech/gofetch/internal/protocols/s3"
	gferrors "github.com/jwcomptech/gofetch/pkg/errors"
	"github.com/jwcomptech/gofetch/pkg/progress"
	"github.com/jwcomptech/gofetch/pkg/protocols"
	"github.com/jwcomptech/gofetch/pkg/storage"
	"github.com/jwcomptech/gofetch/pkg/types"
	"github.com/jwcomptech/gofetch/pkg/validation"
)

// Options configures a Transfer. The zero value is usable; defaults are
// applied by New.
type Options struct {
	// DestinationDir is where the downloaded file is written. Trailing
	// separators are normalized away. Defaults to the current directory.
	DestinationDir string

	// ChunkSize bounds each read of the streaming loop. Defaults to 1024.
	ChunkSize int64

	// UserAgent overrides the User-Agent header on HTTP requests.
	UserAgent string

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string

	// Timeout bounds a whole HTTP exchange. Ignored when HTTPClient is set.
	Timeout time.Duration

	// HTTPClient replaces the default HTTP client.
	HTTPClient *http.Client

	// GitHubAPIMode marks the target as a GitHub-style API whose error
	// bodies carry a "message" field. It selects the API variants of the
	// response classification, including the fatal 403 rate-limit case.
	GitHubAPIMode bool

	// Cache, when set, is consulted and populated by the single-shot fetch
	// operations, keyed by URL.
	Cache storage.Backend

	// CacheManager supplies the cache from a named-backend manager when
	// Cache is nil; the manager's default backend is used.
	CacheManager *storage.Manager

	// CacheTTL bounds the lifetime of cached fetch responses. Zero means
	// no expiry.
	CacheTTL time.Duration

	// ProgressCallback receives per-chunk progress updates.
	ProgressCallback progress.Callback

	// FTP, S3, and GCS configure the non-HTTP protocol handlers. Nil
	// selects each handler's defaults.
	FTP *ftpproto.Config
	S3  *s3proto.Config
	GCS *gcsproto.Config

	// EnableLogging turns on operational logging to Logger.
	EnableLogging bool

	// Logger receives operational logs. Defaults to stderr.
	Logger *log.Logger
}

// Transfer is the aggregate root for one download: one URL, one destination,
// one background streamer at a time.
type Transfer struct {
	options    *Options
	state      *core.State
	registry   *protocols.Registry
	negotiator *negotiate.Negotiator
	streamer   *core.Streamer

	logger        *log.Logger
	enableLogging bool

	mu   sync.Mutex
	done chan struct{}
}

// New creates a Transfer for the given URL. The URL is immutable for the
// lifetime of the Transfer.
func New(url string, options *Options) (*Transfer, error) {
	if err := validation.ValidateURL(url); err != nil {
		return nil, gferrors.WrapWithURL(err, gferrors.CodeInvalidURL, err.Error(), url)
	}

	if options == nil {
		options = &Options{}
	}

	if options.DestinationDir == "" {
		options.DestinationDir = "."
	}

	if options.ChunkSize <= 0 {
		options.ChunkSize = core.DefaultChunkSize
	}

	if options.Cache == nil && options.CacheManager != nil {
		backend, err := options.CacheManager.Default()
		if err != nil {
			return nil, gferrors.Wrap(err, gferrors.CodeStorageError,
				"cache manager has no default backend")
		}

		options.Cache = backend
	}

	logger := options.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[GOFETCH] ", log.LstdFlags)
	}

	negotiatorOptions := []negotiate.Option{
		negotiate.WithUserAgent(options.UserAgent),
		negotiate.WithHeaders(options.Headers),
		negotiate.WithAPIMode(options.GitHubAPIMode),
	}

	if options.HTTPClient != nil {
		negotiatorOptions = append(negotiatorOptions, negotiate.WithClient(options.HTTPClient))
	} else if options.Timeout > 0 {
		negotiatorOptions = append(negotiatorOptions,
			negotiate.WithClient(&http.Client{Timeout: options.Timeout}))
	}

	negotiator := negotiate.New(negotiatorOptions...)

	ftpHandler := ftpproto.NewHandler(options.FTP)

	registry := protocols.NewRegistry(
		negotiator,
		ftpHandler,
		s3proto.NewHandler(options.S3),
		gcsproto.NewHandler(options.GCS),
	)
	registry.RegisterScheme("https", negotiator)
	registry.RegisterScheme("ftps", ftpHandler)

	state := core.NewState(url, options.DestinationDir)

	streamer := core.NewStreamer(core.StreamerConfig{
		State:         state,
		Registry:      registry,
		Tracker:       progress.NewTracker(options.ProgressCallback),
		ChunkSize:     options.ChunkSize,
		APIMode:       negotiator.APIMode(),
		Logger:        logger,
		EnableLogging: options.EnableLogging,
	})

	// Nothing is running yet, so Done starts closed.
	done := make(chan struct{})
	close(done)

	return &Transfer{
		options:       options,
		state:         state,
		registry:      registry,
		negotiator:    negotiator,
		streamer:      streamer,
		logger:        logger,
		enableLogging: options.EnableLogging,
		done:          done,
	}, nil
}

// WithLogging enables or disables operational logging for the facade
// operations. The background streamer keeps the setting it was built with.
func (t *Transfer) WithLogging(enabled bool) *Transfer {
	t.enableLogging = enabled

	return t
}

// RegisterProtocol adds a custom protocol handler to this transfer's
// registry, under the handler's primary scheme.
func (t *Transfer) RegisterProtocol(handler protocols.Handler) error {
	return t.registry.Register(handler)
}

// Start begins a fresh download attempt. It resets the byte counters, clears
// the derived file fields and error message, and returns immediately after
// spawning the background streamer. A second Start while the transfer is
// already downloading is a no-op returning ErrAlreadyDownloading.
func (t *Transfer) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.state.BeginDownload() {
		return gferrors.ErrAlreadyDownloading
	}

	t.logInfo("start", "starting transfer", map[string]interface{}{"url": t.state.URL()})
	t.launchLocked(ctx)

	return nil
}

// Resume re-enters the download without resetting the counters; the next
// negotiation requests bytes from the current offset onward. Resume does not
// verify that the transfer was paused: resuming a cancelled or failed
// transfer is not rejected and simply continues from the stored counters.
// Only a transfer that is already downloading is refused.
func (t *Transfer) Resume(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.state.BeginResume() {
		return gferrors.ErrAlreadyDownloading
	}

	t.logInfo("resume", "resuming transfer", map[string]interface{}{
		"url":    t.state.URL(),
		"offset": t.state.BytesTransferred(),
	})
	t.launchLocked(ctx)

	return nil
}

// launchLocked spawns the background streamer. Caller holds t.mu. The
// attempt number is captured here, under the lock that just opened it, and
// handed to the streamer; a streamer left over from a paused attempt carries
// an older number and its late writes are ignored by the state cell.
func (t *Transfer) launchLocked(ctx context.Context) {
	done := make(chan struct{})
	t.done = done
	attempt := t.state.Attempt()

	go func() {
		defer close(done)
		t.streamer.Run(ctx, attempt)
	}()
}

// Pause requests a pause. It never blocks on the background streamer; the
// streamer observes the new status at its next chunk boundary, so up to one
// more chunk may be written after Pause returns. The counters and the partial
// file are kept for a later Resume.
func (t *Transfer) Pause() {
	t.state.Pause()
	t.logInfo("pause", "pause requested", nil)
}

// Cancel requests a cancel. Terminal for this attempt, with the same relaxed
// observation guarantee as Pause. A subsequent Start begins over from zero.
func (t *Transfer) Cancel() {
	t.state.Cancel()
	t.logInfo("cancel", "cancel requested", nil)
}

// Done returns a channel that is closed when the current background attempt
// has exited. Before the first Start the channel is already closed.
func (t *Transfer) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.done
}

// Status returns the transfer's lifecycle state.
func (t *Transfer) Status() types.Status {
	return t.state.Status()
}

// Progress returns the completion percentage in [0, 100]. While the total
// size is still unknown it reports 0.
func (t *Transfer) Progress() float64 {
	return progress.Percentage(t.state.Counters())
}

// Snapshot returns a consistent copy of the transfer's observable state.
func (t *Transfer) Snapshot() types.Snapshot {
	return t.state.Snapshot()
}

// ErrorMessage returns the last classified failure text. Meaningful only
// when Status is StatusError.
func (t *Transfer) ErrorMessage() string {
	return t.state.ErrorMessage()
}

// Filename returns the derived filename, or "" before the first negotiation.
func (t *Transfer) Filename() string {
	return t.state.Filename()
}

// Filepath returns the destination path, or "" before the first negotiation.
func (t *Transfer) Filepath() string {
	return t.state.Filepath()
}

// FetchString performs a synchronous GET of the transfer URL and returns the
// whole body as a string. Classified failures are recorded as the transfer's
// error message and returned; only the GitHub API rate-limit case comes back
// fatal (see errors.IsFatal), every other failure is recoverable and the
// result is empty.
func (t *Transfer) FetchString(ctx context.Context) (string, error) {
	key := t.state.URL()

	if t.options.Cache != nil {
		if cached, err := t.options.Cache.Get(ctx, key); err == nil {
			t.logInfo("fetch", "cache hit", map[string]interface{}{"url": key})

			return string(cached), nil
		}
	}

	conn, err := t.negotiator.Open(ctx, key, 0)
	if err != nil {
		wrapped := gferrors.WrapWithURL(err, gferrors.CodeNetworkError, err.Error(), key)
		t.state.Fail(wrapped.Message)
		t.logError("fetch", wrapped, nil)

		return "", wrapped
	}

	defer func() {
		_ = conn.Body.Close()
	}()

	outcome := classify.Classify(conn.StatusCode, t.negotiator.APIMode(), conn.Body)
	if !outcome.IsSuccess() {
		t.state.Fail(outcome.Err.Message)
		t.logError("fetch", outcome.Err, map[string]interface{}{"status_code": conn.StatusCode})

		return "", outcome.Err
	}

	body, err := io.ReadAll(conn.Body)
	if err != nil {
		wrapped := gferrors.WrapWithURL(err, gferrors.CodeNetworkError, err.Error(), key)
		t.state.Fail(wrapped.Message)

		return "", wrapped
	}

	if t.options.Cache != nil {
		if err := t.options.Cache.Set(ctx, key, body, t.options.CacheTTL); err != nil {
			t.logError("fetch", err, map[string]interface{}{"cache_key": key})
		}
	}

	return string(body), nil
}

// FetchBool fetches the body and parses it as a boolean literal (true/false,
// yes/no, on/off, 0/1 and their single-letter forms, case-insensitive).
func (t *Transfer) FetchBool(ctx context.Context) (bool, error) {
	body, err := t.FetchString(ctx)
	if err != nil {
		return false, err
	}

	value, err := validation.ParseBool(body)
	if err != nil {
		return false, gferrors.Wrap(err, gferrors.CodeUnknown, err.Error())
	}

	return value, nil
}

// FetchJSONArray fetches the body and decodes it as a JSON array, returning
// the raw elements for the caller to unmarshal further.
func (t *Transfer) FetchJSONArray(ctx context.Context) ([]json.RawMessage, error) {
	body, err := t.FetchString(ctx)
	if err != nil {
		return nil, err
	}

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(body), &elements); err != nil {
		return nil, gferrors.Wrap(err, gferrors.CodeUnknown,
			fmt.Sprintf("response is not a JSON array: %v", err))
	}

	return elements, nil
}

// logError logs error messages with context when logging is enabled.
func (t *Transfer) logError(operation string, err error, context map[string]interface{}) {
	if !t.enableLogging || t.logger == nil {
		return
	}

	logMsg := fmt.Sprintf("Operation: %s, Error: %v", operation, err)
	if len(context) > 0 {
		logMsg += ", Context: "
		for key, value := range context {
			logMsg += fmt.Sprintf("%s=%v ", key, value)
		}
	}

	t.logger.Println(logMsg)
}

// logInfo logs informational messages when logging is enabled.
func (t *Transfer) logInfo(operation string, message string, context map[string]interface{}) {
	if !t.enableLogging || t.logger == nil {
		return
	}

	logMsg := fmt.Sprintf("Operation: %s, Info: %s", operation, message)
	if len(context) > 0 {
		logMsg += ", Context: "
		for key, value := range context {
			logMsg += fmt.Sprintf("%s=%v ", key, value)
		}
	}

	t.logger.Println(logMsg)
}
