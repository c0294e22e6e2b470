// Package protocols manages per-scheme connection handlers.
//
// Every handler negotiates "bytes from offset N to end" against its source,
// so one streaming loop serves HTTP, FTP, S3 and GCS transfers alike.
package protocols

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"

	gferrors "github.com/jwcomptech/gofetch/pkg/errors"
)

// Connection is a negotiated source stream.
type Connection struct {
	// StatusCode is the HTTP status code of the negotiation. Handlers for
	// non-HTTP schemes synthesize 200 (full content) or 206 (offset resume).
	StatusCode int

	// ContentLength is the declared number of bytes available from the
	// requested offset onward, or -1 when the source did not report one.
	ContentLength int64

	// Body streams the remaining bytes. The caller owns closing it.
	Body io.ReadCloser
}

// Handler negotiates connections for one URL scheme.
type Handler interface {
	// Scheme returns the primary URL scheme this handler serves.
	Scheme() string

	// CanHandle reports whether this handler can serve the given URL.
	CanHandle(rawURL string) bool

	// Open negotiates a connection starting at the given byte offset.
	// Transport-level failures are returned unclassified; status-code
	// classification is the caller's concern.
	Open(ctx context.Context, rawURL string, offset int64) (*Connection, error)
}

// Registry dispatches URLs to registered protocol handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates a registry holding the given handlers. A handler is
// reachable under its primary scheme; handlers covering sibling schemes
// (https, ftps) register those through RegisterScheme.
func NewRegistry(handlers ...Handler) *Registry {
	registry := &Registry{
		handlers: make(map[string]Handler),
	}

	for _, handler := range handlers {
		registry.handlers[handler.Scheme()] = handler
	}

	return registry
}

// Register adds a handler under its primary scheme.
func (r *Registry) Register(handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	scheme := handler.Scheme()
	if _, exists := r.handlers[scheme]; exists {
		return gferrors.New(gferrors.CodeInvalidURL,
			"protocol handler for scheme "+scheme+" already registered")
	}

	r.handlers[scheme] = handler

	return nil
}

// RegisterScheme adds an extra scheme alias for an already constructed
// handler, e.g. https for the http handler.
func (r *Registry) RegisterScheme(scheme string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[strings.ToLower(scheme)] = handler
}

// GetHandler returns the handler responsible for the given URL.
func (r *Registry) GetHandler(rawURL string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, gferrors.WrapWithURL(err, gferrors.CodeInvalidURL, "invalid URL", rawURL)
	}

	scheme := strings.ToLower(parsedURL.Scheme)

	handler, exists := r.handlers[scheme]
	if !exists {
		return nil, gferrors.New(gferrors.CodeInvalidURL,
			"no handler registered for scheme: "+scheme)
	}

	if !handler.CanHandle(rawURL) {
		return nil, gferrors.New(gferrors.CodeInvalidURL,
			"handler for scheme "+scheme+" cannot handle URL")
	}

	return handler, nil
}

// Open negotiates a connection through the handler matching the URL.
func (r *Registry) Open(ctx context.Context, rawURL string, offset int64) (*Connection, error) {
	handler, err := r.GetHandler(rawURL)
	if err != nil {
		return nil, err
	}

	return handler.Open(ctx, rawURL, offset)
}
