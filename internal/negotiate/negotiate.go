// Package negotiate opens HTTP(S) connections with byte-range resumption.
package negotiate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jwcomptech/gofetch/pkg/protocols"
)

// DefaultTimeout bounds a whole HTTP exchange when the caller supplies no
// client of its own.
const DefaultTimeout = 30 * time.Minute

// DefaultUserAgent identifies the library when the caller sets none.
const DefaultUserAgent = "gofetch/1.0"

// Negotiator opens HTTP connections for the streaming loop. It attaches a
// Range header computed from the transfer's current offset, always requesting
// "from offset to end".
type Negotiator struct {
	client    *http.Client
	userAgent string
	headers   map[string]string
	apiMode   bool
}

// Option configures a Negotiator.
type Option func(*Negotiator)

// WithClient replaces the default HTTP client.
func WithClient(client *http.Client) Option {
	return func(n *Negotiator) {
		if client != nil {
			n.client = client
		}
	}
}

// WithUserAgent sets the User-Agent header for all requests.
func WithUserAgent(userAgent string) Option {
	return func(n *Negotiator) {
		if userAgent != "" {
			n.userAgent = userAgent
		}
	}
}

// WithHeaders sets extra headers attached to every request.
func WithHeaders(headers map[string]string) Option {
	return func(n *Negotiator) {
		n.headers = headers
	}
}

// WithAPIMode marks requests as GitHub-style API calls. Negotiation itself is
// unchanged; the flag travels with the negotiator so callers classify
// responses consistently.
func WithAPIMode(apiMode bool) Option {
	return func(n *Negotiator) {
		n.apiMode = apiMode
	}
}

// New creates a Negotiator with the given options applied.
func New(opts ...Option) *Negotiator {
	negotiator := &Negotiator{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(negotiator)
	}

	return negotiator
}

// APIMode reports whether this negotiator targets a GitHub-style API.
func (n *Negotiator) APIMode() bool {
	return n.apiMode
}

// Scheme returns the primary scheme. The same negotiator also serves https
// via the registry's scheme alias.
func (n *Negotiator) Scheme() string {
	return "http"
}

// CanHandle reports whether the URL is an http or https URL.
func (n *Negotiator) CanHandle(rawURL string) bool {
	lower := strings.ToLower(rawURL)

	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Open issues a GET with "Range: bytes=<offset>-" and exposes the response
// status code, declared content length, and body stream. Transport failures
// (DNS, TCP, TLS) are returned as-is; they are not classified here.
func (n *Negotiator) Open(ctx context.Context, rawURL string, offset int64) (*protocols.Connection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	req.Header.Set("User-Agent", n.userAgent)

	for key, value := range n.headers {
		req.Header.Set(key, value)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, err
	}

	return &protocols.Connection{
		StatusCode:    resp.StatusCode,
		ContentLength: resp.ContentLength,
		Body:          resp.Body,
	}, nil
}
