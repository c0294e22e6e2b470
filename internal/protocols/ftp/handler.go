// Package ftp negotiates FTP and FTPS connections with offset resumption.
package ftp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/jwcomptech/gofetch/pkg/protocols"
)

// Config holds FTP connection configuration.
type Config struct {
	DialTimeout time.Duration
	Username    string
	Password    string
	TLSConfig   *tls.Config // enables explicit TLS for ftps URLs
}

// DefaultConfig returns an anonymous-login configuration.
func DefaultConfig() *Config {
	return &Config{
		DialTimeout: 10 * time.Second,
		Username:    "anonymous",
		Password:    "anonymous@example.com",
	}
}

// Handler negotiates FTP connections for the streaming loop. Resumption uses
// the RETR-from-offset command, so the returned stream starts exactly at the
// requested byte.
type Handler struct {
	config *Config
}

// NewHandler creates an FTP handler. A nil config selects DefaultConfig.
func NewHandler(config *Config) *Handler {
	if config == nil {
		config = DefaultConfig()
	}

	return &Handler{config: config}
}

// Scheme returns the primary scheme. The same handler also serves ftps via
// the registry's scheme alias.
func (h *Handler) Scheme() string {
	return "ftp"
}

// CanHandle reports whether the URL is an ftp or ftps URL.
func (h *Handler) CanHandle(rawURL string) bool {
	lower := strings.ToLower(rawURL)

	return strings.HasPrefix(lower, "ftp://") || strings.HasPrefix(lower, "ftps://")
}

// Open connects, authenticates, sizes the remote file, and starts a transfer
// from the given offset.
func (h *Handler) Open(ctx context.Context, rawURL string, offset int64) (*protocols.Connection, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid FTP URL: %w", err)
	}

	host := parsedURL.Hostname()
	port := parsedURL.Port()
	if port == "" {
		port = "21"
	}

	dialOptions := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(h.config.DialTimeout),
	}

	if strings.EqualFold(parsedURL.Scheme, "ftps") {
		tlsConfig := h.config.TLSConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
		}

		dialOptions = append(dialOptions, ftp.DialWithExplicitTLS(tlsConfig))
	}

	conn, err := ftp.Dial(fmt.Sprintf("%s:%s", host, port), dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to FTP server %s:%s: %w", host, port, err)
	}

	username := h.config.Username
	password := h.config.Password

	if parsedURL.User != nil {
		username = parsedURL.User.Username()
		if pwd, set := parsedURL.User.Password(); set {
			password = pwd
		}
	}

	if err := conn.Login(username, password); err != nil {
		_ = conn.Quit()

		return nil, fmt.Errorf("FTP authentication failed: %w", err)
	}

	remotePath := parsedURL.Path

	size, err := conn.FileSize(remotePath)
	if err != nil {
		_ = conn.Quit()

		return nil, fmt.Errorf("failed to size FTP file %s: %w", remotePath, err)
	}

	resp, err := conn.RetrFrom(remotePath, uint64(offset))
	if err != nil {
		_ = conn.Quit()

		return nil, fmt.Errorf("failed to retrieve FTP file %s from offset %d: %w", remotePath, offset, err)
	}

	statusCode := http.StatusOK
	if offset > 0 {
		statusCode = http.StatusPartialContent
	}

	return &protocols.Connection{
		StatusCode:    statusCode,
		ContentLength: size - offset,
		Body:          &transferBody{resp: resp, conn: conn},
	}, nil
}

// transferBody streams the FTP data connection and tears down the control
// connection on close. The data response is closed first; a failed QUIT never
// masks a data-side close error.
type transferBody struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (b *transferBody) Read(p []byte) (int, error) {
	return b.resp.Read(p)
}

func (b *transferBody) Close() error {
	err := b.resp.Close()
	_ = b.conn.Quit()

	return err
}
