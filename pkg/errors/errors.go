// Package errors defines the structured error types used by the gofetch
// transfer library.
package errors

import (
	"errors"
)

// Sentinel errors for common transfer scenarios.
// These can be used with errors.Is() for error comparison.
var (
	// ErrInvalidURL is returned when a provided URL is malformed or invalid.
	ErrInvalidURL = errors.New("invalid URL provided")

	// ErrAlreadyDownloading is returned when a download is requested while the
	// transfer is already in the DOWNLOADING state. The running transfer is
	// left untouched.
	ErrAlreadyDownloading = errors.New("transfer already downloading")

	// ErrInsufficientSpace is returned when there is not enough disk space to
	// hold the remaining bytes of the transfer.
	ErrInsufficientSpace = errors.New("insufficient disk space")

	// ErrNetworkError is returned for general network-related failures.
	ErrNetworkError = errors.New("network error occurred")
)

const unknownValue = "unknown"

// ErrorCode represents the different failure categories a transfer can hit.
type ErrorCode int

const (
	// CodeUnknown represents an unknown or unclassified error.
	CodeUnknown ErrorCode = iota

	// CodeInvalidURL represents errors related to malformed or invalid URLs.
	CodeInvalidURL

	// CodeInvalidDestination represents errors with the destination directory
	// or file path.
	CodeInvalidDestination

	// CodeInvalidContentLength represents a negotiated response whose declared
	// content length is missing or not positive.
	CodeInvalidContentLength

	// CodeInsufficientSpace represents errors due to lack of disk space.
	CodeInsufficientSpace

	// CodeNetworkError represents transport-level errors (DNS, TCP, TLS,
	// stream I/O).
	CodeNetworkError

	// CodeClientError represents 4xx HTTP responses other than the ones with
	// dedicated codes below.
	CodeClientError

	// CodeAuthFailed represents authentication or authorization failures
	// (HTTP 401/403).
	CodeAuthFailed

	// CodeRateLimited represents the GitHub API rate-limit response. Unlike
	// every other classified failure it is fatal: it propagates to the caller
	// as an error rather than only being recorded on the transfer state.
	CodeRateLimited

	// CodeNotFound represents HTTP 404 responses.
	CodeNotFound

	// CodeServerError represents 5xx HTTP responses.
	CodeServerError

	// CodeStorageError represents failures in the destination file or a
	// storage backend.
	CodeStorageError

	// CodeCancelled represents a transfer aborted through its context.
	CodeCancelled
)

// String returns a string representation of the error code.
func (c ErrorCode) String() string {
	switch c {
	case CodeUnknown:
		return "unknown"
	case CodeInvalidURL:
		return "invalid_url"
	case CodeInvalidDestination:
		return "invalid_destination"
	case CodeInvalidContentLength:
		return "invalid_content_length"
	case CodeInsufficientSpace:
		return "insufficient_space"
	case CodeNetworkError:
		return "network_error"
	case CodeClientError:
		return "client_error"
	case CodeAuthFailed:
		return "auth_failed"
	case CodeRateLimited:
		return "rate_limited"
	case CodeNotFound:
		return "not_found"
	case CodeServerError:
		return "server_error"
	case CodeStorageError:
		return "storage_error"
	case CodeCancelled:
		return "cancelled"
	default:
		return unknownValue
	}
}

// Severity distinguishes failures that are only recorded on the transfer state
// (the calling operation returns an empty result) from failures that propagate
// to the caller as a hard error.
type Severity int

const (
	// SeverityRecoverable failures are recorded as the transfer's error
	// message; the operation that hit them returns an empty result.
	SeverityRecoverable Severity = iota

	// SeverityFatal failures are additionally raised to the caller. The only
	// classified case is the GitHub API rate limit.
	SeverityFatal
)

// String returns a string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityRecoverable:
		return "recoverable"
	case SeverityFatal:
		return "fatal"
	default:
		return unknownValue
	}
}

// TransferError is the structured error produced by transfer operations.
// It carries a user-facing message plus enough context for debugging.
type TransferError struct {
	// Code represents the failure category.
	Code ErrorCode

	// Severity tags the error as recoverable or fatal (see Severity).
	Severity Severity

	// Message is the user-facing error message. For status-classified
	// failures this is exactly the classified text recorded on the transfer.
	Message string

	// Details contains technical details for debugging, if any.
	Details string

	// URL is the source URL that caused the error, if applicable.
	URL string

	// HTTPStatusCode is the HTTP status code if the error is HTTP-related.
	HTTPStatusCode int

	// BytesTransferred is how many bytes were moved before the failure.
	BytesTransferred int64

	// Underlying is the original error that caused this one, if any.
	Underlying error
}

// Error implements the error interface.
func (e *TransferError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Underlying != nil {
		return e.Underlying.Error()
	}

	return "transfer error occurred"
}

// Unwrap returns the underlying error so errors.Is/errors.As keep working.
func (e *TransferError) Unwrap() error {
	return e.Underlying
}

// Is implements error comparison against the package sentinels.
func (e *TransferError) Is(target error) bool {
	if e.Underlying != nil && errors.Is(e.Underlying, target) {
		return true
	}

	switch e.Code {
	case CodeInvalidURL:
		return errors.Is(target, ErrInvalidURL)
	case CodeInsufficientSpace:
		return errors.Is(target, ErrInsufficientSpace)
	case CodeNetworkError:
		return errors.Is(target, ErrNetworkError)
	}

	return false
}

// New creates a recoverable TransferError with the given code and message.
func New(code ErrorCode, message string) *TransferError {
	return &TransferError{
		Code:     code,
		Severity: SeverityRecoverable,
		Message:  message,
	}
}

// NewWithDetails creates a recoverable TransferError with technical details.
func NewWithDetails(code ErrorCode, message, details string) *TransferError {
	return &TransferError{
		Code:     code,
		Severity: SeverityRecoverable,
		Message:  message,
		Details:  details,
	}
}

// NewFatal creates a fatal TransferError with the given code and message.
func NewFatal(code ErrorCode, message string) *TransferError {
	return &TransferError{
		Code:     code,
		Severity: SeverityFatal,
		Message:  message,
	}
}

// Wrap wraps an existing error as a recoverable TransferError.
func Wrap(underlying error, code ErrorCode, message string) *TransferError {
	return &TransferError{
		Code:       code,
		Severity:   SeverityRecoverable,
		Message:    message,
		Underlying: underlying,
	}
}

// WrapWithURL wraps an existing error as a recoverable TransferError carrying
// the offending URL.
func WrapWithURL(underlying error, code ErrorCode, message, url string) *TransferError {
	return &TransferError{
		Code:       code,
		Severity:   SeverityRecoverable,
		Message:    message,
		URL:        url,
		Underlying: underlying,
	}
}

// IsFatal reports whether err is a TransferError tagged SeverityFatal.
func IsFatal(err error) bool {
	var transferErr *TransferError
	if errors.As(err, &transferErr) {
		return transferErr.Severity == SeverityFatal
	}

	return false
}

// GetCode extracts the error code from any error, returning CodeUnknown if the
// error is not a TransferError.
func GetCode(err error) ErrorCode {
	var transferErr *TransferError
	if errors.As(err, &transferErr) {
		return transferErr.Code
	}

	return CodeUnknown
}

// MessageOf returns the message that should be recorded on the transfer state
// for err: the classified message of a TransferError, or the raw error text of
// anything else.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}

	var transferErr *TransferError
	if errors.As(err, &transferErr) {
		return transferErr.Message
	}

	return err.Error()
}
