// Package classify maps HTTP status codes to transfer outcomes.
//
// Classification is status-code based only; transport failures never reach
// this package. In API mode the target host is a GitHub-style API whose error
// bodies carry a "message" field, and a handful of codes get API-specific
// messages. The 403 rate-limit case is the single fatal outcome: it is raised
// to the caller instead of only being recorded on the transfer.
package classify

import (
	"encoding/json"
	"io"
	"strings"

	gferrors "github.com/jwcomptech/gofetch/pkg/errors"
)

// Kind is the coarse result of classifying a response.
type Kind int

const (
	// Success covers the 200-208 status band.
	Success Kind = iota

	// Recoverable failures are recorded as the transfer's error message and
	// the calling operation returns an empty result.
	Recoverable

	// Fatal failures are additionally raised to the caller.
	Fatal
)

// Outcome is the classified result. Err is nil exactly when Kind is Success.
type Outcome struct {
	Kind Kind
	Err  *gferrors.TransferError
}

// IsSuccess reports whether the response was in the success band.
func (o Outcome) IsSuccess() bool {
	return o.Kind == Success
}

// maxErrorBody bounds how much of an error body is read for its message.
const maxErrorBody = 64 * 1024

// apiMessage holds the decoded "message" field of an API error body.
type apiMessage struct {
	Message string `json:"message"`
}

// readMessage extracts the "message" field from an API error body.
// Returns the empty string when the body is absent or not decodable.
func readMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	var decoded apiMessage
	if err := json.NewDecoder(io.LimitReader(body, maxErrorBody)).Decode(&decoded); err != nil {
		return ""
	}

	return decoded.Message
}

// Classify maps a status code to an outcome. apiMode marks GitHub-style API
// requests; body is the response body, consumed only for codes whose message
// is body-derived (404 in API mode and unlisted codes).
func Classify(statusCode int, apiMode bool, body io.Reader) Outcome {
	if statusCode >= 200 && statusCode <= 208 {
		return Outcome{Kind: Success}
	}

	switch statusCode {
	case 400:
		return recoverable(gferrors.CodeClientError, "Bad Request!", statusCode)

	case 401:
		if apiMode {
			return recoverable(gferrors.CodeAuthFailed, "GitHub API Bad Credentials!", statusCode)
		}

		return recoverable(gferrors.CodeAuthFailed, "Unauthorized Or Bad Credentials!", statusCode)

	case 403:
		if apiMode {
			err := gferrors.NewFatal(gferrors.CodeRateLimited, "GitHub API Rate Limit Reached!")
			err.HTTPStatusCode = statusCode

			return Outcome{Kind: Fatal, Err: err}
		}

		return recoverable(gferrors.CodeAuthFailed, "Forbidden!", statusCode)

	case 404:
		if apiMode {
			message := readMessage(body)
			if strings.Contains(message, "Not Found") {
				return recoverable(gferrors.CodeNotFound, "GitHub Page Not Found!", statusCode)
			}

			return recoverable(gferrors.CodeNotFound, "GitHub API: "+message, statusCode)
		}

		return recoverable(gferrors.CodeNotFound, "Not Found!", statusCode)

	case 500:
		return recoverable(gferrors.CodeServerError, "Internal Server Error!", statusCode)

	case 501:
		return recoverable(gferrors.CodeServerError, "Not Implemented!", statusCode)

	case 502:
		return recoverable(gferrors.CodeServerError, "Bad Gateway!", statusCode)

	case 503:
		return recoverable(gferrors.CodeServerError, "Service Unavailable!", statusCode)

	case 504:
		return recoverable(gferrors.CodeServerError, "Gateway Timeout!", statusCode)

	default:
		message := readMessage(body)
		if apiMode {
			return recoverable(gferrors.CodeUnknown, "Unknown API Error! Error Message: "+message, statusCode)
		}

		return recoverable(gferrors.CodeUnknown, message, statusCode)
	}
}

func recoverable(code gferrors.ErrorCode, message string, statusCode int) Outcome {
	err := gferrors.New(code, message)
	err.HTTPStatusCode = statusCode

	return Outcome{Kind: Recoverable, Err: err}
}
