// Package validation provides input validation and normalization helpers
// shared by the transfer facade and the streaming core.
package validation

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// supportedSchemes are the URL schemes a protocol handler exists for.
var supportedSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ftp":   true,
	"ftps":  true,
	"s3":    true,
	"gs":    true,
}

// ValidateURL validates a transfer URL for correctness.
// Returns an error if the URL is malformed, relative, or uses a scheme no
// handler is registered for.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}

	scheme := strings.ToLower(parsedURL.Scheme)
	if scheme == "" {
		return fmt.Errorf("URL must include a scheme")
	}

	if !supportedSchemes[scheme] {
		return fmt.Errorf("unsupported URL scheme: %s", scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("URL must include a valid host")
	}

	return nil
}

// NormalizeDestinationDir strips trailing path separators from dir.
// The stored form never carries a trailing separator; exactly one is
// re-appended when the final file path is composed.
func NormalizeDestinationDir(dir string) string {
	for len(dir) > 1 && (strings.HasSuffix(dir, "/") || strings.HasSuffix(dir, "\\")) {
		dir = dir[:len(dir)-1]
	}

	return dir
}

// FilenameFromURL derives the destination filename from the last path segment
// of the URL, sanitized so it cannot escape the destination directory.
func FilenameFromURL(rawURL string) (string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("malformed URL: %w", err)
	}

	name := path.Base(parsedURL.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("URL path has no filename segment")
	}

	return SanitizeFilename(name), nil
}

// SanitizeFilename removes path separators and other characters that are
// unsafe in a filename on common filesystems.
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		"\x00", "_",
	)

	sanitized := replacer.Replace(name)
	sanitized = strings.Trim(sanitized, ". ")

	if sanitized == "" {
		sanitized = "download"
	}

	return sanitized
}

// ValidateContentLength checks a declared content length from a negotiated
// response. Anything below one byte is invalid; servers that omit the header
// report -1 through the transport, which fails here too.
func ValidateContentLength(length int64) error {
	if length < 1 {
		return fmt.Errorf("declared content length %d is not positive", length)
	}

	return nil
}

// booleanLiterals maps accepted textual literals to their boolean value.
// The comparison is case-insensitive after trimming surrounding whitespace.
var booleanLiterals = map[string]bool{
	"true":    true,
	"t":       true,
	"yes":     true,
	"y":       true,
	"1":       true,
	"on":      true,
	"enabled": true,

	"false":    false,
	"f":        false,
	"no":       false,
	"n":        false,
	"0":        false,
	"off":      false,
	"disabled": false,
}

// ParseBool converts a textual boolean literal to its value.
// Returns an error when the text matches no literal in the table.
func ParseBool(text string) (bool, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))

	value, ok := booleanLiterals[normalized]
	if !ok {
		return false, fmt.Errorf("cannot parse %q as a boolean", text)
	}

	return value, nil
}
