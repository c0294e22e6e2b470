package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestTransferErrorMessage(t *testing.T) {
	err := New(CodeNotFound, "Not Found!")
	if err.Error() != "Not Found!" {
		t.Errorf("Error() = %q, want %q", err.Error(), "Not Found!")
	}

	wrapped := Wrap(errors.New("connection reset"), CodeNetworkError, "")
	if wrapped.Error() != "connection reset" {
		t.Errorf("Error() = %q, want underlying text", wrapped.Error())
	}
}

func TestUnwrapChain(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, CodeStorageError, "write failed")

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}

	var transferErr *TransferError
	if !errors.As(fmt.Errorf("outer: %w", err), &transferErr) {
		t.Error("errors.As failed to find TransferError through wrapping")
	}
}

func TestSentinelMatching(t *testing.T) {
	err := Wrap(ErrInsufficientSpace, CodeInsufficientSpace, "insufficient disk space")
	if !errors.Is(err, ErrInsufficientSpace) {
		t.Error("errors.Is(err, ErrInsufficientSpace) = false, want true")
	}

	if errors.Is(err, ErrInvalidURL) {
		t.Error("errors.Is(err, ErrInvalidURL) = true, want false")
	}
}

func TestSeverity(t *testing.T) {
	recoverable := New(CodeNotFound, "Not Found!")
	if IsFatal(recoverable) {
		t.Error("recoverable error reported as fatal")
	}

	fatal := NewFatal(CodeRateLimited, "GitHub API Rate Limit Reached!")
	if !IsFatal(fatal) {
		t.Error("fatal error not reported as fatal")
	}

	if IsFatal(errors.New("plain")) {
		t.Error("plain error reported as fatal")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(CodeAuthFailed, "Forbidden!")); got != CodeAuthFailed {
		t.Errorf("GetCode = %v, want CodeAuthFailed", got)
	}

	if got := GetCode(errors.New("plain")); got != CodeUnknown {
		t.Errorf("GetCode(plain) = %v, want CodeUnknown", got)
	}

	if got := GetCode(fmt.Errorf("outer: %w", New(CodeNotFound, "Not Found!"))); got != CodeNotFound {
		t.Errorf("GetCode(wrapped) = %v, want CodeNotFound", got)
	}
}

func TestMessageOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"transfer error", New(CodeNotFound, "Not Found!"), "Not Found!"},
		{"plain error", errors.New("dial tcp: timeout"), "dial tcp: timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MessageOf(tt.err); got != tt.want {
				t.Errorf("MessageOf = %q, want %q", got, tt.want)
			}
		})
	}
}
