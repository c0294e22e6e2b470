package negotiate

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenSetsRangeHeader(t *testing.T) {
	var gotRange, gotUserAgent, gotCustom string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		gotUserAgent = r.Header.Get("User-Agent")
		gotCustom = r.Header.Get("X-Custom")

		_, _ = w.Write([]byte("payload"))
	}))
	defer server.Close()

	negotiator := New(
		WithUserAgent("test-agent/2.0"),
		WithHeaders(map[string]string{"X-Custom": "value"}),
	)

	conn, err := negotiator.Open(context.Background(), server.URL+"/file.bin", 400)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	defer func() {
		_ = conn.Body.Close()
	}()

	if gotRange != "bytes=400-" {
		t.Errorf("Range header = %q, want %q", gotRange, "bytes=400-")
	}

	if gotUserAgent != "test-agent/2.0" {
		t.Errorf("User-Agent = %q", gotUserAgent)
	}

	if gotCustom != "value" {
		t.Errorf("X-Custom = %q", gotCustom)
	}
}

func TestOpenExposesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	conn, err := New().Open(context.Background(), server.URL+"/file.bin", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	defer func() {
		_ = conn.Body.Close()
	}()

	if conn.StatusCode != http.StatusPartialContent {
		t.Errorf("StatusCode = %d, want 206", conn.StatusCode)
	}

	if conn.ContentLength != 10 {
		t.Errorf("ContentLength = %d, want 10", conn.ContentLength)
	}

	body, err := io.ReadAll(conn.Body)
	if err != nil {
		t.Fatal(err)
	}

	if string(body) != "0123456789" {
		t.Errorf("body = %q", body)
	}
}

func TestOpenTransportFailure(t *testing.T) {
	if _, err := New().Open(context.Background(), "http://127.0.0.1:1/x", 0); err == nil {
		t.Error("Open to unreachable host returned nil error")
	}
}

func TestAPIMode(t *testing.T) {
	if New().APIMode() {
		t.Error("APIMode() = true by default")
	}

	if !New(WithAPIMode(true)).APIMode() {
		t.Error("APIMode() = false with WithAPIMode(true)")
	}
}

func TestCanHandle(t *testing.T) {
	negotiator := New()

	for _, url := range []string{"http://example.com/a", "https://example.com/a", "HTTPS://example.com/a"} {
		if !negotiator.CanHandle(url) {
			t.Errorf("CanHandle(%q) = false", url)
		}
	}

	for _, url := range []string{"ftp://example.com/a", "s3://bucket/key"} {
		if negotiator.CanHandle(url) {
			t.Errorf("CanHandle(%q) = true", url)
		}
	}
}
