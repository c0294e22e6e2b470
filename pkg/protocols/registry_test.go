package protocols

import (
	"context"
	"io"
	"strings"
	"testing"
)

type stubHandler struct {
	scheme string
	opened []string
}

func (h *stubHandler) Scheme() string { return h.scheme }

func (h *stubHandler) CanHandle(rawURL string) bool {
	return strings.HasPrefix(rawURL, h.scheme+"://")
}

func (h *stubHandler) Open(_ context.Context, rawURL string, offset int64) (*Connection, error) {
	h.opened = append(h.opened, rawURL)

	return &Connection{
		StatusCode:    200,
		ContentLength: 4,
		Body:          io.NopCloser(strings.NewReader("data")),
	}, nil
}

func TestRegistryDispatch(t *testing.T) {
	httpStub := &stubHandler{scheme: "http"}
	ftpStub := &stubHandler{scheme: "ftp"}

	registry := NewRegistry(httpStub, ftpStub)

	conn, err := registry.Open(context.Background(), "ftp://example.com/file", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	_ = conn.Body.Close()

	if len(ftpStub.opened) != 1 || len(httpStub.opened) != 0 {
		t.Errorf("dispatch went to wrong handler: http=%d ftp=%d",
			len(httpStub.opened), len(ftpStub.opened))
	}
}

func TestRegistrySchemeAlias(t *testing.T) {
	stub := &stubHandler{scheme: "http"}

	registry := NewRegistry(stub)
	registry.RegisterScheme("https", stub)

	handler, err := registry.GetHandler("https://example.com/file")
	if err == nil {
		// CanHandle on the stub rejects https, so GetHandler must refuse.
		t.Fatalf("GetHandler accepted URL the handler cannot handle: %v", handler)
	}
}

func TestRegistryUnknownScheme(t *testing.T) {
	registry := NewRegistry(&stubHandler{scheme: "http"})

	if _, err := registry.GetHandler("gopher://example.com/file"); err == nil {
		t.Error("GetHandler accepted unknown scheme")
	}
}

func TestRegistryInvalidURL(t *testing.T) {
	registry := NewRegistry()

	if _, err := registry.GetHandler("://no-scheme"); err == nil {
		t.Error("GetHandler accepted invalid URL")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	registry := NewRegistry(&stubHandler{scheme: "http"})

	if err := registry.Register(&stubHandler{scheme: "http"}); err == nil {
		t.Error("Register accepted duplicate scheme")
	}

	if err := registry.Register(&stubHandler{scheme: "ftp"}); err != nil {
		t.Errorf("Register rejected new scheme: %v", err)
	}
}
