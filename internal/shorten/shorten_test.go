package shorten

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestShortener(t *testing.T, handler http.Handler) *Shortener {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(server.URL, server.Client(), logger)
}

func TestShorten_Success(t *testing.T) {
	var gotURL string

	s := newTestShortener(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		fmt.Fprint(w, "https://tinyurl.com/abc123\n")
	}))

	long := "https://example.com/download?id=1&x=y"
	short := s.Shorten(context.Background(), long)

	assert.Equal(t, "https://tinyurl.com/abc123", short)
	assert.Equal(t, long, gotURL)
}

func TestShorten_ServerErrorReturnsOriginal(t *testing.T) {
	s := newTestShortener(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	long := "https://example.com/file"
	assert.Equal(t, long, s.Shorten(context.Background(), long))
}

func TestShorten_GarbageResponseReturnsOriginal(t *testing.T) {
	s := newTestShortener(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>maintenance</html>")
	}))

	long := "https://example.com/file"
	assert.Equal(t, long, s.Shorten(context.Background(), long))
}

func TestShorten_UnreachableReturnsOriginal(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New("http://127.0.0.1:1", &http.Client{}, logger)

	long := "https://example.com/file"
	assert.Equal(t, long, s.Shorten(context.Background(), long))
}
