// Package shorten produces short redirect URLs via the TinyURL API.
// Shortening is strictly best effort: any failure returns the original URL
// unchanged so link delivery never depends on the shortener being up.
package shorten

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the TinyURL creation endpoint.
const DefaultBaseURL = "https://tinyurl.com"

// maxResponseSize bounds the shortener response read. A real short URL is
// under a hundred bytes; anything larger is a broken response.
const maxResponseSize = 1024

// Shortener shortens URLs through the TinyURL plain-text API.
type Shortener struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Shortener. baseURL is typically DefaultBaseURL.
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) *Shortener {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Shortener{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Shorten returns a short URL for long, or long itself if shortening fails.
// The error path only logs; callers never need to branch on it.
func (s *Shortener) Shorten(ctx context.Context, long string) string {
	short, err := s.shorten(ctx, long)
	if err != nil {
		s.logger.Warn("url shortening failed, using original",
			slog.String("error", err.Error()))

		return long
	}

	return short
}

func (s *Shortener) shorten(ctx context.Context, long string) (string, error) {
	endpoint := s.baseURL + "/api-create.php?url=" + url.QueryEscape(long)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("shorten: creating request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("shorten: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shorten: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("shorten: reading response: %w", err)
	}

	short := strings.TrimSpace(string(body))
	if !strings.HasPrefix(short, "http://") && !strings.HasPrefix(short, "https://") {
		return "", fmt.Errorf("shorten: response is not a URL: %q", short)
	}

	return short, nil
}
