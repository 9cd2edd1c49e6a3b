// Package telegraph publishes text pages to the telegra.ph API. The bot uses
// it for admin exports that are too long for a chat message.
package telegraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// DefaultBaseURL is the production telegra.ph API endpoint.
const DefaultBaseURL = "https://api.telegra.ph"

// Client publishes pages under a lazily created anonymous account.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	shortName  string
	authorName string

	mu          sync.Mutex
	accessToken string
}

// NewClient creates a telegra.ph client. The account is created on first
// publish, not here. baseURL is typically DefaultBaseURL.
func NewClient(baseURL string, httpClient *http.Client, shortName, authorName string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		shortName:  shortName,
		authorName: authorName,
	}
}

// apiResponse is the telegra.ph response envelope.
type apiResponse struct {
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// node is a telegra.ph DOM node. Page content is a list of nodes.
type node struct {
	Tag      string   `json:"tag"`
	Children []string `json:"children,omitempty"`
}

// CreatePage publishes plain text as a new page and returns its public URL.
// Each input line becomes one paragraph.
func (c *Client) CreatePage(ctx context.Context, title, text string) (string, error) {
	token, err := c.ensureAccount(ctx)
	if err != nil {
		return "", err
	}

	content, err := json.Marshal(textToNodes(text))
	if err != nil {
		return "", fmt.Errorf("telegraph: encoding page content: %w", err)
	}

	payload := map[string]any{
		"access_token": token,
		"title":        title,
		"author_name":  c.authorName,
		"content":      json.RawMessage(content),
	}

	var result struct {
		URL string `json:"url"`
	}

	if err := c.call(ctx, "/createPage", payload, &result); err != nil {
		return "", err
	}

	c.logger.Debug("published page", slog.String("title", title), slog.String("url", result.URL))

	return result.URL, nil
}

// ensureAccount creates the anonymous publishing account on first use and
// caches its access token for the life of the client.
func (c *Client) ensureAccount(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" {
		return c.accessToken, nil
	}

	payload := map[string]any{
		"short_name":  c.shortName,
		"author_name": c.authorName,
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}

	if err := c.call(ctx, "/createAccount", payload, &result); err != nil {
		return "", err
	}

	if result.AccessToken == "" {
		return "", fmt.Errorf("telegraph: createAccount returned no access token")
	}

	c.accessToken = result.AccessToken

	return c.accessToken, nil
}

// call invokes one API method and decodes the result envelope.
func (c *Client) call(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegraph: encoding %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegraph: creating %s request: %w", path, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegraph: %s: %w", path, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("telegraph: decoding %s response: %w", path, err)
	}

	if !envelope.OK {
		return fmt.Errorf("telegraph: %s failed: %s", path, envelope.Error)
	}

	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("telegraph: decoding %s result: %w", path, err)
	}

	return nil
}

// textToNodes converts plain text to page content, one paragraph per line.
// Blank lines are kept so exports stay readable.
func textToNodes(text string) []node {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")

	nodes := make([]node, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			line = " " // telegra.ph drops empty paragraphs
		}

		nodes = append(nodes, node{Tag: "p", Children: []string{line}})
	}

	return nodes
}
