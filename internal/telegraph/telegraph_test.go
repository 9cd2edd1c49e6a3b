package telegraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewClient(server.URL, server.Client(), "drivelinkbot", "drivelinkbot", logger)
}

func TestCreatePage_CreatesAccountOnce(t *testing.T) {
	var accountCalls, pageCalls int

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/createAccount":
			accountCalls++
			fmt.Fprint(w, `{"ok":true,"result":{"access_token":"tok-1"}}`)
		case "/createPage":
			pageCalls++

			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "tok-1", payload["access_token"])

			fmt.Fprint(w, `{"ok":true,"result":{"url":"https://telegra.ph/page-1"}}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	url, err := client.CreatePage(context.Background(), "Users", "100 mario\n200 luigi")
	require.NoError(t, err)
	assert.Equal(t, "https://telegra.ph/page-1", url)

	// Second publish reuses the cached token.
	_, err = client.CreatePage(context.Background(), "Users", "more")
	require.NoError(t, err)
	assert.Equal(t, 1, accountCalls)
	assert.Equal(t, 2, pageCalls)
}

func TestCreatePage_AccountFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"ok":false,"error":"SHORT_NAME_REQUIRED"}`)
	}))

	_, err := client.CreatePage(context.Background(), "Users", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHORT_NAME_REQUIRED")
}

func TestCreatePage_PageFailureLeavesTokenCached(t *testing.T) {
	var accountCalls int

	fail := true

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/createAccount":
			accountCalls++
			fmt.Fprint(w, `{"ok":true,"result":{"access_token":"tok-1"}}`)
		case "/createPage":
			if fail {
				fmt.Fprint(w, `{"ok":false,"error":"CONTENT_TEXT_REQUIRED"}`)
				return
			}

			fmt.Fprint(w, `{"ok":true,"result":{"url":"https://telegra.ph/page-2"}}`)
		}
	}))

	_, err := client.CreatePage(context.Background(), "Logs", "text")
	require.Error(t, err)

	fail = false

	url, err := client.CreatePage(context.Background(), "Logs", "text")
	require.NoError(t, err)
	assert.Equal(t, "https://telegra.ph/page-2", url)
	assert.Equal(t, 1, accountCalls)
}

func TestTextToNodes(t *testing.T) {
	nodes := textToNodes("first\n\nsecond\n")

	require.Len(t, nodes, 3)
	assert.Equal(t, []string{"first"}, nodes[0].Children)
	assert.Equal(t, []string{" "}, nodes[1].Children)
	assert.Equal(t, []string{"second"}, nodes[2].Children)
}
