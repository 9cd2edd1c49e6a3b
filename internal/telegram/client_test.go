package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopSleep makes retry tests instant.
func noopSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient(server.URL, "test-token", server.Client(), logger)
	client.sleepFunc = noopSleep

	return client, server
}

func okEnvelope(result any) string {
	raw, _ := json.Marshal(result)
	return fmt.Sprintf(`{"ok":true,"result":%s}`, raw)
}

func TestClient_TokenInURL(t *testing.T) {
	var gotPath string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, okEnvelope(User{ID: 42, Username: "testbot"}))
	}))

	me, err := client.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/bottest-token/getMe", gotPath)
	assert.Equal(t, int64(42), me.ID)
	assert.Equal(t, "testbot", me.Username)
}

func TestGetUpdates_DecodesUpdates(t *testing.T) {
	var gotBody getUpdatesRequest

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		fmt.Fprint(w, `{"ok":true,"result":[
			{"update_id":7,"message":{"message_id":1,"chat":{"id":100,"type":"private"},"text":"/start","from":{"id":100,"first_name":"Mario"}}},
			{"update_id":8,"callback_query":{"id":"cb1","from":{"id":100,"first_name":"Mario"},"data":"folder:abc:0"}}
		]}`)
	}))

	updates, err := client.GetUpdates(context.Background(), 7, 50)
	require.NoError(t, err)
	require.Len(t, updates, 2)

	assert.Equal(t, int64(7), gotBody.Offset)
	assert.Equal(t, 50, gotBody.Timeout)
	assert.Equal(t, []string{"message", "callback_query"}, gotBody.AllowedUpdates)

	require.NotNil(t, updates[0].Message)
	assert.Equal(t, "/start", updates[0].Message.Text)
	require.NotNil(t, updates[1].CallbackQuery)
	assert.Equal(t, "folder:abc:0", updates[1].CallbackQuery.Data)
}

func TestSendMessage_ErrorEnvelope(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)
	}))

	_, err := client.SendMessage(context.Background(), SendMessageRequest{ChatID: 100, Text: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbidden)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Code)
	assert.Contains(t, apiErr.Description, "blocked")
}

func TestCall_BadRequestNotRetried(t *testing.T) {
	var calls int

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`)
	}))

	err := client.EditMessageText(context.Background(), EditMessageTextRequest{ChatID: 1, MessageID: 2, Text: "same"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Equal(t, 1, calls, "400 must not be retried")
}

func TestCall_FloodControlRetried(t *testing.T) {
	var calls int

	var sleeps []time.Duration

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":3}}`)
			return
		}

		fmt.Fprint(w, okEnvelope(Message{MessageID: 9}))
	}))

	client.sleepFunc = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}

	msg, err := client.SendMessage(context.Background(), SendMessageRequest{ChatID: 1, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), msg.MessageID)
	assert.Equal(t, 2, calls)
	require.Len(t, sleeps, 1)
	assert.Equal(t, 3*time.Second, sleeps[0], "flood control dictates the delay")
}

func TestCall_ServerErrorRetried(t *testing.T) {
	var calls int

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			fmt.Fprint(w, `{"ok":false,"error_code":502,"description":"Bad Gateway"}`)
			return
		}

		fmt.Fprint(w, okEnvelope(Message{MessageID: 1}))
	}))

	_, err := client.SendMessage(context.Background(), SendMessageRequest{ChatID: 1, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestCall_RetriesExhausted(t *testing.T) {
	var calls int

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		fmt.Fprint(w, `{"ok":false,"error_code":502,"description":"Bad Gateway"}`)
	}))

	_, err := client.SendMessage(context.Background(), SendMessageRequest{ChatID: 1, Text: "hi"})
	require.Error(t, err)
	assert.Equal(t, maxRetries+1, calls)
}

func TestCall_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		cancel()
		fmt.Fprint(w, `{"ok":false,"error_code":502,"description":"Bad Gateway"}`)
	}))

	_, err := client.SendMessage(ctx, SendMessageRequest{ChatID: 1, Text: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnswerCallbackQuery_Payload(t *testing.T) {
	var gotBody answerCallbackQueryRequest

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	}))

	err := client.AnswerCallbackQuery(context.Background(), "cb1", "unknown action")
	require.NoError(t, err)
	assert.Equal(t, "cb1", gotBody.CallbackQueryID)
	assert.Equal(t, "unknown action", gotBody.Text)
}

func TestSendDocument_MultipartUpload(t *testing.T) {
	var (
		gotChatID   string
		gotFileName string
		gotContent  string
	)

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotChatID = r.FormValue("chat_id")

		file, header, err := r.FormFile("document")
		require.NoError(t, err)
		defer file.Close()

		gotFileName = header.Filename

		content, err := io.ReadAll(file)
		require.NoError(t, err)
		gotContent = string(content)

		fmt.Fprint(w, okEnvelope(Message{MessageID: 5}))
	}))

	msg, err := client.SendDocument(context.Background(), SendDocumentRequest{
		ChatID:   100,
		FileName: "users.txt",
		Content:  strings.NewReader("100 mario\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), msg.MessageID)
	assert.Equal(t, "100", gotChatID)
	assert.Equal(t, "users.txt", gotFileName)
	assert.Equal(t, "100 mario\n", gotContent)
}

func TestSendDocument_NotRetried(t *testing.T) {
	var calls int

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		fmt.Fprint(w, `{"ok":false,"error_code":502,"description":"Bad Gateway"}`)
	}))

	_, err := client.SendDocument(context.Background(), SendDocumentRequest{
		ChatID:   100,
		FileName: "users.txt",
		Content:  strings.NewReader("data"),
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "uploads are single-shot")
}

func TestDecodeEnvelope_Garbage(t *testing.T) {
	_, err := decodeEnvelope(strings.NewReader("<html>gateway error</html>"), "getMe")
	require.Error(t, err)
	assert.False(t, errors.As(err, new(*APIError)))
}
