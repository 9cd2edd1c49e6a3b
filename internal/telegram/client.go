package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// DefaultBaseURL is the production Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// Retry and backoff constants.
const (
	maxRetries     = 5
	baseBackoff    = 1 * time.Second
	maxBackoff     = 60 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
)

// Client is an HTTP client for the Telegram Bot API. It handles request
// construction, the ok/result response envelope, retry with exponential
// backoff, and flood-control delays.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger

	// sleepFunc is called to wait between retries. Defaults to timeSleep.
	// Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Bot API client. baseURL is typically DefaultBaseURL.
func NewClient(baseURL, token string, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
		logger:     logger,
		sleepFunc:  timeSleep,
	}
}

// apiResponse is the Bot API response envelope.
type apiResponse struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Description string              `json:"description,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

// call invokes a Bot API method with a JSON payload and decodes the result
// into out (which may be nil for methods whose result is ignored). Payloads
// are marshaled once so retries replay the identical request.
func (c *Client) call(ctx context.Context, method string, payload, out any) error {
	var body []byte

	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("telegram: encoding %s payload: %w", method, err)
		}

		body = encoded
	}

	var attempt int
	for {
		raw, apiErr := c.callOnce(ctx, method, body)
		if apiErr == nil {
			if out != nil {
				if err := json.Unmarshal(raw, out); err != nil {
					return fmt.Errorf("telegram: decoding %s result: %w", method, err)
				}
			}

			return nil
		}

		if ctx.Err() != nil {
			return fmt.Errorf("telegram: %s canceled: %w", method, ctx.Err())
		}

		retryable, backoff := c.retryPlan(apiErr, attempt)
		if !retryable || attempt >= maxRetries {
			return apiErr
		}

		c.logger.Warn("retrying Bot API call",
			slog.String("method", method),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
			slog.String("error", apiErr.Error()),
		)

		if err := c.sleepFunc(ctx, backoff); err != nil {
			return fmt.Errorf("telegram: %s canceled: %w", method, err)
		}

		attempt++
	}
}

// callOnce executes a single Bot API request and unwraps the envelope.
func (c *Client) callOnce(ctx context.Context, method string, body []byte) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), reader)
	if err != nil {
		return nil, fmt.Errorf("telegram: creating %s request: %w", method, err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()

	return decodeEnvelope(resp.Body, method)
}

// decodeEnvelope parses the ok/result wrapper and converts failures to
// *APIError.
func decodeEnvelope(r io.Reader, method string) (json.RawMessage, error) {
	var envelope apiResponse
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("telegram: decoding %s response: %w", method, err)
	}

	if !envelope.OK {
		apiErr := &APIError{
			Code:        envelope.ErrorCode,
			Description: envelope.Description,
			Err:         classifyCode(envelope.ErrorCode),
		}

		if envelope.Parameters != nil && envelope.Parameters.RetryAfter > 0 {
			apiErr.Description = fmt.Sprintf("%s (retry after %ds)",
				envelope.Description, envelope.Parameters.RetryAfter)
			apiErr.retryAfter = time.Duration(envelope.Parameters.RetryAfter) * time.Second
		}

		return nil, apiErr
	}

	return envelope.Result, nil
}

// retryPlan decides whether an error is retryable and with what delay.
// Flood-control responses dictate their own delay; transport and 5xx errors
// use exponential backoff.
func (c *Client) retryPlan(err error, attempt int) (bool, time.Duration) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if !isRetryableCode(apiErr.Code) {
			return false, 0
		}

		if apiErr.retryAfter > 0 {
			return true, apiErr.retryAfter
		}

		return true, c.calcBackoff(attempt)
	}

	// Transport-level failure.
	return true, c.calcBackoff(attempt)
}

// calcBackoff computes exponential backoff with ±25% jitter.
func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

// methodURL builds the full URL for a Bot API method.
func (c *Client) methodURL(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

// SendDocumentRequest describes a document upload.
type SendDocumentRequest struct {
	ChatID   int64
	FileName string
	Content  io.Reader
	Caption  string
}

// SendDocument uploads a file as a chat document via multipart form data.
// Uploads are not retried: the content reader cannot be replayed.
func (c *Client) SendDocument(ctx context.Context, req SendDocumentRequest) (*Message, error) {
	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("chat_id", strconv.FormatInt(req.ChatID, 10)); err != nil {
		return nil, fmt.Errorf("telegram: building sendDocument form: %w", err)
	}

	if req.Caption != "" {
		if err := writer.WriteField("caption", req.Caption); err != nil {
			return nil, fmt.Errorf("telegram: building sendDocument form: %w", err)
		}
	}

	part, err := writer.CreateFormFile("document", req.FileName)
	if err != nil {
		return nil, fmt.Errorf("telegram: building sendDocument form: %w", err)
	}

	if _, err := io.Copy(part, req.Content); err != nil {
		return nil, fmt.Errorf("telegram: reading document content: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("telegram: building sendDocument form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), &buf)
	if err != nil {
		return nil, fmt.Errorf("telegram: creating sendDocument request: %w", err)
	}

	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("telegram: sendDocument: %w", err)
	}
	defer resp.Body.Close()

	raw, err := decodeEnvelope(resp.Body, "sendDocument")
	if err != nil {
		return nil, err
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("telegram: decoding sendDocument result: %w", err)
	}

	return &msg, nil
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Client.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
