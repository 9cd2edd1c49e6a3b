package telegram

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for Bot API failures, matched with errors.Is.
var (
	// ErrBadRequest covers malformed requests (HTTP 400), e.g. editing a
	// message with identical content.
	ErrBadRequest = errors.New("telegram: bad request")

	// ErrForbidden means the bot cannot reach the chat — typically the user
	// blocked the bot. Broadcast treats this as a per-user skip.
	ErrForbidden = errors.New("telegram: forbidden")

	// ErrUnauthorized means the bot token is invalid.
	ErrUnauthorized = errors.New("telegram: unauthorized")
)

// APIError is a Bot API-level failure (ok=false envelope).
type APIError struct {
	Code        int
	Description string
	Err         error // sentinel, may be nil

	// retryAfter is the flood-control delay from response parameters.
	retryAfter time.Duration
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: API error %d: %s", e.Code, e.Description)
}

// Unwrap returns the sentinel error for errors.Is matching.
func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyCode maps a Bot API error code to a sentinel error.
func classifyCode(code int) error {
	switch code {
	case 400:
		return ErrBadRequest
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	default:
		return nil
	}
}

// isRetryableCode reports whether an API error code warrants a retry.
// 429 is flood control; 5xx is a Telegram-side fault.
func isRetryableCode(code int) bool {
	return code == 429 || code >= 500
}
