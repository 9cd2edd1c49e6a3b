package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/rcmario/drivelinkbot/internal/tokenfile"
)

// Challenge is the human-presentable half of a pending device flow: the URL
// and short code the user completes out of band, plus the handle used to
// await completion.
type Challenge struct {
	ID              string
	UserCode        string
	VerificationURI string

	response *oauth2.DeviceAuthResponse
}

// BeginDeviceFlow initiates the device-code handshake for a user. Returns
// ErrFlowInProgress if this user already has a flow pending — the duplicate
// request must surface "authentication in progress", not mint a second
// verification code. Provider faults map to ErrProviderUnavailable.
func (m *Manager) BeginDeviceFlow(ctx context.Context, userID int64) (*Challenge, error) {
	// Reserve the slot before any network call so two simultaneous requests
	// cannot both pass the check.
	m.mu.Lock()

	if _, exists := m.pending[userID]; exists {
		m.mu.Unlock()
		return nil, ErrFlowInProgress
	}

	placeholder := &Challenge{ID: uuid.New().String()}
	m.pending[userID] = placeholder
	m.mu.Unlock()

	m.logger.Info("starting device code flow",
		slog.Int64("user_id", userID),
		slog.String("flow_id", placeholder.ID),
	)

	da, err := m.oauth.DeviceAuth(ctx)
	if err != nil {
		m.clearFlow(userID)
		return nil, fmt.Errorf("%w: device auth request: %v", ErrProviderUnavailable, err)
	}

	placeholder.UserCode = da.UserCode
	placeholder.VerificationURI = da.VerificationURI
	placeholder.response = da

	m.logger.Info("device code issued, waiting for user authorization",
		slog.Int64("user_id", userID),
		slog.Time("code_expiry", da.Expiry),
	)

	return placeholder, nil
}

// Await blocks until the user completes the out-of-band step, denies
// consent, or the device code expires. On success the credential is
// persisted and the flow slot is released. The wait is bounded by the code's
// own expiry and by ctx — canceling ctx abandons the flow without leaking
// the polling loop.
func (m *Manager) Await(ctx context.Context, userID int64, ch *Challenge) (*oauth2.Token, error) {
	defer m.clearFlow(userID)

	if ch == nil || ch.response == nil {
		return nil, fmt.Errorf("auth: await called without a device auth response")
	}

	// DeviceAccessToken polls the token endpoint, honoring the provider's
	// interval and slow_down responses, until ctx or the code expires.
	pollCtx := ctx
	if !ch.response.Expiry.IsZero() {
		var cancel context.CancelFunc

		pollCtx, cancel = context.WithDeadline(ctx, ch.response.Expiry)
		defer cancel()
	}

	tok, err := m.oauth.DeviceAccessToken(pollCtx, ch.response)
	if err != nil {
		return nil, m.classifyFlowFailure(userID, err)
	}

	if err := tokenfile.Save(m.tokenPath, tok, m.oauth.Scopes); err != nil {
		return nil, fmt.Errorf("auth: persisting credential: %w", err)
	}

	m.logger.Info("device flow completed",
		slog.Int64("user_id", userID),
		slog.String("flow_id", ch.ID),
		slog.Time("expiry", tok.Expiry),
	)

	return tok, nil
}

// FlowPending reports whether the user has a device flow in flight.
func (m *Manager) FlowPending(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.pending[userID]

	return ok
}

// clearFlow releases a user's pending-flow slot.
func (m *Manager) clearFlow(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.pending, userID)
}

// classifyFlowFailure splits device-flow errors into "user said no / too
// late" (do not retry) and "provider hiccup" (retry once is safe).
func (m *Manager) classifyFlowFailure(userID int64, err error) error {
	m.logger.Warn("device flow failed",
		slog.Int64("user_id", userID),
		slog.String("error", err.Error()),
	)

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: device code expired", ErrDeniedOrExpired)
	}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch re.ErrorCode {
		case "authorization_declined", "expired_token", "access_denied":
			return fmt.Errorf("%w: %s", ErrDeniedOrExpired, re.ErrorCode)
		}
	}

	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
