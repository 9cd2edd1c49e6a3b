package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/rcmario/drivelinkbot/internal/tokenfile"
)

// Scopes requested from the identity provider. offline_access grants a
// refresh token so the bot survives the one-hour access token lifetime.
var defaultScopes = []string{
	"offline_access",
	"Files.ReadWrite.All",
}

// Config configures a Manager.
type Config struct {
	ClientID  string
	TenantID  string
	TokenPath string
	Logger    *slog.Logger

	// Endpoint overrides the identity provider endpoints. Zero value means
	// the Microsoft endpoint for the configured tenant; tests point this at
	// a local server.
	Endpoint oauth2.Endpoint
}

// Manager decides whether the stored credential is usable, refreshing or
// demanding re-authentication as needed. All expiry checks and refresh
// exchanges run under one mutex so two near-simultaneous interactions cannot
// race a refresh or double-persist.
type Manager struct {
	mu        sync.Mutex
	oauth     *oauth2.Config
	tokenPath string
	logger    *slog.Logger

	// pending tracks in-flight device flows per user so a second request
	// reports "in progress" instead of minting a duplicate verification code.
	pending map[int64]*Challenge

	// now is the clock; tests override it.
	now func() time.Time
}

// NewManager creates a Manager for the given app registration.
func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	endpoint := cfg.Endpoint
	if endpoint == (oauth2.Endpoint{}) {
		tenant := cfg.TenantID
		if tenant == "" {
			tenant = "common"
		}

		endpoint = microsoft.AzureADEndpoint(tenant)
	}

	return &Manager{
		oauth: &oauth2.Config{
			ClientID: cfg.ClientID,
			Scopes:   defaultScopes,
			Endpoint: endpoint,
		},
		tokenPath: cfg.TokenPath,
		logger:    logger,
		pending:   make(map[int64]*Challenge),
		now:       time.Now,
	}
}

// AccessToken returns a usable bearer token, refreshing the stored
// credential if its expiry has passed. Returns ErrAuthRequired when no
// credential exists, the stored one is corrupt, or it is expired with no
// refresh path (including a rejected refresh). The fast path — stored expiry
// in the future — performs no network calls and returns the stored value
// unchanged.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, err := m.loadLocked()
	if err != nil {
		return "", err
	}

	if tok.Expiry.IsZero() || m.now().Before(tok.Expiry) {
		m.logger.Debug("stored credential valid", slog.Time("expiry", tok.Expiry))
		return tok.AccessToken, nil
	}

	return m.refreshLocked(ctx, tok)
}

// Refresh forces a refresh exchange regardless of the stored expiry. Used
// when the directory API rejects a token the clock still considers valid —
// a 401 re-enters the lifecycle manager here instead of surfacing to the
// user as a generic error.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, err := m.loadLocked()
	if err != nil {
		return "", err
	}

	// Backdate the expiry so the oauth2 transport actually performs the
	// exchange instead of returning the rejected token unchanged.
	tok.Expiry = m.now().Add(-time.Minute)

	return m.refreshLocked(ctx, tok)
}

// LoggedIn reports whether a parseable credential exists on disk. It says
// nothing about expiry — an expired credential with a refresh token is
// still a logged-in session.
func (m *Manager) LoggedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, _, _ := tokenfile.Load(m.tokenPath)

	return tok != nil
}

// Expiry returns the stored credential's expiry, or the zero time when no
// credential exists. Informational only (status command).
func (m *Manager) Expiry() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, _, _ := tokenfile.Load(m.tokenPath)
	if tok == nil {
		return time.Time{}
	}

	return tok.Expiry
}

// Logout removes the stored credential.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return tokenfile.Remove(m.tokenPath)
}

// loadLocked loads the stored credential, mapping every degraded outcome to
// ErrAuthRequired. Caller holds m.mu.
func (m *Manager) loadLocked() (*oauth2.Token, error) {
	tok, report, err := tokenfile.Load(m.tokenPath)
	if err != nil {
		return nil, fmt.Errorf("auth: loading credential: %w", err)
	}

	if report.Degraded {
		m.logger.Warn("stored credential unusable, re-authentication required",
			slog.String("reason", report.Reason),
		)

		return nil, ErrAuthRequired
	}

	if tok == nil {
		return nil, ErrAuthRequired
	}

	return tok, nil
}

// refreshLocked exchanges the refresh token for a fresh credential and
// persists it. The stale file is deliberately left in place on failure — the
// exchange is idempotent, so future calls simply repeat it, and an operator
// can still inspect the old credential. Caller holds m.mu.
func (m *Manager) refreshLocked(ctx context.Context, tok *oauth2.Token) (string, error) {
	if tok.RefreshToken == "" {
		m.logger.Info("credential expired with no refresh token")
		return "", ErrAuthRequired
	}

	m.logger.Info("credential expired, attempting refresh",
		slog.Time("old_expiry", tok.Expiry),
	)

	fresh, err := m.oauth.TokenSource(ctx, tok).Token()
	if err != nil {
		m.logger.Warn("refresh rejected", slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: refresh failed: %v", ErrAuthRequired, err)
	}

	if err := tokenfile.Save(m.tokenPath, fresh, m.oauth.Scopes); err != nil {
		return "", fmt.Errorf("auth: persisting refreshed credential: %w", err)
	}

	m.logger.Info("credential refreshed",
		slog.Time("new_expiry", fresh.Expiry),
	)

	return fresh.AccessToken, nil
}
