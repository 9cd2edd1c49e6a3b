// Package bot wires the chat transport, credential lifecycle, directory
// client, and navigation state into the interactive file-browser bot. Each
// incoming update is handled inside its own error boundary so one failing
// interaction never takes down the serve loop.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rcmario/drivelinkbot/internal/auth"
	"github.com/rcmario/drivelinkbot/internal/config"
	"github.com/rcmario/drivelinkbot/internal/graph"
	"github.com/rcmario/drivelinkbot/internal/session"
	"github.com/rcmario/drivelinkbot/internal/shorten"
	"github.com/rcmario/drivelinkbot/internal/telegram"
	"github.com/rcmario/drivelinkbot/internal/telegraph"
	"github.com/rcmario/drivelinkbot/internal/userdb"
)

// Options collects the bot's collaborators. All fields are required except
// Pages and Shortener, which degrade their features when nil.
type Options struct {
	Config    *config.Holder
	Telegram  *telegram.Client
	Auth      *auth.Manager
	Graph     *graph.Client
	Users     *userdb.Store
	Pages     *telegraph.Client
	Shortener *shorten.Shortener
	Logger    *slog.Logger

	// ProbeClient serves the /ping latency probe. Defaults to a client with
	// a short timeout.
	ProbeClient *http.Client
}

// Bot is the chat-facing application core.
type Bot struct {
	cfg       *config.Holder
	tg        *telegram.Client
	auth      *auth.Manager
	graph     *graph.Client
	sessions  *session.Registry
	users     *userdb.Store
	pages     *telegraph.Client
	shortener *shorten.Shortener
	logger    *slog.Logger
	probe     *http.Client

	startedAt time.Time

	// flowCtx outlives individual update handlers so a device-flow poll
	// keeps running after the triggering interaction returns. Set by Run.
	flowCtx context.Context
}

// New creates a Bot. Run must be called before updates are handled.
func New(opts Options) *Bot {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	probe := opts.ProbeClient
	if probe == nil {
		probe = &http.Client{Timeout: 10 * time.Second}
	}

	return &Bot{
		cfg:       opts.Config,
		tg:        opts.Telegram,
		auth:      opts.Auth,
		graph:     opts.Graph,
		sessions:  session.NewRegistry(),
		users:     opts.Users,
		pages:     opts.Pages,
		shortener: opts.Shortener,
		logger:    logger,
		probe:     probe,
		startedAt: time.Now(),
		flowCtx:   context.Background(),
	}
}

// TokenSource adapts the credential lifecycle manager to the directory
// client's token interface.
type TokenSource struct {
	Manager *auth.Manager
}

// Token implements graph.TokenSource. The manager handles expiry checking
// and refresh internally; a missing or dead credential surfaces as
// auth.ErrAuthRequired.
func (t TokenSource) Token() (string, error) {
	return t.Manager.AccessToken(context.Background())
}

// sendText sends a plain text reply, logging failures instead of
// propagating them. Used for best-effort user notifications.
func (b *Bot) sendText(ctx context.Context, chatID int64, text string) {
	_, err := b.tg.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		b.logger.Warn("sending message failed",
			slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
	}
}

// requireAuth resolves an access-token availability check into user-facing
// behavior. Returns true when the caller can proceed with a directory
// operation. On a missing or dead credential it starts (or reports on) a
// device flow and returns false.
func (b *Bot) requireAuth(ctx context.Context, chatID, userID int64) bool {
	_, err := b.auth.AccessToken(ctx)
	if err == nil {
		return true
	}

	if !errors.Is(err, auth.ErrAuthRequired) {
		b.logger.Error("credential check failed",
			slog.Int64("user_id", userID), slog.String("error", err.Error()))
		b.sendText(ctx, chatID, "Sign-in service is unavailable right now, please try again later.")

		return false
	}

	b.beginSignIn(ctx, chatID, userID)

	return false
}

// beginSignIn starts a device-code flow and notifies the user. The poll for
// completion runs on the bot's long-lived context so it survives the
// triggering update handler.
func (b *Bot) beginSignIn(ctx context.Context, chatID, userID int64) {
	challenge, err := b.auth.BeginDeviceFlow(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrFlowInProgress):
			b.sendText(ctx, chatID, "A sign-in code is already pending. Enter the code you were given, or wait for it to expire.")
		case errors.Is(err, auth.ErrProviderUnavailable):
			b.sendText(ctx, chatID, "Sign-in service is unavailable right now, please try again later.")
		default:
			b.logger.Error("starting device flow failed",
				slog.Int64("user_id", userID), slog.String("error", err.Error()))
			b.sendText(ctx, chatID, "Could not start sign-in, please try again later.")
		}

		return
	}

	b.sendText(ctx, chatID, fmt.Sprintf(
		"Sign in required.\n\nOpen %s and enter code:\n\n%s",
		challenge.VerificationURI, challenge.UserCode))

	go b.awaitSignIn(chatID, userID, challenge)
}

// awaitSignIn blocks on device-flow completion and reports the outcome.
func (b *Bot) awaitSignIn(chatID, userID int64, challenge *auth.Challenge) {
	_, err := b.auth.Await(b.flowCtx, userID, challenge)
	if err != nil {
		if errors.Is(err, auth.ErrDeniedOrExpired) {
			b.sendText(b.flowCtx, chatID, "Sign-in was denied or the code expired. Send /myfiles to try again.")
		} else {
			b.logger.Warn("device flow failed",
				slog.Int64("user_id", userID), slog.String("error", err.Error()))
			b.sendText(b.flowCtx, chatID, "Sign-in did not complete, please try again later.")
		}

		return
	}

	b.logger.Info("device flow completed", slog.Int64("user_id", userID))
	b.sendText(b.flowCtx, chatID, "Signed in. Send /myfiles to browse your files.")
}

// withAuthRetry runs a directory operation, converting a stale-credential
// 401 into one forced refresh and retry. A second failure falls through to
// the device flow via the returned error.
func (b *Bot) withAuthRetry(ctx context.Context, op func() error) error {
	err := op()
	if err == nil || !errors.Is(err, graph.ErrUnauthorized) {
		return err
	}

	if _, refreshErr := b.auth.Refresh(ctx); refreshErr != nil {
		return fmt.Errorf("bot: refreshing rejected credential: %w", refreshErr)
	}

	return op()
}
