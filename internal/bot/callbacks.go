package bot

import (
	"context"
	"log/slog"

	"github.com/rcmario/drivelinkbot/internal/nav"
	"github.com/rcmario/drivelinkbot/internal/telegram"
)

// handleCallback dispatches one inline-button press. The payload is decoded
// through the navigation codec; anything malformed is acknowledged as an
// unknown action and dropped — stale or corrupted buttons must never crash
// a handler.
func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	token, err := nav.Decode(cb.Data)
	if err != nil {
		b.logger.Warn("undecodable callback payload",
			slog.Int64("user_id", cb.From.ID),
			slog.String("data", cb.Data),
			slog.String("error", err.Error()),
		)
		b.answerCallback(ctx, cb.ID, "unknown action")

		return
	}

	if cb.Message == nil {
		// The menu message is too old for Telegram to reference.
		b.answerCallback(ctx, cb.ID, "This menu has expired. Send /myfiles for a fresh one.")
		return
	}

	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	userID := cb.From.ID

	if !b.requireAuth(ctx, chatID, userID) {
		b.answerCallback(ctx, cb.ID, "")
		return
	}

	switch token.Action {
	case nav.ActionOpenFolder:
		b.answerCallback(ctx, cb.ID, "")
		b.sessions.Set(userID, token.Target)

		if err := b.editFolderListing(ctx, chatID, messageID, token.Target, 0); err != nil {
			b.reportBrowseError(ctx, chatID, "opening the folder", err)
		}

	case nav.ActionPage:
		b.answerCallback(ctx, cb.ID, "")
		b.sessions.Set(userID, token.Target)

		if err := b.editFolderListing(ctx, chatID, messageID, token.Target, token.Page); err != nil {
			b.reportBrowseError(ctx, chatID, "turning the page", err)
		}

	case nav.ActionHome:
		b.goHome(ctx, cb, chatID, messageID, userID)

	case nav.ActionFetchLink:
		b.answerCallback(ctx, cb.ID, "Generating link…")
		b.sendFileLink(ctx, chatID, userID, cb.From.Username, token.Target)

	case nav.ActionAllLinks:
		b.answerCallback(ctx, cb.ID, "Generating links…")
		b.sendAllLinks(ctx, chatID, userID, cb.From.Username, token.Target)

	default:
		// Decode guarantees a known action; kept for future wire values.
		b.answerCallback(ctx, cb.ID, "unknown action")
	}
}

// goHome returns to the landing folder. The landing folder is always
// re-resolved by name rather than trusted from the session, so a stale or
// recreated folder cannot strand the user.
func (b *Bot) goHome(ctx context.Context, cb *telegram.CallbackQuery, chatID, messageID, userID int64) {
	landingID, err := b.resolveLandingFolder(ctx)
	if err != nil {
		b.answerCallback(ctx, cb.ID, "")
		b.reportBrowseError(ctx, chatID, "returning home", err)

		return
	}

	if current, ok := b.sessions.Get(userID); ok && current == landingID {
		b.answerCallback(ctx, cb.ID, "You are already in the home folder.")
		return
	}

	b.answerCallback(ctx, cb.ID, "")
	b.sessions.Set(userID, landingID)

	if err := b.editFolderListing(ctx, chatID, messageID, landingID, 0); err != nil {
		b.reportBrowseError(ctx, chatID, "returning home", err)
	}
}

// answerCallback acknowledges a button press, best effort.
func (b *Bot) answerCallback(ctx context.Context, callbackID, text string) {
	if err := b.tg.AnswerCallbackQuery(ctx, callbackID, text); err != nil {
		b.logger.Debug("answering callback failed",
			slog.String("callback_id", callbackID), slog.String("error", err.Error()))
	}
}
