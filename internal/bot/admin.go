package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rcmario/drivelinkbot/internal/telegram"
)

// recentLogLimit bounds the audit export size.
const recentLogLimit = 500

// handleAdminCommand gates and dispatches the admin command set. Non-admins
// get the same reply as an unknown command so the surface stays
// undiscoverable.
func (b *Bot) handleAdminCommand(ctx context.Context, chatID, userID int64, command, args string) {
	if !b.cfg.Config().IsAdmin(userID) {
		b.sendText(ctx, chatID, unknownCommandText)
		return
	}

	switch command {
	case "/broadcast":
		b.cmdBroadcast(ctx, chatID, args)
	case "/users":
		b.cmdUsers(ctx, chatID)
	case "/telegraph_users":
		b.cmdTelegraphUsers(ctx, chatID)
	case "/logs":
		b.cmdLogs(ctx, chatID)
	case "/telegraph_logs":
		b.cmdTelegraphLogs(ctx, chatID)
	}
}

// cmdBroadcast sends a message to every registered user. Per-user failures
// are logged and counted, never fatal — a single blocked bot must not stop
// the rest of the audience.
func (b *Bot) cmdBroadcast(ctx context.Context, chatID int64, message string) {
	if message == "" {
		b.sendText(ctx, chatID, "Usage: /broadcast <message>")
		return
	}

	ids, err := b.users.UserIDs(ctx)
	if err != nil {
		b.logger.Error("loading broadcast audience failed", slog.String("error", err.Error()))
		b.sendText(ctx, chatID, "Could not load the user list.")

		return
	}

	var sent, failed int

	for _, id := range ids {
		_, sendErr := b.tg.SendMessage(ctx, telegram.SendMessageRequest{
			ChatID: id,
			Text:   message,
		})
		if sendErr != nil {
			failed++

			level := slog.LevelWarn
			if errors.Is(sendErr, telegram.ErrForbidden) {
				// User blocked the bot; expected churn.
				level = slog.LevelDebug
			}

			b.logger.Log(ctx, level, "broadcast delivery failed",
				slog.Int64("user_id", id), slog.String("error", sendErr.Error()))

			continue
		}

		sent++
	}

	b.sendText(ctx, chatID, fmt.Sprintf("Broadcast delivered to %d users, %d failed.", sent, failed))
}

// cmdUsers sends the user registry as a document.
func (b *Bot) cmdUsers(ctx context.Context, chatID int64) {
	report, count, err := b.userReport(ctx)
	if err != nil {
		b.logger.Error("building user report failed", slog.String("error", err.Error()))
		b.sendText(ctx, chatID, "Could not load the user list.")

		return
	}

	_, err = b.tg.SendDocument(ctx, telegram.SendDocumentRequest{
		ChatID:   chatID,
		FileName: "users.txt",
		Content:  strings.NewReader(report),
		Caption:  fmt.Sprintf("%d registered users", count),
	})
	if err != nil {
		b.logger.Error("sending user report failed", slog.String("error", err.Error()))
		b.sendText(ctx, chatID, "Could not send the user list.")
	}
}

// cmdTelegraphUsers publishes the user registry as a telegra.ph page.
func (b *Bot) cmdTelegraphUsers(ctx context.Context, chatID int64) {
	if b.pages == nil {
		b.sendText(ctx, chatID, "Telegraph publishing is not configured.")
		return
	}

	report, count, err := b.userReport(ctx)
	if err != nil {
		b.logger.Error("building user report failed", slog.String("error", err.Error()))
		b.sendText(ctx, chatID, "Could not load the user list.")

		return
	}

	url, err := b.pages.CreatePage(ctx, fmt.Sprintf("Users (%d)", count), report)
	if err != nil {
		b.logger.Error("publishing user report failed", slog.String("error", err.Error()))
		b.sendText(ctx, chatID, "Could not publish the user list.")

		return
	}

	b.sendText(ctx, chatID, url)
}

// cmdLogs sends the recent link-audit ledger as a document.
func (b *Bot) cmdLogs(ctx context.Context, chatID int64) {
	report, count, err := b.linkReport(ctx)
	if err != nil {
		b.logger.Error("building link report failed", slog.String("error", err.Error()))
		b.sendText(ctx, chatID, "Could not load the link log.")

		return
	}

	if count == 0 {
		b.sendText(ctx, chatID, "No link events recorded yet.")
		return
	}

	_, err = b.tg.SendDocument(ctx, telegram.SendDocumentRequest{
		ChatID:   chatID,
		FileName: "links.txt",
		Content:  strings.NewReader(report),
		Caption:  fmt.Sprintf("%d recent link events", count),
	})
	if err != nil {
		b.logger.Error("sending link report failed", slog.String("error", err.Error()))
		b.sendText(ctx, chatID, "Could not send the link log.")
	}
}

// cmdTelegraphLogs publishes the recent link-audit ledger as a telegra.ph
// page.
func (b *Bot) cmdTelegraphLogs(ctx context.Context, chatID int64) {
	if b.pages == nil {
		b.sendText(ctx, chatID, "Telegraph publishing is not configured.")
		return
	}

	report, count, err := b.linkReport(ctx)
	if err != nil {
		b.logger.Error("building link report failed", slog.String("error", err.Error()))
		b.sendText(ctx, chatID, "Could not load the link log.")

		return
	}

	if count == 0 {
		b.sendText(ctx, chatID, "No link events recorded yet.")
		return
	}

	url, err := b.pages.CreatePage(ctx, fmt.Sprintf("Link events (%d)", count), report)
	if err != nil {
		b.logger.Error("publishing link report failed", slog.String("error", err.Error()))
		b.sendText(ctx, chatID, "Could not publish the link log.")

		return
	}

	b.sendText(ctx, chatID, url)
}

// userReport renders the registry as one line per user.
func (b *Bot) userReport(ctx context.Context) (string, int, error) {
	users, err := b.users.Users(ctx)
	if err != nil {
		return "", 0, err
	}

	var sb strings.Builder

	for _, u := range users {
		name := u.Username
		if name == "" {
			name = "-"
		}

		fmt.Fprintf(&sb, "%d\t%s\t%s\n", u.ID, name, u.FirstSeen.Format(time.RFC3339))
	}

	return sb.String(), len(users), nil
}

// linkReport renders the recent audit ledger, newest first.
func (b *Bot) linkReport(ctx context.Context) (string, int, error) {
	events, err := b.users.RecentLinks(ctx, recentLogLimit)
	if err != nil {
		return "", 0, err
	}

	var sb strings.Builder

	for _, ev := range events {
		name := ev.Username
		if name == "" {
			name = "-"
		}

		fmt.Fprintf(&sb, "%s\t%d\t%s\t%s\n",
			ev.CreatedAt.Format(time.RFC3339), ev.UserID, name, ev.FileName)
	}

	return sb.String(), len(events), nil
}
