package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rcmario/drivelinkbot/internal/telegram"
)

// Static reply texts.
const (
	helpText = `Commands:
/myfiles - browse the shared folder
/ping <host> - measure HTTP latency to a host
/uptime - how long the bot has been running
/tutorial - how to use the file browser
/about - about this bot`

	aboutText = `drivelinkbot serves files from a shared OneDrive folder.
Browse with /myfiles, tap a file, and get a direct download link.`

	tutorialText = `1. Send /myfiles to open the shared folder.
2. Tap a 📁 button to enter a folder, Prev/Next to page.
3. Tap a 💾 button to get a download link for that file.
4. All Links generates links for every file in the folder.
5. Home returns to the top folder.`

	unknownCommandText = "Unknown command. Send /help for the command list."
)

// handleMessage dispatches one incoming chat message.
func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}

	command, args := splitCommand(msg.Text)
	if command == "" {
		return
	}

	chatID := msg.Chat.ID
	userID := msg.From.ID

	b.logger.Debug("handling command",
		slog.String("command", command),
		slog.Int64("user_id", userID),
	)

	switch command {
	case "/start":
		b.cmdStart(ctx, chatID, msg.From)
	case "/myfiles":
		b.cmdMyFiles(ctx, chatID, userID)
	case "/ping":
		b.cmdPing(ctx, chatID, args)
	case "/uptime":
		b.cmdUptime(ctx, chatID)
	case "/help":
		b.sendText(ctx, chatID, helpText)
	case "/about":
		b.sendText(ctx, chatID, aboutText)
	case "/tutorial":
		b.sendText(ctx, chatID, tutorialText)
	case "/broadcast", "/users", "/telegraph_users", "/logs", "/telegraph_logs":
		b.handleAdminCommand(ctx, chatID, userID, command, args)
	default:
		b.sendText(ctx, chatID, unknownCommandText)
	}
}

// splitCommand extracts the leading bot command and its argument string.
// The @botname suffix Telegram appends in groups is stripped. Returns an
// empty command for non-command messages.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}

	command, args, _ := strings.Cut(text, " ")
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}

	return strings.ToLower(command), strings.TrimSpace(args)
}

// cmdStart registers the user and shows the persistent keyboard.
func (b *Bot) cmdStart(ctx context.Context, chatID int64, from *telegram.User) {
	if err := b.users.AddUser(ctx, from.ID, from.Username); err != nil {
		b.logger.Error("registering user failed",
			slog.Int64("user_id", from.ID), slog.String("error", err.Error()))
	}

	name := from.FirstName
	if name == "" {
		name = "there"
	}

	keyboard := &telegram.ReplyKeyboardMarkup{
		Keyboard: [][]telegram.KeyboardButton{
			{{Text: "/myfiles"}},
			{{Text: "/help"}, {Text: "/about"}},
			{{Text: "/tutorial"}, {Text: "/uptime"}},
		},
		ResizeKeyboard: true,
	}

	_, err := b.tg.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:      chatID,
		Text:        fmt.Sprintf("Hi %s! Send /myfiles to browse the shared folder.", name),
		ReplyMarkup: keyboard,
	})
	if err != nil {
		b.logger.Warn("sending start reply failed",
			slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
	}
}

// cmdMyFiles opens the landing folder as a fresh browsing session.
func (b *Bot) cmdMyFiles(ctx context.Context, chatID, userID int64) {
	if !b.requireAuth(ctx, chatID, userID) {
		return
	}

	folderID, err := b.resolveLandingFolder(ctx)
	if err != nil {
		b.reportBrowseError(ctx, chatID, "opening the shared folder", err)
		return
	}

	b.sessions.Set(userID, folderID)

	if err := b.sendFolderListing(ctx, chatID, folderID, 0); err != nil {
		b.reportBrowseError(ctx, chatID, "listing the shared folder", err)
	}
}

// cmdPing measures HTTP round-trip latency to a host.
func (b *Bot) cmdPing(ctx context.Context, chatID int64, host string) {
	if host == "" {
		b.sendText(ctx, chatID, "Usage: /ping <host>")
		return
	}

	target := host
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		b.sendText(ctx, chatID, fmt.Sprintf("Cannot ping %s: invalid host.", host))
		return
	}

	start := time.Now()

	resp, err := b.probe.Do(req)
	if err != nil {
		b.sendText(ctx, chatID, fmt.Sprintf("%s is unreachable.", host))
		return
	}
	resp.Body.Close()

	b.sendText(ctx, chatID, fmt.Sprintf("%s answered %d in %d ms.",
		host, resp.StatusCode, time.Since(start).Milliseconds()))
}

// cmdUptime reports time since the bot started.
func (b *Bot) cmdUptime(ctx context.Context, chatID int64) {
	b.sendText(ctx, chatID, "Up for "+formatDuration(time.Since(b.startedAt)))
}

// formatDuration renders a duration as "2d 3h 4m 5s", dropping leading
// zero units.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	seconds := d - minutes*time.Minute

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}

	if hours > 0 || len(parts) > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}

	if minutes > 0 || len(parts) > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}

	parts = append(parts, fmt.Sprintf("%ds", seconds/time.Second))

	return strings.Join(parts, " ")
}
