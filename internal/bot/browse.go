package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rcmario/drivelinkbot/internal/auth"
	"github.com/rcmario/drivelinkbot/internal/graph"
	"github.com/rcmario/drivelinkbot/internal/nav"
	"github.com/rcmario/drivelinkbot/internal/telegram"
)

// folderView is a rendered folder listing: message text plus button grid.
type folderView struct {
	text   string
	markup *telegram.InlineKeyboardMarkup
}

// sendFolderListing lists a folder and sends one page of it as a new
// message.
func (b *Bot) sendFolderListing(ctx context.Context, chatID int64, folderID string, page int) error {
	view, err := b.renderFolder(ctx, folderID, page)
	if err != nil {
		return err
	}

	_, err = b.tg.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:      chatID,
		Text:        view.text,
		ReplyMarkup: view.markup,
	})
	if err != nil {
		return fmt.Errorf("bot: sending folder listing: %w", err)
	}

	return nil
}

// editFolderListing re-renders a folder page into an existing menu message.
// Paging and folder entry edit in place instead of flooding the chat.
func (b *Bot) editFolderListing(ctx context.Context, chatID, messageID int64, folderID string, page int) error {
	view, err := b.renderFolder(ctx, folderID, page)
	if err != nil {
		return err
	}

	err = b.tg.EditMessageText(ctx, telegram.EditMessageTextRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        view.text,
		ReplyMarkup: view.markup,
	})
	if err != nil {
		// An identical re-render is a user double-tap, not a failure.
		if errors.Is(err, telegram.ErrBadRequest) {
			b.logger.Debug("menu edit rejected",
				slog.Int64("chat_id", chatID), slog.String("error", err.Error()))

			return nil
		}

		return fmt.Errorf("bot: editing folder listing: %w", err)
	}

	return nil
}

// renderFolder lists the folder fresh and builds one page of the menu.
func (b *Bot) renderFolder(ctx context.Context, folderID string, page int) (*folderView, error) {
	var entries []graph.Entry

	err := b.withAuthRetry(ctx, func() error {
		listed, listErr := b.graph.ListChildren(ctx, folderID)
		if listErr != nil {
			return listErr
		}

		entries = listed

		return nil
	})
	if err != nil {
		return nil, err
	}

	return buildFolderView(entries, folderID, page), nil
}

// buildFolderView renders one page of a listing as text plus button grid.
func buildFolderView(entries []graph.Entry, folderID string, page int) *folderView {
	window := nav.Paginate(len(entries), page)

	// The All Links control covers the whole folder, so its presence depends
	// on the full listing, not on what the current page happens to show.
	hasFiles := false

	for _, entry := range entries {
		if !entry.IsFolder {
			hasFiles = true
			break
		}
	}

	if len(entries) == 0 {
		return &folderView{
			text:   "This folder is empty.",
			markup: navigationRow(folderID, window, false),
		}
	}

	if window.Start == window.End {
		return &folderView{
			text:   "No files to display on this page.",
			markup: navigationRow(folderID, window, hasFiles),
		}
	}

	var rows [][]telegram.InlineKeyboardButton

	for _, entry := range entries[window.Start:window.End] {
		var button telegram.InlineKeyboardButton

		if entry.IsFolder {
			button = telegram.InlineKeyboardButton{
				Text:         "📁 " + entry.Name,
				CallbackData: nav.Encode(nav.ActionOpenFolder, entry.ID, 0),
			}
		} else {
			button = telegram.InlineKeyboardButton{
				Text:         fmt.Sprintf("💾 %s (%s)", entry.Name, formatSize(entry.Size)),
				CallbackData: nav.Encode(nav.ActionFetchLink, entry.ID, page),
			}
		}

		rows = append(rows, []telegram.InlineKeyboardButton{button})
	}

	controls := navigationRow(folderID, window, hasFiles)
	rows = append(rows, controls.InlineKeyboard...)

	text := fmt.Sprintf("Page %d of %d. Tap a file for a download link.",
		page+1, pageCount(len(entries)))

	return &folderView{
		text:   text,
		markup: &telegram.InlineKeyboardMarkup{InlineKeyboard: rows},
	}
}

// navigationRow builds the pager and utility controls for a folder page.
func navigationRow(folderID string, window nav.Page, hasFiles bool) *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton

	var pager []telegram.InlineKeyboardButton

	if window.HasPrev {
		pager = append(pager, telegram.InlineKeyboardButton{
			Text:         "⬅️ Prev",
			CallbackData: nav.Encode(nav.ActionPage, folderID, pageIndex(window)-1),
		})
	}

	if window.HasNext {
		pager = append(pager, telegram.InlineKeyboardButton{
			Text:         "Next ➡️",
			CallbackData: nav.Encode(nav.ActionPage, folderID, pageIndex(window)+1),
		})
	}

	if len(pager) > 0 {
		rows = append(rows, pager)
	}

	utility := []telegram.InlineKeyboardButton{{
		Text:         "🏠 Home",
		CallbackData: nav.Encode(nav.ActionHome, "", 0),
	}}

	if hasFiles {
		utility = append(utility, telegram.InlineKeyboardButton{
			Text:         "🔗 All Links",
			CallbackData: nav.Encode(nav.ActionAllLinks, folderID, 0),
		})
	}

	rows = append(rows, utility)

	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// pageIndex recovers the zero-based page number from a window.
func pageIndex(window nav.Page) int {
	return window.Start / nav.PageSize
}

// pageCount is the number of keyboard pages for n entries, at least 1.
func pageCount(n int) int {
	if n == 0 {
		return 1
	}

	return (n + nav.PageSize - 1) / nav.PageSize
}

// formatSize renders a byte count in a compact human-readable form.
func formatSize(size int64) string {
	const unit = 1024

	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGT"[exp])
}

// reportBrowseError converts a browsing failure into a user message plus a
// log entry. auth failures trigger the sign-in flow from the caller side;
// everything else degrades to a short apology.
func (b *Bot) reportBrowseError(ctx context.Context, chatID int64, activity string, err error) {
	switch {
	case errors.Is(err, auth.ErrAuthRequired):
		b.sendText(ctx, chatID, "Your session expired. Send /myfiles to sign in again.")
	case errors.Is(err, graph.ErrNotFound):
		b.sendText(ctx, chatID, "That folder no longer exists. Send /myfiles to start over.")
	default:
		b.sendText(ctx, chatID, "Something went wrong while "+activity+", please try again.")
	}

	b.logger.Error("browse operation failed",
		slog.Int64("chat_id", chatID),
		slog.String("activity", activity),
		slog.String("error", err.Error()),
	)
}
