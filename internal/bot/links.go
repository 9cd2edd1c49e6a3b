package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rcmario/drivelinkbot/internal/graph"
)

// linkWorkers bounds concurrent share-link requests during bulk generation.
const linkWorkers = 4

// linksPerMessage chunks bulk results so one huge folder does not exceed
// the message length limit.
const linksPerMessage = 10

// sendFileLink mints a shareable download link for one file and sends it.
func (b *Bot) sendFileLink(ctx context.Context, chatID, userID int64, username, fileID string) {
	var (
		entry *graph.Entry
		link  string
	)

	err := b.withAuthRetry(ctx, func() error {
		item, itemErr := b.graph.GetItem(ctx, fileID)
		if itemErr != nil {
			return itemErr
		}

		minted, linkErr := b.graph.ShareLink(ctx, fileID)
		if linkErr != nil {
			return linkErr
		}

		entry = item
		link = minted

		return nil
	})
	if err != nil {
		b.reportBrowseError(ctx, chatID, "generating the link", err)
		return
	}

	b.auditLink(ctx, userID, username, entry.Name)

	b.sendText(ctx, chatID, fmt.Sprintf("%s\n%s", entry.Name, b.shortenLink(ctx, link)))
}

// fileLink is one bulk-generation outcome.
type fileLink struct {
	name string
	url  string
	err  error
}

// sendAllLinks generates a download link for every file in the folder —
// the full listing, not just the visible page — through a bounded worker
// pool. Per-file failures are reported inline; they never abort the batch.
func (b *Bot) sendAllLinks(ctx context.Context, chatID, userID int64, username, folderID string) {
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
		b.reportBrowseError(ctx, chatID, "listing the folder", err)
		return
	}

	var files []graph.Entry

	for _, entry := range entries {
		if !entry.IsFolder {
			files = append(files, entry)
		}
	}

	if len(files) == 0 {
		b.sendText(ctx, chatID, "No files in this folder.")
		return
	}

	results := make([]fileLink, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(linkWorkers)

	var mu sync.Mutex

	for i := range files {
		g.Go(func() error {
			file := files[i]
			link, linkErr := b.graph.ShareLink(gctx, file.ID)

			mu.Lock()
			results[i] = fileLink{name: file.Name, url: link, err: linkErr}
			mu.Unlock()

			return nil
		})
	}

	// Workers never return errors, so Wait only synchronizes. The group's
	// derived context is always canceled once Wait returns; only the parent
	// context says whether the interaction was abandoned.
	_ = g.Wait()

	if ctx.Err() != nil {
		return
	}

	b.deliverLinkBatch(ctx, chatID, userID, username, results)
}

// deliverLinkBatch renders bulk results in chunks and audits successes.
func (b *Bot) deliverLinkBatch(ctx context.Context, chatID, userID int64, username string, results []fileLink) {
	var (
		lines  []string
		failed int
	)

	for _, result := range results {
		if result.err != nil {
			failed++

			b.logger.Warn("bulk link generation failed for file",
				slog.String("file", result.name), slog.String("error", result.err.Error()))
			lines = append(lines, result.name+"\n(link unavailable)")

			continue
		}

		b.auditLink(ctx, userID, username, result.name)
		lines = append(lines, result.name+"\n"+b.shortenLink(ctx, result.url))
	}

	for start := 0; start < len(lines); start += linksPerMessage {
		end := start + linksPerMessage
		if end > len(lines) {
			end = len(lines)
		}

		b.sendText(ctx, chatID, strings.Join(lines[start:end], "\n\n"))
	}

	if failed > 0 {
		b.sendText(ctx, chatID, fmt.Sprintf("%d of %d links could not be generated.", failed, len(results)))
	}
}

// shortenLink shortens a URL when a shortener is configured, best effort.
func (b *Bot) shortenLink(ctx context.Context, url string) string {
	if b.shortener == nil {
		return url
	}

	return b.shortener.Shorten(ctx, url)
}

// auditLink records one link generation in the audit ledger, best effort.
func (b *Bot) auditLink(ctx context.Context, userID int64, username, fileName string) {
	if err := b.users.RecordLink(ctx, userID, username, fileName); err != nil {
		b.logger.Warn("recording link event failed",
			slog.Int64("user_id", userID), slog.String("error", err.Error()))
	}
}
