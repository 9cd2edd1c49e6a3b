package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/rcmario/drivelinkbot/internal/telegram"
)

// Run drives the long-poll loop until ctx is cancelled. Updates are handled
// through a bounded worker pool so a slow directory call for one user does
// not stall everyone else.
func (b *Bot) Run(ctx context.Context) error {
	b.flowCtx = ctx

	cfg := b.cfg.Config()

	me, err := b.tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("bot: verifying bot token: %w", err)
	}

	b.logger.Info("bot started",
		slog.String("username", me.Username),
		slog.Int("workers", cfg.Telegram.Workers),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Telegram.Workers)

	var offset int64

	for {
		if gctx.Err() != nil {
			break
		}

		updates, err := b.tg.GetUpdates(gctx, offset, b.cfg.Config().Telegram.PollTimeout)
		if err != nil {
			if gctx.Err() != nil {
				break
			}

			// The client already exhausted its retries; log and poll again.
			b.logger.Error("polling for updates failed", slog.String("error", err.Error()))

			continue
		}

		for i := range updates {
			update := updates[i]

			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}

			g.Go(func() error {
				b.handleUpdate(gctx, &update)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("bot: worker pool: %w", err)
	}

	b.logger.Info("bot stopped")

	return nil
}

// handleUpdate is the per-interaction error boundary. Panics and errors are
// logged; nothing escapes to the serve loop.
func (b *Bot) handleUpdate(ctx context.Context, update *telegram.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while handling update",
				slog.Int64("update_id", update.UpdateID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}
