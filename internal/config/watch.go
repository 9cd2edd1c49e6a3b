package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// reloadDebounce coalesces bursts of write events from editors that save
	// via truncate+write or temp+rename into a single reload.
	reloadDebounce = 250 * time.Millisecond

	watchErrInitBackoff = 100 * time.Millisecond
	watchErrMaxBackoff  = 10 * time.Second
	watchErrBackoffMult = 2
)

// Watch monitors the holder's config file and reloads it on change, updating
// the holder in place. Blocks until ctx is cancelled. A reload that fails
// validation keeps the previous config and logs a warning.
//
// The watch is registered on the parent directory rather than the file itself
// so that rename-based saves (vim, sed -i) keep working after the original
// inode disappears.
func Watch(ctx context.Context, holder *Holder, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(holder.Path())
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}

	logger.Debug("watching config file", slog.String("path", holder.Path()))

	return watchLoop(ctx, watcher, holder, logger)
}

// watchLoop is the main select loop for Watch(). It processes fsnotify
// events, watcher errors, debounce ticks, and context cancellation.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, holder *Holder, logger *slog.Logger) error {
	var debounce *time.Timer

	debounceC := make(chan time.Time, 1)
	errBackoff := watchErrInitBackoff

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}

			return nil

		case fsEvent, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isConfigEvent(fsEvent, holder.Path()) {
				continue
			}

			// Reset the debounce window on every relevant event.
			if debounce != nil {
				debounce.Stop()
			}

			debounce = time.AfterFunc(reloadDebounce, func() {
				select {
				case debounceC <- time.Now():
				default:
				}
			})

			// Successful event resets error backoff.
			errBackoff = watchErrInitBackoff

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("config watcher error",
				slog.String("error", watchErr.Error()),
				slog.Duration("backoff", errBackoff),
			)

			// Exponential backoff prevents a tight loop under sustained errors.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(errBackoff):
			}

			errBackoff *= watchErrBackoffMult
			if errBackoff > watchErrMaxBackoff {
				errBackoff = watchErrMaxBackoff
			}

		case <-debounceC:
			reload(holder, logger)
		}
	}
}

// isConfigEvent reports whether an fsnotify event concerns the config file
// and represents a content change.
func isConfigEvent(ev fsnotify.Event, path string) bool {
	if filepath.Clean(ev.Name) != filepath.Clean(path) {
		return false
	}

	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// reload re-parses and validates the config file, updating the holder on
// success. Failures leave the previous config in effect.
func reload(holder *Holder, logger *slog.Logger) {
	cfg, err := Load(holder.Path())
	if err != nil {
		logger.Warn("config reload failed, keeping previous config",
			slog.String("path", holder.Path()), slog.String("error", err.Error()))

		return
	}

	applyPathDefaults(cfg)
	holder.Update(cfg)
	logger.Info("config reloaded", slog.String("path", holder.Path()))
}
