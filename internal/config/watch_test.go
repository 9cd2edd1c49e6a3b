package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitForWorkers(t *testing.T, h *Holder, want int) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if h.Config().Telegram.Workers == want {
			return
		}

		time.Sleep(20 * time.Millisecond)
	}

	t.Fatalf("config never reloaded: workers = %d, want %d", h.Config().Telegram.Workers, want)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeConfigFile(t, `
[telegram]
workers = 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Telegram.Workers)

	h := NewHolder(cfg, path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Watch(ctx, h, discardLogger()) }()

	// Give the watcher time to register before mutating the file.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("[telegram]\nworkers = 5\n"), 0o600))
	waitForWorkers(t, h, 5)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatch_InvalidReloadKeepsPrevious(t *testing.T) {
	path := writeConfigFile(t, `
[telegram]
workers = 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	h := NewHolder(cfg, path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Watch(ctx, h, discardLogger()) }()

	time.Sleep(100 * time.Millisecond)

	// Broken TOML must not replace the live config.
	require.NoError(t, os.WriteFile(path, []byte("[telegram\nworkers ="), 0o600))
	time.Sleep(2 * reloadDebounce)
	assert.Equal(t, 3, h.Config().Telegram.Workers)

	// A subsequent valid write recovers.
	require.NoError(t, os.WriteFile(path, []byte("[telegram]\nworkers = 7\n"), 0o600))
	waitForWorkers(t, h, 7)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatch_MissingDirFails(t *testing.T) {
	h := NewHolder(DefaultConfig(), "/nonexistent-dir-for-test/config.toml")

	err := Watch(context.Background(), h, discardLogger())
	assert.Error(t, err)
}

func TestIsConfigEvent(t *testing.T) {
	path := "/etc/app/config.toml"

	assert.True(t, isConfigEvent(fsnotify.Event{Name: path, Op: fsnotify.Write}, path))
	assert.True(t, isConfigEvent(fsnotify.Event{Name: path, Op: fsnotify.Create}, path))
	assert.False(t, isConfigEvent(fsnotify.Event{Name: path, Op: fsnotify.Chmod}, path))
	assert.False(t, isConfigEvent(fsnotify.Event{Name: "/etc/app/other.toml", Op: fsnotify.Write}, path))
}
