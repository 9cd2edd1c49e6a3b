package config

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder_ConfigAndPath(t *testing.T) {
	cfg := DefaultConfig()
	h := NewHolder(cfg, "/etc/drivelinkbot/config.toml")

	assert.Same(t, cfg, h.Config())
	assert.Equal(t, "/etc/drivelinkbot/config.toml", h.Path())
}

func TestHolder_Update(t *testing.T) {
	h := NewHolder(DefaultConfig(), "cfg.toml")

	next := DefaultConfig()
	next.Telegram.Workers = 2
	h.Update(next)

	require.Same(t, next, h.Config())
	assert.Equal(t, 2, h.Config().Telegram.Workers)
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	h := NewHolder(DefaultConfig(), "cfg.toml")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()

			for j := 0; j < 100; j++ {
				_ = h.Config().Telegram.Workers
			}
		}()

		go func() {
			defer wg.Done()

			for j := 0; j < 100; j++ {
				h.Update(DefaultConfig())
			}
		}()
	}

	wg.Wait()
	assert.NotNil(t, h.Config())
}
