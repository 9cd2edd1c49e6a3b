package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcmario/drivelinkbot/internal/config"
)

func TestNewRootCmd_SubcommandsRegistered(t *testing.T) {
	cmd := newRootCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "login")
	assert.Contains(t, names, "logout")
	assert.Contains(t, names, "status")
	assert.Contains(t, names, "config")
}

func TestNewRootCmd_SilencesCobraOutput(t *testing.T) {
	cmd := newRootCmd()

	assert.True(t, cmd.SilenceErrors)
	assert.True(t, cmd.SilenceUsage)
}

func TestBuildLogger_FlagPrecedence(t *testing.T) {
	origCfg, origVerbose, origQuiet := resolvedCfg, flagVerbose, flagQuiet

	t.Cleanup(func() {
		resolvedCfg, flagVerbose, flagQuiet = origCfg, origVerbose, origQuiet
	})

	resolvedCfg = config.DefaultConfig()
	resolvedCfg.Logging.LogLevel = "debug"

	// Config alone: debug enabled.
	flagVerbose, flagQuiet = false, false
	logger := buildLogger()
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))

	// --quiet wins over config.
	flagQuiet = true
	logger = buildLogger()
	assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
}
