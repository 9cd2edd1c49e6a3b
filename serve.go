package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rcmario/drivelinkbot/internal/auth"
	"github.com/rcmario/drivelinkbot/internal/bot"
	"github.com/rcmario/drivelinkbot/internal/config"
	"github.com/rcmario/drivelinkbot/internal/graph"
	"github.com/rcmario/drivelinkbot/internal/shorten"
	"github.com/rcmario/drivelinkbot/internal/telegram"
	"github.com/rcmario/drivelinkbot/internal/telegraph"
	"github.com/rcmario/drivelinkbot/internal/userdb"
)

// pollSlack is added on top of the configured long-poll hold time for the
// poll transport's HTTP timeout.
const pollSlack = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot daemon",
		Long:  "Run the Telegram long-poll loop until interrupted. Reloads the config file on change.",
		RunE:  runServe,
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	cfg := resolvedCfg

	if cfg.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is not configured (set telegram.bot_token in %s or %s)",
			resolvedCfgPath, config.EnvBotToken)
	}

	if cfg.Graph.ClientID == "" {
		return fmt.Errorf("graph.client_id is not configured (edit %s)", resolvedCfgPath)
	}

	cleanup, err := writePIDFile(cfg.Paths.PIDFile)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := shutdownContext(context.Background(), logger)

	manager := auth.NewManager(auth.Config{
		ClientID:  cfg.Graph.ClientID,
		TenantID:  cfg.Graph.TenantID,
		TokenPath: cfg.Paths.TokenFile,
		Logger:    logger,
	})

	users, err := userdb.New(cfg.Paths.UserDB, logger)
	if err != nil {
		return err
	}
	defer users.Close()

	// The poll transport needs to outwait the server-side hold; everything
	// else uses the default timeout.
	pollClient := &http.Client{
		Timeout: time.Duration(cfg.Telegram.PollTimeout)*time.Second + pollSlack,
	}

	holder := config.NewHolder(cfg, resolvedCfgPath)

	b := bot.New(bot.Options{
		Config:   holder,
		Telegram: telegram.NewClient(telegram.DefaultBaseURL, cfg.Telegram.BotToken, pollClient, logger),
		Auth:     manager,
		Graph: graph.NewClient(graph.DefaultBaseURL, defaultHTTPClient(),
			bot.TokenSource{Manager: manager}, logger),
		Users:     users,
		Pages:     telegraph.NewClient(telegraph.DefaultBaseURL, defaultHTTPClient(), "drivelinkbot", "drivelinkbot", logger),
		Shortener: shorten.New(shorten.DefaultBaseURL, defaultHTTPClient(), logger),
		Logger:    logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.Run(gctx)
	})

	// Live reload of admin list, landing path, and worker tuning. Skipped
	// when running purely on defaults with no config directory to watch.
	if _, statErr := os.Stat(filepath.Dir(resolvedCfgPath)); statErr == nil {
		g.Go(func() error {
			return config.Watch(gctx, holder, logger)
		})
	} else {
		logger.Debug("config watch disabled", slog.String("path", resolvedCfgPath))
	}

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}
