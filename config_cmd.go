package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		RunE:  runConfigShow,
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path in use",
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Println(resolvedCfgPath)
			return nil
		},
	}
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	if resolvedCfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	// Render as TOML so the output can seed a config file. The bot token is
	// masked — config show output ends up in pastes and issue reports.
	shown := *resolvedCfg
	if shown.Telegram.BotToken != "" {
		shown.Telegram.BotToken = "***"
	}

	if err := toml.NewEncoder(os.Stdout).Encode(shown); err != nil {
		return fmt.Errorf("rendering config: %w", err)
	}

	return nil
}
