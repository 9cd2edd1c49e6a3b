package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcmario/drivelinkbot/internal/auth"
	"github.com/rcmario/drivelinkbot/internal/userdb"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, credential, and registry status",
		RunE:  runStatus,
	}
}

func runStatus(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	// Daemon liveness via the PID file.
	if pid, err := readPIDFile(resolvedCfg.Paths.PIDFile); err == nil {
		if processAlive(pid) {
			fmt.Printf("Daemon:     running (PID %d)\n", pid)
		} else {
			fmt.Printf("Daemon:     not running (stale PID file)\n")
		}
	} else {
		fmt.Printf("Daemon:     not running\n")
	}

	// Credential state.
	manager := auth.NewManager(auth.Config{
		ClientID:  resolvedCfg.Graph.ClientID,
		TenantID:  resolvedCfg.Graph.TenantID,
		TokenPath: resolvedCfg.Paths.TokenFile,
		Logger:    logger,
	})

	if manager.LoggedIn() {
		fmt.Printf("Credential: signed in, expires %s\n",
			manager.Expiry().Local().Format(time.RFC3339))
	} else {
		fmt.Printf("Credential: not signed in (run 'drivelinkbot login')\n")
	}

	// Registry size.
	users, err := userdb.New(resolvedCfg.Paths.UserDB, logger)
	if err != nil {
		fmt.Printf("Users:      unavailable (%v)\n", err)
		return nil
	}
	defer users.Close()

	count, err := users.CountUsers(context.Background())
	if err != nil {
		fmt.Printf("Users:      unavailable (%v)\n", err)
		return nil
	}

	fmt.Printf("Users:      %d registered\n", count)

	return nil
}
