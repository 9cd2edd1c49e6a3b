package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcmario/drivelinkbot/internal/auth"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with OneDrive using the device code flow",
		RunE:  runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved authentication token",
		RunE:  runLogout,
	}
}

// loginUserID marks device flows started from the terminal in the
// per-user pending map, which otherwise keys on chat user IDs.
const loginUserID = 0

func runLogin(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	if resolvedCfg.Graph.ClientID == "" {
		return fmt.Errorf("graph.client_id is not configured (edit %s)", resolvedCfgPath)
	}

	manager := auth.NewManager(auth.Config{
		ClientID:  resolvedCfg.Graph.ClientID,
		TenantID:  resolvedCfg.Graph.TenantID,
		TokenPath: resolvedCfg.Paths.TokenFile,
		Logger:    logger,
	})

	challenge, err := manager.BeginDeviceFlow(ctx, loginUserID)
	if err != nil {
		return fmt.Errorf("starting device flow: %w", err)
	}

	// Device code prompts must always be visible, even with --quiet.
	fmt.Fprintf(os.Stderr, "To sign in, visit: %s\n", challenge.VerificationURI)
	fmt.Fprintf(os.Stderr, "Enter code: %s\n", challenge.UserCode)

	if _, err := manager.Await(ctx, loginUserID, challenge); err != nil {
		return fmt.Errorf("completing device flow: %w", err)
	}

	logger.Info("login successful")
	statusf("Login successful.\n")

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	manager := auth.NewManager(auth.Config{
		ClientID:  resolvedCfg.Graph.ClientID,
		TenantID:  resolvedCfg.Graph.TenantID,
		TokenPath: resolvedCfg.Paths.TokenFile,
		Logger:    logger,
	})

	if err := manager.Logout(); err != nil {
		return fmt.Errorf("removing token: %w", err)
	}

	logger.Info("logout successful")
	statusf("Logged out.\n")

	return nil
}
