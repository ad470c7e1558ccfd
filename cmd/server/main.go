// Package main is the entry point for the user service.
//
// The main package stays minimal. Its job is to:
// 1. Read configuration (file, then environment)
// 2. Build the logger
// 3. Hand both to internal/server and run until a signal arrives
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
//
// COMMANDS:
//
//	usersvc              serve (default)
//	usersvc serve        serve explicitly
//	usersvc migrate      create the schema and exit
//
// Every command accepts --config <path>; CONFIG_PATH is used when the flag
// is absent.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/usersvc/internal/config"
	"github.com/sakif/usersvc/internal/logging"
	"github.com/sakif/usersvc/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. A fresh tree per call keeps flag state
// out of package globals.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "usersvc",
		Short:        "User CRUD service protected by an API key",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (overrides CONFIG_PATH)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			return server.Migrate(*cfg, logger)
		},
	})

	return root
}

// bootstrap loads configuration and builds the logger from it.
func bootstrap(configPath string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}, os.Stdout)
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}

	return cfg, logger, nil
}

func runServe(parent context.Context, configPath string) error {
	cfg, logger, err := bootstrap(configPath)
	if err != nil {
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	// SIGINT is Ctrl+C, SIGTERM is what Docker and Kubernetes send.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(*cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}

	// Start blocks until ctx is cancelled.
	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}
	return nil
}
