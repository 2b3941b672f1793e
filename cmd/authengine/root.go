// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/authengine/internal/config"
	"github.com/holomush/authengine/internal/logging"
)

const serviceName = "authengine"

// NewRootCmd creates the root command for the authengine CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authengine",
		Short: "Session and credential lifecycle engine",
		Long: `authengine issues and refreshes sessions, verifies devices and
redeems single-use tokens for email verification, email change, password
reset and account deletion.`,
		SilenceUsage: true,
	}

	// Every config key exposed as a flag is shared by all subcommands.
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSweepCmd())

	return cmd
}

// loadConfig reads and validates the configuration and installs the
// default logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	return cfg, logger, nil
}
