// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"slices"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authengine/internal/auth"
	"github.com/holomush/authengine/internal/auth/postgres"
	"github.com/holomush/authengine/internal/config"
	"github.com/holomush/authengine/internal/store"
)

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired records once and exit",
		Long: `Delete expired device challenges, trusted devices past their
lifetime, expired redemption receipts and expired sessions. Useful from cron
when serve runs without its background sweeper.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.Driver == config.DriverMemory {
				return oops.Code("CONFIG_INVALID").With("key", "database.driver").
					Errorf("sweep needs a persistent store, not %q", config.DriverMemory)
			}
			ctx := cmd.Context()

			pool, err := store.Connect(ctx, cfg.Database.URL, poolOptions(cfg.Database))
			if err != nil {
				return err
			}
			defer pool.Close()

			ledger, closeLedger, err := openLedger(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			defer func() { _ = closeLedger() }()

			a, err := buildApp(cfg, postgresRepositories(postgres.New(pool)), ledger, logger)
			if err != nil {
				return err
			}
			return printSweep(cmd, a.sweeper.SweepOnce(ctx))
		},
	}
}

// printSweep writes the per-target counts and fails when any step failed.
func printSweep(cmd *cobra.Command, report auth.SweepReport) error {
	targets := make([]string, 0, len(report.Deleted))
	for target := range report.Deleted {
		targets = append(targets, target)
	}
	slices.Sort(targets)
	for _, target := range targets {
		cmd.Printf("%-22s %d\n", target, report.Deleted[target])
	}
	if len(report.Failed) > 0 {
		return oops.Code("SWEEP_FAILED").With("targets", report.Failed).Errorf("%d sweep steps failed", len(report.Failed))
	}
	return nil
}
