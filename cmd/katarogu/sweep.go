// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/katarogu/katarogu/internal/auth"
	"github.com/katarogu/katarogu/internal/store"
)

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions and verification codes once",
		Long: `Delete expired sessions and verification codes, then exit. Useful
from cron when serve runs with the sweeper disabled.`,
		Args: cobra.NoArgs,
		RunE: runSweep,
	}
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	connectCfg := cfg.ConnectConfig()
	connectCfg.Logger = logger
	pool, err := store.Connect(ctx, cfg.Database.URL, connectCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	a, err := newApp(ctx, cfg, pool, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	// The interval is unused by RunOnce.
	sweeper, err := a.newSweeper(auth.DefaultSweepInterval, logger)
	if err != nil {
		return err
	}
	if err := sweeper.RunOnce(ctx); err != nil {
		return err
	}
	cmd.Println("Sweep complete")
	return nil
}
