// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/katarogu/katarogu/internal/config"
	"github.com/katarogu/katarogu/internal/logging"
)

const serviceName = "katarogu"

// configFile is the --config flag shared by every subcommand.
var configFile string

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "katarogu",
		Short: "katarogu authentication service",
		Long: `katarogu serves account registration, login, sessions and email
verification for the katarogu site, backed by PostgreSQL.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file path")
	flags.String("log-format", "json", "log format (json or text)")
	flags.String("log-level", "info", "minimum log level (debug, info, warn, error)")
	flags.String("database-url", "", "PostgreSQL URL (default: $"+config.EnvDatabaseURL+")")
	flags.Bool("development", false, "allow session cookies over plain http")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSweepCmd())

	return cmd
}

// loadConfig reads and validates the configuration for cmd and installs
// the process logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger := logging.SetDefault(serviceName, version, logging.Options{
		Format: cfg.Log.Format,
		Level:  cfg.Log.Level,
	})
	return cfg, logger, nil
}
