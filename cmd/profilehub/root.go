// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/profilehub/profilehub/internal/config"
	"github.com/profilehub/profilehub/internal/logging"
)

// Global flags available to all subcommands.
var (
	configFile string
	envFile    string
)

// NewRootCmd creates the root command for the ProfileHub CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profilehub",
		Short: "ProfileHub - user profiles with signup and login",
		Long: `ProfileHub is a small web application where people sign up, log in,
edit a public profile and delete their account.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/profilehub/config.yaml)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.String("log-format", "json", "log format (json or text)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("database-driver", config.DriverSQLite, "user store driver (postgres or sqlite)")
	flags.String("database-url", "", "PostgreSQL connection URL")
	flags.String("sqlite-path", "", "SQLite database path (default: XDG_DATA_HOME/profilehub/profilehub.db)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewUserCmd())

	return cmd
}

// loadConfig reads the layered configuration, applying the flags of cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		File:   configFile,
		DotEnv: envFile,
		Flags:  cmd.Flags(),
	})
	if err != nil {
		return nil, oops.With("operation", "load config").Wrap(err)
	}
	return cfg, nil
}

// setupLogging installs the default logger described by cfg.
func setupLogging(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	if err := cfg.ValidateLog(); err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.SetDefault(logging.Options{
		Service: "profilehub",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
		Writer:  cmd.ErrOrStderr(),
	}), nil
}
