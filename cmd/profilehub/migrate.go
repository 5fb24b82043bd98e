// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/profilehub/profilehub/internal/config"
	"github.com/profilehub/profilehub/internal/store"
)

// NewMigrateCmd creates the migrate command and its subcommands.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long: `Apply, roll back and inspect the embedded PostgreSQL schema migrations.
The SQLite store creates its schema when opened and needs no migrations.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *store.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("Migrations applied")
				return nil
			})
		},
	})

	var (
		confirm bool
		steps   int
	)
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long: `Roll back the newest --steps migrations, or every migration when --steps
is 0. Rolling back the first migration drops every account.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("migrate down can drop accounts; pass --yes to confirm")
			}
			return withMigrator(cmd, func(m *store.Migrator) error {
				if err := m.Rollback(steps); err != nil {
					return err
				}
				if steps == 0 {
					cmd.Println("All migrations rolled back")
				} else {
					cmd.Printf("Rolled back %d migration(s)\n", steps)
				}
				return nil
			})
		},
	}
	down.Flags().BoolVar(&confirm, "yes", false, "confirm the rollback")
	down.Flags().IntVar(&steps, "steps", 0, "number of migrations to roll back (0 = all)")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *store.Migrator) error {
				status, err := m.Status()
				if err != nil {
					return err
				}
				cmd.Print(formatMigrationStatus(status))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *store.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if dirty {
					cmd.Printf("%d (dirty)\n", version)
				} else {
					cmd.Printf("%d\n", version)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it",
		Long: `Mark VERSION as applied and clear the dirty flag without running any
migration. Use it only after repairing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("INVALID_VERSION").With("version", args[0]).Wrap(err)
			}
			return withMigrator(cmd, func(m *store.Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				cmd.Printf("Forced version %d\n", version)
				return nil
			})
		},
	})

	return cmd
}

// withMigrator runs fn against a Migrator for the configured database.
func withMigrator(cmd *cobra.Command, fn func(*store.Migrator) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if _, err := setupLogging(cmd, cfg); err != nil {
		return err
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return oops.Code("CONFIG_INVALID").
			With("key", "database.driver").
			Errorf("migrations require the postgres driver, got %q", cfg.Database.Driver)
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return err
	}

	m, err := store.NewMigrator(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }() //nolint:errcheck // close errors do not change the outcome

	return fn(m)
}

// applyMigrations brings the schema at databaseURL up to date.
func applyMigrations(databaseURL string) error {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }() //nolint:errcheck // close errors do not change the outcome
	return m.Up()
}

func formatMigrationStatus(status *store.MigrationStatus) string {
	var b strings.Builder
	if status.Version == 0 {
		b.WriteString("Current version: none\n")
	} else {
		fmt.Fprintf(&b, "Current version: %d (%s)", status.Version, status.Name)
		if status.Dirty {
			b.WriteString(" DIRTY")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Applied: %s\n", joinVersions(status.Applied))
	fmt.Fprintf(&b, "Pending: %s\n", joinVersions(status.Pending))
	return b.String()
}

func joinVersions(versions []uint) string {
	if len(versions) == 0 {
		return "none"
	}
	parts := make([]string, len(versions))
	for i, v := range versions {
		parts[i] = strconv.FormatUint(uint64(v), 10)
	}
	return strings.Join(parts, ", ")
}
