// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package store

import (
	"cmp"
	"embed"
	"errors"
	"io/fs"
	"slices"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// Register pgx/v5 database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// migrateIface is the part of *migrate.Migrate the Migrator drives.
type migrateIface interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Close() (source error, database error)
}

// Migration is one embedded schema change.
type Migration struct {
	Version uint
	Name    string
}

// Migrator applies the embedded users schema to PostgreSQL.
type Migrator struct {
	m migrateIface
}

// NewMigrator opens databaseURL for migration. postgres:// and postgresql://
// URLs are accepted as well as the pgx5:// scheme golang-migrate registers.
func NewMigrator(databaseURL string) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, migrationsDir)
	if err != nil {
		return nil, oops.Code("MIGRATION_SOURCE_FAILED").With("operation", "open embedded migrations").Wrap(err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(databaseURL))
	if err != nil {
		_ = source.Close() //nolint:errcheck // init error takes precedence
		return nil, oops.Code("MIGRATION_INIT_FAILED").With("operation", "connect migrator").Wrap(err)
	}

	return &Migrator{m: m}, nil
}

func migrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(databaseURL, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}

// Up applies every pending migration. An up-to-date schema is not an error.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_UP_FAILED").Wrap(err)
	}
	return nil
}

// Rollback reverts the newest steps migrations, or all of them when steps is
// zero. Reverting the first migration drops every account.
func (m *Migrator) Rollback(steps int) error {
	if steps < 0 {
		return oops.Code("INVALID_STEPS").With("steps", steps).Errorf("steps must be zero or positive")
	}

	var err error
	if steps == 0 {
		err = m.m.Down()
	} else {
		err = m.m.Steps(-steps)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_DOWN_FAILED").With("steps", steps).Wrap(err)
	}
	return nil
}

// Version returns the applied schema version and whether the last migration
// failed half way. A fresh database reports version 0.
func (m *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = m.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, oops.Code("MIGRATION_VERSION_FAILED").Wrap(err)
	}
	return version, dirty, nil
}

// Force sets the recorded version and clears the dirty flag without running
// any SQL.
func (m *Migrator) Force(version int) error {
	if version < 0 {
		return oops.Code("INVALID_VERSION").With("version", version).Errorf("version must be zero or positive")
	}
	if err := m.m.Force(version); err != nil {
		return oops.Code("MIGRATION_FORCE_FAILED").With("version", version).Wrap(err)
	}
	return nil
}

// Close releases the migration source and the database connection.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr == nil && dbErr == nil {
		return nil
	}

	component := "both"
	switch {
	case dbErr == nil:
		component = "source"
	case srcErr == nil:
		component = "database"
	}
	return oops.Code("MIGRATION_CLOSE_FAILED").With("component", component).Wrap(errors.Join(srcErr, dbErr))
}

// MigrationStatus is the schema state shown by migrate status.
type MigrationStatus struct {
	Version uint
	Name    string
	Dirty   bool
	Applied []uint
	Pending []uint
}

// Status splits the embedded migrations into applied and pending around the
// current version.
func (m *Migrator) Status() (*MigrationStatus, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return nil, oops.With("operation", "get migration status").Wrap(err)
	}

	all, err := Migrations()
	if err != nil {
		return nil, oops.With("operation", "get migration status").Wrap(err)
	}

	status := &MigrationStatus{Version: version, Dirty: dirty}
	for _, mig := range all {
		if mig.Version > version {
			status.Pending = append(status.Pending, mig.Version)
			continue
		}
		status.Applied = append(status.Applied, mig.Version)
		if mig.Version == version {
			status.Name = mig.Name
		}
	}
	return status, nil
}

// Migrations lists the embedded migrations in version order. File names
// follow NNNNNN_name.up.sql.
func Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(migrationsFS, migrationsDir)
	if err != nil {
		return nil, oops.Code("MIGRATION_READ_FAILED").Wrap(err)
	}

	var out []Migration
	for _, entry := range entries {
		base, ok := strings.CutSuffix(entry.Name(), ".up.sql")
		if !ok {
			continue
		}
		num, name, ok := strings.Cut(base, "_")
		if !ok {
			return nil, oops.Code("MIGRATION_INVALID_NAME").With("filename", entry.Name()).Errorf("missing version prefix")
		}
		version, err := strconv.ParseUint(num, 10, 32)
		if err != nil {
			return nil, oops.Code("MIGRATION_INVALID_NAME").With("filename", entry.Name()).Wrap(err)
		}
		out = append(out, Migration{Version: uint(version), Name: name})
	}
	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return out, nil
}
