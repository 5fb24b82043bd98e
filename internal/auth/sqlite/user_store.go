// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

// Package sqlite implements auth.UserStore on an embedded SQLite database.
// It is intended for development and single-node installs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/profilehub/profilehub/internal/auth"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY CHECK (length(id) = 26),
	username      TEXT NOT NULL COLLATE NOCASE UNIQUE,
	password_hash TEXT NOT NULL,
	display_name  TEXT NOT NULL DEFAULT '',
	bio           TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS users_created_at_idx ON users (created_at DESC, id DESC);
`

// userRow is the database shape of auth.User. Timestamps are stored as
// Unix microseconds.
type userRow struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
	DisplayName  string `db:"display_name"`
	Bio          string `db:"bio"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

func (r userRow) toUser() (*auth.User, error) {
	id, err := ulid.Parse(r.ID)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", r.ID).
			Wrap(err)
	}
	return &auth.User{
		ID:           id,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		DisplayName:  r.DisplayName,
		Bio:          r.Bio,
		CreatedAt:    time.UnixMicro(r.CreatedAt).UTC(),
		UpdatedAt:    time.UnixMicro(r.UpdatedAt).UTC(),
	}, nil
}

// UserStore implements auth.UserStore using SQLite.
type UserStore struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists. Use MemoryPath for a throwaway database.
func Open(ctx context.Context, path string) (*UserStore, error) {
	dsn := MemoryPath
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, oops.Code("DB_CONFIG_INVALID").
				With("operation", "create database directory").
				With("path", path).
				Wrap(err)
		}
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "open sqlite database").
			With("path", path).
			Wrap(err)
	}
	// SQLite allows a single writer; an in-memory database also lives and
	// dies with its one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, oops.Code("DB_SCHEMA_FAILED").
			With("operation", "create schema").
			Wrap(err)
	}
	return &UserStore{db: db}, nil
}

// Ping checks that the database is reachable.
func (s *UserStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return queryError(err, "DB_PING_FAILED", "ping database")
	}
	return nil
}

// Close releases the database handle.
func (s *UserStore) Close() error {
	if err := s.db.Close(); err != nil {
		return oops.Code("DB_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

const userColumns = `id, username, password_hash, display_name, bio, created_at, updated_at`

// Create stores a new user.
func (s *UserStore) Create(ctx context.Context, user *auth.User) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :username, :password_hash, :display_name, :bio, :created_at, :updated_at)
	`, userRow{
		ID:           user.ID.String(),
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		DisplayName:  user.DisplayName,
		Bio:          user.Bio,
		CreatedAt:    user.CreatedAt.UnixMicro(),
		UpdatedAt:    user.UpdatedAt.UnixMicro(),
	})
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return oops.Code("USER_USERNAME_TAKEN").
				With("username", user.Username).
				Wrap(auth.ErrUsernameTaken)
		}
		return queryError(err, "USER_CREATE_FAILED", "insert user", "username", user.Username)
	}
	return nil
}

// FindByID retrieves a user by ID.
func (s *UserStore) FindByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = ?`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, queryError(err, "USER_FIND_BY_ID_FAILED", "find user by id", "id", id.String())
	}
	return row.toUser()
}

// FindByUsername retrieves a user by username (case-insensitive).
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, queryError(err, "USER_FIND_BY_USERNAME_FAILED", "find user by username", "username", username)
	}
	return row.toUser()
}

// Save updates the profile fields of an existing user.
func (s *UserStore) Save(ctx context.Context, user *auth.User) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET display_name = ?, bio = ?, updated_at = ?
		WHERE id = ?
	`, user.DisplayName, user.Bio, user.UpdatedAt.UnixMicro(), user.ID.String())
	if err != nil {
		return queryError(err, "USER_SAVE_FAILED", "update profile", "id", user.ID.String())
	}
	return requireRow(result, user.ID)
}

// UpdatePassword updates only the password hash for a user.
func (s *UserStore) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ?
		WHERE id = ?
	`, passwordHash, time.Now().UTC().UnixMicro(), id.String())
	if err != nil {
		return queryError(err, "USER_UPDATE_PASSWORD_FAILED", "update password", "id", id.String())
	}
	return requireRow(result, id)
}

// Delete removes a user.
func (s *UserStore) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id.String())
	if err != nil {
		return queryError(err, "USER_DELETE_FAILED", "delete user", "id", id.String())
	}
	return requireRow(result, id)
}

// List returns all users, newest first.
func (s *UserStore) List(ctx context.Context) ([]*auth.User, error) {
	var rows []userRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, queryError(err, "USER_LIST_FAILED", "list users")
	}

	users := make([]*auth.User, 0, len(rows))
	for _, row := range rows {
		user, err := row.toUser()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func requireRow(result sql.Result, id ulid.ULID) error {
	n, err := result.RowsAffected()
	if err != nil {
		return oops.Code("DB_RESULT_FAILED").With("id", id.String()).Wrap(err)
	}
	if n == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// queryError wraps a failed statement, mapping lock contention and I/O
// failures to auth.ErrStoreUnavailable.
func queryError(err error, code, operation string, kv ...any) error {
	if isUnavailable(err) {
		return oops.Code("STORE_UNAVAILABLE").
			With("operation", operation).
			With(kv...).
			Wrap(fmt.Errorf("%w: %w", auth.ErrStoreUnavailable, err))
	}
	return oops.Code(code).
		With("operation", operation).
		With(kv...).
		Wrap(err)
}

func isUnavailable(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrIoErr, sqlite3.ErrCantOpen, sqlite3.ErrFull:
			return true
		}
		return false
	}
	return errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Compile-time interface check.
var _ auth.UserStore = (*UserStore)(nil)
