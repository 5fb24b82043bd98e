// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

// Package postgres implements auth.UserStore on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/profilehub/profilehub/internal/auth"
)

// poolIface is the subset of *pgxpool.Pool used by UserStore.
// It is satisfied by pgxmock.PgxPoolIface in tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserStore implements auth.UserStore using PostgreSQL.
type UserStore struct {
	pool poolIface
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool poolIface) *UserStore {
	return &UserStore{pool: pool}
}

const userColumns = `id, username, password_hash, display_name, bio, created_at, updated_at`

// Create stores a new user.
func (s *UserStore) Create(ctx context.Context, user *auth.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		user.ID.String(),
		user.Username,
		user.PasswordHash,
		user.DisplayName,
		user.Bio,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
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
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, queryError(err, "USER_FIND_BY_ID_FAILED", "find user by id", "id", id.String())
	}
	return user, nil
}

// FindByUsername retrieves a user by username (case-insensitive).
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(username) = LOWER($1)
	`, username)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, queryError(err, "USER_FIND_BY_USERNAME_FAILED", "find user by username", "username", username)
	}
	return user, nil
}

// Save updates the profile fields of an existing user.
func (s *UserStore) Save(ctx context.Context, user *auth.User) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE users SET
			display_name = $2,
			bio = $3,
			updated_at = $4
		WHERE id = $1
	`,
		user.ID.String(),
		user.DisplayName,
		user.Bio,
		user.UpdatedAt,
	)
	if err != nil {
		return queryError(err, "USER_SAVE_FAILED", "update profile", "id", user.ID.String())
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", user.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdatePassword updates only the password hash for a user.
func (s *UserStore) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now().UTC())
	if err != nil {
		return queryError(err, "USER_UPDATE_PASSWORD_FAILED", "update password", "id", id.String())
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a user.
func (s *UserStore) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := s.pool.Exec(ctx, `
		DELETE FROM users WHERE id = $1
	`, id.String())
	if err != nil {
		return queryError(err, "USER_DELETE_FAILED", "delete user", "id", id.String())
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// List returns all users, newest first.
func (s *UserStore) List(ctx context.Context) ([]*auth.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, queryError(err, "USER_LIST_FAILED", "list users")
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, queryError(err, "USER_LIST_FAILED", "scan user")
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err, "USER_LIST_FAILED", "iterate users")
	}
	return users, nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr string
		user  auth.User
	)

	err := row.Scan(
		&idStr,
		&user.Username,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Bio,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}
	user.ID = id
	return &user, nil
}

// queryError wraps a failed query. Failures caused by the database being
// unreachable wrap auth.ErrStoreUnavailable so callers can tell an outage
// from a bad request.
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
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsConnectionException(pgErr.Code) ||
			pgerrcode.IsInsufficientResources(pgErr.Code) ||
			pgerrcode.IsOperatorIntervention(pgErr.Code)
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) || pgconn.Timeout(err)
}

// Compile-time interface check.
var _ auth.UserStore = (*UserStore)(nil)
