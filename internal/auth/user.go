// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package auth

import (
	"context"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// Profile field limits.
const (
	MaxDisplayNameLength = 50
	MaxBioLength         = 500
)

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// User is a registered account.
type User struct {
	ID           ulid.ULID
	Username     string
	PasswordHash string
	DisplayName  string
	Bio          string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a User with a fresh ID from a validated username and a
// password hash. The hash must already be computed; NewUser never hashes.
func NewUser(username, passwordHash string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID").Errorf("password hash is required")
	}
	now := time.Now().UTC()
	return &User{
		ID:           ulid.Make(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Name returns the display name if set, otherwise the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: MinUsernameLength to MaxUsernameLength characters
// - Must start with a letter
// - Can contain only letters (a-z, A-Z), numbers (0-9), and underscores (_)
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").
			Public("Username is required.").
			Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Public(fmt.Sprintf("Username must be at least %d characters long.", MinUsernameLength)).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Public(fmt.Sprintf("Username must be at most %d characters long.", MaxUsernameLength)).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_INVALID_USERNAME").
			Public("Username must start with a letter and contain only letters, numbers, and underscores.").
			Errorf("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// Profile holds the user-editable profile fields.
type Profile struct {
	DisplayName string
	Bio         string
}

// Validate checks profile field lengths.
func (p Profile) Validate() error {
	if n := utf8.RuneCountInString(p.DisplayName); n > MaxDisplayNameLength {
		return oops.Code("USER_INVALID_PROFILE").
			With("field", "display_name").
			With("max", MaxDisplayNameLength).
			Public(fmt.Sprintf("Display name must be at most %d characters long.", MaxDisplayNameLength)).
			Errorf("display name must be at most %d characters", MaxDisplayNameLength)
	}
	if n := utf8.RuneCountInString(p.Bio); n > MaxBioLength {
		return oops.Code("USER_INVALID_PROFILE").
			With("field", "bio").
			With("max", MaxBioLength).
			Public(fmt.Sprintf("Bio must be at most %d characters long.", MaxBioLength)).
			Errorf("bio must be at most %d characters", MaxBioLength)
	}
	return nil
}

// UserStore manages user persistence.
//
// Implementations enforce username uniqueness atomically and match
// usernames case-insensitively.
type UserStore interface {
	// Create stores a new user. Returns ErrUsernameTaken if the username exists.
	Create(ctx context.Context, user *User) error

	// FindByID retrieves a user by ID. Returns ErrNotFound if absent.
	FindByID(ctx context.Context, id ulid.ULID) (*User, error)

	// FindByUsername retrieves a user by username. Returns ErrNotFound if absent.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// Save persists the profile fields of an existing user. It never
	// touches the password hash.
	Save(ctx context.Context, user *User) error

	// UpdatePassword replaces only the password hash for a user.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// Delete removes a user. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id ulid.ULID) error

	// List returns all users, newest first.
	List(ctx context.Context) ([]*User, error)
}
