// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/oops"
)

// dummyPasswordHash is verified against when a user doesn't exist so the
// response time matches that of a real verification. It is used only if
// the configured hasher cannot produce a dummy of its own.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Authenticator verifies a username and password pair against the store.
// It never mutates the store or any session.
type Authenticator struct {
	users  UserStore
	hasher PasswordHasher
	logger *slog.Logger

	dummyOnce sync.Once
	dummy     string
}

// NewAuthenticator creates an Authenticator using the default logger.
func NewAuthenticator(users UserStore, hasher PasswordHasher) (*Authenticator, error) {
	return NewAuthenticatorWithLogger(users, hasher, slog.Default())
}

// NewAuthenticatorWithLogger creates an Authenticator with an explicit logger.
func NewAuthenticatorWithLogger(users UserStore, hasher PasswordHasher, logger *slog.Logger) (*Authenticator, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("user store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("logger is required")
	}
	return &Authenticator{users: users, hasher: hasher, logger: logger}, nil
}

// Authenticate looks up username and checks password against the stored hash.
//
// Unknown users and wrong passwords fail with the same AUTH_INVALID_CREDENTIALS
// error wrapping ErrInvalidCredentials; the distinguishing reason is attached
// as context for logging only. Lookup failures other than not-found are
// returned as-is so callers can tell an outage from a bad password.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := a.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "find user by username").
				Wrap(err)
		}
		// Still run a verification so unknown usernames take as long as wrong passwords.
		a.hasher.Verify(password, a.dummyHash())
		a.logger.DebugContext(ctx, "authentication failed", "reason", ReasonUnknownUser)
		return nil, invalidCredentials(ReasonUnknownUser)
	}

	if !a.hasher.Verify(password, user.PasswordHash) {
		a.logger.DebugContext(ctx, "authentication failed",
			"reason", ReasonWrongPassword,
			"user_id", user.ID.String())
		return nil, invalidCredentials(ReasonWrongPassword)
	}

	return user, nil
}

func (a *Authenticator) dummyHash() string {
	a.dummyOnce.Do(func() {
		a.dummy = dummyPasswordHash
		if h, err := a.hasher.Hash(rand.Text()); err == nil {
			a.dummy = h
		}
	})
	return a.dummy
}
