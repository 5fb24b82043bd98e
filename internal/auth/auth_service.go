// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/profilehub/profilehub/pkg/errutil"
)

// Service provides account operations on top of a UserStore.
type Service struct {
	users  UserStore
	hasher PasswordHasher
	authn  *Authenticator
	policy PasswordPolicy
	logger *slog.Logger
}

// NewService creates a new Service using the default logger.
func NewService(users UserStore, hasher PasswordHasher, policy PasswordPolicy) (*Service, error) {
	return NewServiceWithLogger(users, hasher, policy, slog.Default())
}

// NewServiceWithLogger creates a new Service with an explicit logger.
func NewServiceWithLogger(users UserStore, hasher PasswordHasher, policy PasswordPolicy, logger *slog.Logger) (*Service, error) {
	authn, err := NewAuthenticatorWithLogger(users, hasher, logger)
	if err != nil {
		return nil, err
	}
	return &Service{
		users:  users,
		hasher: hasher,
		authn:  authn,
		policy: policy,
		logger: logger,
	}, nil
}

// Authenticator returns the authenticator used by Login.
func (s *Service) Authenticator() *Authenticator {
	return s.authn
}

// SignupRequest carries the fields submitted on signup.
type SignupRequest struct {
	Username    string
	Password    string
	DisplayName string
	Bio         string
}

// Signup validates the request, hashes the password once and creates the user.
// Username and bio are trimmed; the password is used exactly as given.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	username := strings.TrimSpace(req.Username)
	profile := Profile{
		DisplayName: strings.TrimSpace(req.DisplayName),
		Bio:         strings.TrimSpace(req.Bio),
	}

	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := s.policy.Validate(req.Password); err != nil {
		return nil, err
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, hash)
	if err != nil {
		return nil, err
	}
	user.DisplayName = profile.DisplayName
	user.Bio = profile.Bio

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, oops.Code("USER_USERNAME_TAKEN").
				With("username", username).
				Public("That username is already taken.").
				Wrap(err)
		}
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user signed up", "user_id", user.ID.String())
	return user, nil
}

// Login authenticates a user. A stored hash produced by a legacy algorithm
// or weaker parameters is replaced through UpdatePassword on success.
func (s *Service) Login(ctx context.Context, username, password string) (*User, error) {
	user, err := s.authn.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID.String())
	return user, nil
}

func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		errutil.LogError(s.logger, "password hash upgrade failed", err)
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
		errutil.LogError(s.logger, "password hash upgrade failed", err)
		return
	}
	user.PasswordHash = newHash
	s.logger.InfoContext(ctx, "password hash upgraded", "user_id", user.ID.String())
}

// Lookup retrieves a user by username.
func (s *Service) Lookup(ctx context.Context, username string) (*User, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, oops.With("operation", "lookup user").Wrap(err)
	}
	return user, nil
}

// Users returns every user, newest first.
func (s *Service) Users(ctx context.Context) ([]*User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, oops.With("operation", "list users").Wrap(err)
	}
	return users, nil
}

// UpdateProfile replaces the display name and bio of a user.
func (s *Service) UpdateProfile(ctx context.Context, id ulid.ULID, profile Profile) (*User, error) {
	profile.DisplayName = strings.TrimSpace(profile.DisplayName)
	profile.Bio = strings.TrimSpace(profile.Bio)
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, oops.With("operation", "update profile").Wrap(err)
	}

	user.DisplayName = profile.DisplayName
	user.Bio = profile.Bio
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Save(ctx, user); err != nil {
		return nil, oops.Code("USER_UPDATE_FAILED").
			With("operation", "save profile").
			With("user_id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// ChangePassword replaces a user's password after checking the current one.
// This and SetPassword are the only paths that recompute a stored hash.
func (s *Service) ChangePassword(ctx context.Context, id ulid.ULID, current, next string) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return oops.With("operation", "change password").Wrap(err)
	}
	if !s.hasher.Verify(current, user.PasswordHash) {
		return oops.Code("AUTH_INVALID_CREDENTIALS").
			With("reason", ReasonWrongPassword).
			Public("Current password is incorrect.").
			Wrap(ErrInvalidCredentials)
	}
	return s.SetPassword(ctx, id, next)
}

// SetPassword replaces a user's password without checking the current one.
func (s *Service) SetPassword(ctx context.Context, id ulid.ULID, next string) error {
	if err := s.policy.Validate(next); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return oops.Code("AUTH_PASSWORD_CHANGE_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return oops.Code("AUTH_PASSWORD_CHANGE_FAILED").
			With("operation", "update password").
			With("user_id", id.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password changed", "user_id", id.String())
	return nil
}

// DeleteAccount removes a user. Sessions carrying the user's identity stop
// resolving once the record is gone.
func (s *Service) DeleteAccount(ctx context.Context, id ulid.ULID) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return oops.Code("USER_DELETE_FAILED").
			With("operation", "delete account").
			With("user_id", id.String()).
			Wrap(err)
	}
	s.logger.InfoContext(ctx, "account deleted", "user_id", id.String())
	return nil
}
