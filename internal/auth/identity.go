// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// IdentitySerializer converts an authenticated user into an opaque session
// token and resolves tokens back into users on later requests.
//
// The token is the user's ID. It stays valid for as long as the user exists,
// so deleting the user invalidates every session that carries it.
type IdentitySerializer struct {
	users UserStore
}

// NewIdentitySerializer creates an IdentitySerializer backed by users.
func NewIdentitySerializer(users UserStore) (*IdentitySerializer, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("user store is required")
	}
	return &IdentitySerializer{users: users}, nil
}

// Serialize returns the session token for user.
func (s *IdentitySerializer) Serialize(user *User) string {
	return user.ID.String()
}

// Deserialize resolves a session token to its user.
// Malformed tokens and tokens for deleted users both return ErrNotFound.
func (s *IdentitySerializer) Deserialize(ctx context.Context, token string) (*User, error) {
	id, err := ulid.ParseStrict(token)
	if err != nil {
		return nil, oops.Code("SESSION_IDENTITY_INVALID").
			With("operation", "parse identity token").
			Wrap(ErrNotFound)
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_IDENTITY_STALE").
				With("user_id", id.String()).
				Wrap(err)
		}
		return nil, oops.Code("SESSION_DESERIALIZE_FAILED").
			With("user_id", id.String()).
			Wrap(err)
	}
	return user, nil
}
