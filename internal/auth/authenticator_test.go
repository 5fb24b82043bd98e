// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/profilehub/profilehub/internal/auth"
	"github.com/profilehub/profilehub/internal/auth/mocks"
	"github.com/profilehub/profilehub/pkg/errutil"
)

func TestNewAuthenticator_NilDependencies(t *testing.T) {
	tests := []struct {
		name        string
		users       auth.UserStore
		hasher      auth.PasswordHasher
		logger      *slog.Logger
		expectError string
	}{
		{
			name:        "nil user store",
			hasher:      mocks.NewMockPasswordHasher(t),
			logger:      slog.Default(),
			expectError: "user store is required",
		},
		{
			name:        "nil password hasher",
			users:       mocks.NewMockUserStore(t),
			logger:      slog.Default(),
			expectError: "password hasher is required",
		},
		{
			name:        "nil logger",
			users:       mocks.NewMockUserStore(t),
			hasher:      mocks.NewMockPasswordHasher(t),
			expectError: "logger is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := auth.NewAuthenticatorWithLogger(tt.users, tt.hasher, tt.logger)
			require.Error(t, err)
			assert.Nil(t, a)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestAuthenticator_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("returns user on correct password", func(t *testing.T) {
		users := mocks.NewMockUserStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		a, err := auth.NewAuthenticator(users, hasher)
		require.NoError(t, err)

		user := &auth.User{ID: ulid.Make(), Username: "alice", PasswordHash: "stored-hash"}
		users.On("FindByUsername", ctx, "alice").Return(user, nil)
		hasher.On("Verify", "password123", "stored-hash").Return(true)

		got, err := a.Authenticate(ctx, "alice", "password123")
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("unknown user still verifies against a dummy hash", func(t *testing.T) {
		users := mocks.NewMockUserStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		a, err := auth.NewAuthenticator(users, hasher)
		require.NoError(t, err)

		users.On("FindByUsername", ctx, "ghost").Return(nil, auth.ErrNotFound)
		hasher.On("Hash", mock.AnythingOfType("string")).Return("dummy-hash", nil).Once()
		hasher.On("Verify", "password123", "dummy-hash").Return(false)

		got, err := a.Authenticate(ctx, "ghost", "password123")
		require.Error(t, err)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
		assert.Equal(t, auth.ReasonUnknownUser, auth.FailureReason(err))
	})

	t.Run("dummy hash falls back to constant when hashing fails", func(t *testing.T) {
		users := mocks.NewMockUserStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		a, err := auth.NewAuthenticator(users, hasher)
		require.NoError(t, err)

		users.On("FindByUsername", ctx, "ghost").Return(nil, auth.ErrNotFound)
		hasher.On("Hash", mock.AnythingOfType("string")).Return("", errors.New("entropy exhausted")).Once()
		hasher.On("Verify", "pw", mock.MatchedBy(func(h string) bool {
			return len(h) > 10 && h[:10] == "$argon2id$"
		})).Return(false)

		_, err = a.Authenticate(ctx, "ghost", "pw")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("wrong password fails with reason", func(t *testing.T) {
		users := mocks.NewMockUserStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		a, err := auth.NewAuthenticator(users, hasher)
		require.NoError(t, err)

		user := &auth.User{ID: ulid.Make(), Username: "alice", PasswordHash: "stored-hash"}
		users.On("FindByUsername", ctx, "alice").Return(user, nil)
		hasher.On("Verify", "wrong", "stored-hash").Return(false)

		got, err := a.Authenticate(ctx, "alice", "wrong")
		require.Error(t, err)
		assert.Nil(t, got)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
		assert.Equal(t, auth.ReasonWrongPassword, auth.FailureReason(err))
	})

	t.Run("store failure is not reported as invalid credentials", func(t *testing.T) {
		users := mocks.NewMockUserStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		a, err := auth.NewAuthenticator(users, hasher)
		require.NoError(t, err)

		users.On("FindByUsername", ctx, "alice").Return(nil, auth.ErrStoreUnavailable)

		_, err = a.Authenticate(ctx, "alice", "pw")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrStoreUnavailable)
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	})
}

func TestAuthenticator_FailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	hasher := newTestHasher(t)

	hash, err := hasher.Hash("correct-password")
	require.NoError(t, err)
	user, err := auth.NewUser("alice", hash)
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, user))

	a, err := auth.NewAuthenticator(store, hasher)
	require.NoError(t, err)

	got, err := a.Authenticate(ctx, "alice", "correct-password")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, wrongPassword := a.Authenticate(ctx, "alice", "wrong-password")
	_, unknownUser := a.Authenticate(ctx, "nobody", "correct-password")

	require.Error(t, wrongPassword)
	require.Error(t, unknownUser)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
	assert.Equal(t, "incorrect username or password", unknownUser.Error())
}

func TestAuthenticator_LogsReasonOnlyAtDebug(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store := newMemStore()
	hasher := newTestHasher(t)
	a, err := auth.NewAuthenticatorWithLogger(store, hasher, logger)
	require.NoError(t, err)

	_, err = a.Authenticate(ctx, "nobody", "secret-password")
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, `"level":"DEBUG"`)
	assert.Contains(t, out, auth.ReasonUnknownUser)
	assert.NotContains(t, out, "secret-password")
}
