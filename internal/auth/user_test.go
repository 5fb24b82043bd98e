// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profilehub/profilehub/internal/auth"
	"github.com/profilehub/profilehub/pkg/errutil"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"valid simple", "alice", false},
		{"valid with digits and underscore", "alice_99", false},
		{"minimum length", "abc", false},
		{"maximum length", strings.Repeat("a", auth.MaxUsernameLength), false},
		{"empty", "", true},
		{"too short", "ab", true},
		{"too long", strings.Repeat("a", auth.MaxUsernameLength+1), true},
		{"starts with digit", "1alice", true},
		{"contains space", "al ice", true},
		{"contains markup", "<b>bob</b>", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidateUsername(tt.username)
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "AUTH_INVALID_USERNAME")
				assert.NotEmpty(t, oops.GetPublic(err, ""))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewUser(t *testing.T) {
	t.Run("assigns id and timestamps", func(t *testing.T) {
		user, err := auth.NewUser("alice", "$argon2id$hash")
		require.NoError(t, err)
		assert.False(t, user.ID.IsZero())
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "$argon2id$hash", user.PasswordHash)
		assert.False(t, user.CreatedAt.IsZero())
		assert.Equal(t, user.CreatedAt, user.UpdatedAt)
	})

	t.Run("ids are unique", func(t *testing.T) {
		u1, err := auth.NewUser("alice", "hash")
		require.NoError(t, err)
		u2, err := auth.NewUser("alice", "hash")
		require.NoError(t, err)
		assert.NotEqual(t, u1.ID, u2.ID)
	})

	t.Run("rejects invalid username", func(t *testing.T) {
		_, err := auth.NewUser("", "hash")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_USERNAME")
	})

	t.Run("rejects missing hash", func(t *testing.T) {
		_, err := auth.NewUser("alice", "")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_INVALID")
	})
}

func TestUser_Name(t *testing.T) {
	user := &auth.User{Username: "alice"}
	assert.Equal(t, "alice", user.Name())

	user.DisplayName = "Alice A."
	assert.Equal(t, "Alice A.", user.Name())
}

func TestProfile_Validate(t *testing.T) {
	t.Run("empty profile is valid", func(t *testing.T) {
		assert.NoError(t, auth.Profile{}.Validate())
	})

	t.Run("display name limit counts runes", func(t *testing.T) {
		p := auth.Profile{DisplayName: strings.Repeat("é", auth.MaxDisplayNameLength)}
		assert.NoError(t, p.Validate())

		p.DisplayName += "é"
		err := p.Validate()
		require.Error(t, err)
		errutil.AssertErrorContext(t, err, "field", "display_name")
	})

	t.Run("bio too long", func(t *testing.T) {
		err := auth.Profile{Bio: strings.Repeat("x", auth.MaxBioLength+1)}.Validate()
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_INVALID_PROFILE")
		errutil.AssertErrorContext(t, err, "field", "bio")
	})
}
