// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/profilehub/profilehub/internal/auth"
	"github.com/profilehub/profilehub/pkg/errutil"
)

// cheapParams keeps argon2id fast in tests.
var cheapParams = auth.HasherParams{Time: 1, MemoryKiB: 1024, Threads: 1}

func newTestHasher(t *testing.T) *auth.Argon2idHasher {
	t.Helper()
	h, err := auth.NewArgon2idHasherWithParams(cheapParams)
	require.NoError(t, err)
	return h
}

func TestHashPassword(t *testing.T) {
	hasher := newTestHasher(t)

	t.Run("produces valid hash", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))
	})

	t.Run("hash never contains the plaintext", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.NotContains(t, hash, "password123")
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
		assert.True(t, hasher.Verify("samepassword", hash1))
		assert.True(t, hasher.Verify("samepassword", hash2))
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
	})

	t.Run("default hasher uses OWASP parameters", func(t *testing.T) {
		hash, err := auth.NewArgon2idHasher().Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"))
	})
}

func TestNewArgon2idHasherWithParams_RejectsZeroParams(t *testing.T) {
	_, err := auth.NewArgon2idHasherWithParams(auth.HasherParams{Time: 1, MemoryKiB: 0, Threads: 1})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASHER_PARAMS")
}

func TestVerifyPassword(t *testing.T) {
	hasher := newTestHasher(t)

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)
		assert.True(t, hasher.Verify("correctpassword", hash))
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)
		assert.False(t, hasher.Verify("wrongpassword", hash))
	})

	t.Run("hash from other parameters still verifies", func(t *testing.T) {
		hash, err := auth.NewArgon2idHasher().Hash("correctpassword")
		require.NoError(t, err)
		assert.True(t, hasher.Verify("correctpassword", hash))
	})

	malformed := map[string]string{
		"not a hash":            "not-a-valid-hash",
		"empty":                 "",
		"wrong algorithm":       "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"invalid version":       "$argon2id$vXX$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"unknown version":       "$argon2id$v=16$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"invalid parameters":    "$argon2id$v=19$invalid$c2FsdA$aGFzaA",
		"invalid salt base64":   "$argon2id$v=19$m=65536,t=1,p=4$!!!invalid!!!$aGFzaA",
		"invalid hash base64":   "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!invalid!!!",
		"threads overflow":      "$argon2id$v=19$m=65536,t=1,p=256$c2FsdA$aGFzaA",
		"zero time":             "$argon2id$v=19$m=65536,t=0,p=4$c2FsdA$aGFzaA",
		"truncated bcrypt hash": "$2a$10$short",
	}
	for name, hash := range malformed {
		t.Run("malformed hash fails closed: "+name, func(t *testing.T) {
			assert.False(t, hasher.Verify("password", hash))
		})
	}
}

func TestVerifyLegacyBcrypt(t *testing.T) {
	hasher := newTestHasher(t)

	legacy, err := bcrypt.GenerateFromPassword([]byte("legacy-password"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("correct password verifies", func(t *testing.T) {
		assert.True(t, hasher.Verify("legacy-password", string(legacy)))
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		assert.False(t, hasher.Verify("other-password", string(legacy)))
	})

	t.Run("bcrypt hash needs upgrade", func(t *testing.T) {
		assert.True(t, hasher.NeedsUpgrade(string(legacy)))
	})
}

func TestNeedsUpgrade(t *testing.T) {
	hasher := newTestHasher(t)

	t.Run("current argon2id hash does not need upgrade", func(t *testing.T) {
		hash, err := hasher.Hash("password")
		require.NoError(t, err)
		assert.False(t, hasher.NeedsUpgrade(hash))
	})

	t.Run("weaker parameters need upgrade", func(t *testing.T) {
		stronger, err := auth.NewArgon2idHasherWithParams(auth.HasherParams{Time: 2, MemoryKiB: 2048, Threads: 1})
		require.NoError(t, err)

		hash, err := hasher.Hash("password")
		require.NoError(t, err)
		assert.True(t, stronger.NeedsUpgrade(hash))
	})

	t.Run("malformed hash needs upgrade", func(t *testing.T) {
		assert.True(t, hasher.NeedsUpgrade("garbage"))
	})
}
