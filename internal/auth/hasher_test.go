// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katarogu/katarogu/internal/auth"
	"github.com/katarogu/katarogu/pkg/errutil"
)

func TestHashPassword(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("produces PHC encoded hash with default parameters", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"), hash)
		assert.NotContains(t, hash, "password123")
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
	})
}

func TestVerifyPassword(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify("correctpassword", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("incorrect password fails without error", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify("wrongpassword", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	malformed := []struct {
		name     string
		hash     string
		contains string
	}{
		{"not a PHC string", "not-a-valid-hash", "segments"},
		{"wrong algorithm", "$argon2i$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA", "unsupported hash algorithm"},
		{"bad version", "$argon2id$vXX$m=19456,t=2,p=1$c2FsdA$aGFzaA", "version"},
		{"bad parameters", "$argon2id$v=19$invalid$c2FsdA$aGFzaA", "parameter"},
		{"bad salt", "$argon2id$v=19$m=19456,t=2,p=1$!!!invalid!!!$aGFzaA", "salt"},
		{"bad key", "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!invalid!!!", "key"},
		{"threads overflow", "$argon2id$v=19$m=19456,t=2,p=256$c2FsdA$aGFzaA", "threads value"},
		{"memory above ceiling", "$argon2id$v=19$m=4294967295,t=2,p=1$c2FsdA$aGFzaA", "memory value"},
		{"time above ceiling", "$argon2id$v=19$m=19456,t=4294967295,p=1$c2FsdA$aGFzaA", "time value"},
	}
	for _, tt := range malformed {
		t.Run(tt.name+" returns format error", func(t *testing.T) {
			ok, err := hasher.Verify("password", tt.hash)
			require.Error(t, err)
			assert.False(t, ok)
			assert.Contains(t, err.Error(), tt.contains)
			errutil.AssertErrorWraps(t, err, "AUTH_INVALID_HASH", auth.ErrHashFormat)
		})
	}
}

func TestVerifyUsesStoredParameters(t *testing.T) {
	strong, err := auth.NewArgon2idHasherWithParams(auth.Argon2Params{
		Memory:      auth.MinArgon2Memory,
		Time:        3,
		Parallelism: 1,
		KeyLen:      32,
	})
	require.NoError(t, err)

	hash, err := strong.Hash("password123")
	require.NoError(t, err)

	ok, err := auth.NewArgon2idHasher().Verify("password123", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNeedsUpgrade(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("foreign hash needs upgrade", func(t *testing.T) {
		assert.True(t, hasher.NeedsUpgrade("$2a$10$N9qo8uLOickgx2ZMRZoMyeIvNq.Uf3hE9tQALNP1Qn9sNp5x5x5x5"))
	})

	t.Run("current hash does not need upgrade", func(t *testing.T) {
		hash, err := hasher.Hash("password")
		require.NoError(t, err)
		assert.False(t, hasher.NeedsUpgrade(hash))
	})

	t.Run("hash with other parameters needs upgrade", func(t *testing.T) {
		raised, err := auth.NewArgon2idHasherWithParams(auth.Argon2Params{
			Memory: auth.MinArgon2Memory, Time: 3, Parallelism: 1, KeyLen: 32,
		})
		require.NoError(t, err)

		hash, err := hasher.Hash("password")
		require.NoError(t, err)
		assert.True(t, raised.NeedsUpgrade(hash))
	})
}

func TestArgon2Params_Validate(t *testing.T) {
	assert.NoError(t, auth.DefaultArgon2Params().Validate())

	weak := []auth.Argon2Params{
		{Memory: auth.MinArgon2Memory - 1, Time: 2, Parallelism: 1, KeyLen: 32},
		{Memory: auth.MinArgon2Memory, Time: 1, Parallelism: 1, KeyLen: 32},
		{Memory: auth.MinArgon2Memory, Time: 2, Parallelism: 0, KeyLen: 32},
		{Memory: auth.MinArgon2Memory, Time: 2, Parallelism: 1, KeyLen: 16},
	}
	for _, p := range weak {
		_, err := auth.NewArgon2idHasherWithParams(p)
		require.Error(t, err, "%+v", p)
		errutil.AssertErrorCode(t, err, "AUTH_WEAK_HASH_PARAMS")
	}

	excessive := []auth.Argon2Params{
		{Memory: auth.MaxArgon2Memory + 1, Time: 2, Parallelism: 1, KeyLen: 32},
		{Memory: auth.MinArgon2Memory, Time: auth.MaxArgon2Time + 1, Parallelism: 1, KeyLen: 32},
	}
	for _, p := range excessive {
		_, err := auth.NewArgon2idHasherWithParams(p)
		require.Error(t, err, "%+v", p)
		errutil.AssertErrorCode(t, err, "AUTH_EXCESSIVE_HASH_PARAMS")
	}
}
