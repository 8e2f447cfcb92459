// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package auth_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katarogu/katarogu/internal/auth"
	"github.com/katarogu/katarogu/pkg/errutil"
)

func TestNewUser(t *testing.T) {
	t.Run("creates unverified public user with random id", func(t *testing.T) {
		user, err := auth.NewUser("Alice", "alice", "alice@example.com", "$argon2id$hash")
		require.NoError(t, err)

		parsed, err := uuid.Parse(user.ID)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(4), parsed.Version())
		assert.False(t, user.EmailVerified)
		assert.Equal(t, auth.VisibilityPublic, user.Visibility)
		assert.Nil(t, user.TwoFactorSecret)
		assert.Empty(t, user.Avatar)
		assert.Empty(t, user.Banner)
		assert.Equal(t, user.CreatedAt, user.UpdatedAt)
	})

	t.Run("ids are not derived from input", func(t *testing.T) {
		a, err := auth.NewUser("Alice", "alice", "alice@example.com", "h")
		require.NoError(t, err)
		b, err := auth.NewUser("Alice", "alice", "alice@example.com", "h")
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("rejects empty fields", func(t *testing.T) {
		_, err := auth.NewUser("Alice", "", "alice@example.com", "h")
		errutil.AssertErrorCode(t, err, "USER_INVALID_USERNAME")

		_, err = auth.NewUser("Alice", "alice", "", "h")
		errutil.AssertErrorCode(t, err, "USER_INVALID_EMAIL")

		_, err = auth.NewUser("Alice", "alice", "alice@example.com", "")
		errutil.AssertErrorCode(t, err, "USER_INVALID_HASH")
	})
}

func TestVisibility_Valid(t *testing.T) {
	for _, v := range []auth.Visibility{auth.VisibilityPublic, auth.VisibilityUnlisted, auth.VisibilityPrivate} {
		assert.True(t, v.Valid(), v)
	}
	assert.False(t, auth.Visibility("friends").Valid())
	assert.False(t, auth.Visibility("").Valid())
}

func TestUserUpdate_IsEmpty(t *testing.T) {
	assert.True(t, auth.UserUpdate{}.IsEmpty())

	name := "Bob"
	assert.False(t, auth.UserUpdate{Name: &name}.IsEmpty())
}

func TestDuplicateKeyError(t *testing.T) {
	var err error = &auth.DuplicateKeyError{Field: "email"}

	assert.True(t, errors.Is(err, auth.ErrDuplicateKey))
	assert.False(t, errors.Is(err, auth.ErrNotFound))
	assert.Equal(t, "duplicate key: email already in use", err.Error())

	var dup *auth.DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "email", dup.Field)
}
