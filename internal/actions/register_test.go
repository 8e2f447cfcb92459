// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package actions_test

import (
	"context"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/katarogu/katarogu/internal/actions"
	"github.com/katarogu/katarogu/internal/auth"
)

func adaRegistration() actions.RegisterInput {
	return actions.RegisterInput{
		Name:            "Ada L",
		Username:        "ada99",
		Email:           "ada@example.com",
		Password:        "correct horse",
		PasswordConfirm: "correct horse",
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an unverified user and signs in", func(t *testing.T) {
		f := newFixture(t)
		var created *auth.User
		f.users.On("FindByUsernameOrEmail", anyCtx, "ada99", "ada@example.com").Return(nil, auth.ErrNotFound)
		f.hasher.On("Hash", "correct horse").Return("argon-hash", nil)
		f.users.On("Create", anyCtx, mock.AnythingOfType("*auth.User")).
			Run(func(args mock.Arguments) { created = args.Get(1).(*auth.User) }).
			Return(nil)
		f.sessions.On("Create", anyCtx, mock.AnythingOfType("*auth.Session")).Return(nil)
		f.codes.On("Upsert", anyCtx, mock.AnythingOfType("*auth.VerificationCode")).Return(nil)
		f.sender.On("SendVerificationCode", anyCtx, "ada@example.com", "Ada L", mock.AnythingOfType("string")).Return(nil)

		res := f.svc.Register(ctx, adaRegistration())

		require.True(t, res.OK(), "unexpected failure: %+v", res.Failure)
		assert.Equal(t, actions.HomePath, res.Redirect)
		require.NotNil(t, res.Cookie)
		assert.Equal(t, "auth_session", res.Cookie.Name)
		assert.Len(t, res.Cookie.Value, 2*auth.SessionTokenBytes)
		assert.True(t, res.Cookie.HttpOnly)

		require.NotNil(t, created)
		assert.Equal(t, "Ada L", created.Name)
		assert.Equal(t, "ada99", created.Username)
		assert.Equal(t, "argon-hash", created.PasswordHash)
		assert.False(t, created.EmailVerified)
		assert.NotEmpty(t, created.ID)
	})

	t.Run("send failure does not fail registration", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("FindByUsernameOrEmail", anyCtx, "ada99", "ada@example.com").Return(nil, auth.ErrNotFound)
		f.hasher.On("Hash", "correct horse").Return("argon-hash", nil)
		f.users.On("Create", anyCtx, mock.Anything).Return(nil)
		f.sessions.On("Create", anyCtx, mock.Anything).Return(nil)
		f.codes.On("Upsert", anyCtx, mock.Anything).Return(nil)
		f.sender.On("SendVerificationCode", anyCtx, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

		res := f.svc.Register(ctx, adaRegistration())
		assert.True(t, res.OK())
	})

	t.Run("skips the first code when disabled", func(t *testing.T) {
		cfg := actions.DefaultConfig()
		cfg.SendCodeOnRegister = false
		f := newFixtureWithConfig(t, cfg)
		f.users.On("FindByUsernameOrEmail", anyCtx, "ada99", "ada@example.com").Return(nil, auth.ErrNotFound)
		f.hasher.On("Hash", "correct horse").Return("argon-hash", nil)
		f.users.On("Create", anyCtx, mock.Anything).Return(nil)
		f.sessions.On("Create", anyCtx, mock.Anything).Return(nil)

		res := f.svc.Register(ctx, adaRegistration())
		assert.True(t, res.OK())
	})
}

func TestRegister_InvalidInputWritesNothing(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *actions.RegisterInput)
		field   string
		message string
	}{
		{"short name", func(in *actions.RegisterInput) { in.Name = "A" }, "name", "Please enter a valid name between 2 and 32."},
		{"long name", func(in *actions.RegisterInput) { in.Name = "abcdefghijklmnopqrstuvwxyzabcdefg" }, "name", "Please enter a valid name between 2 and 32."},
		{"short username", func(in *actions.RegisterInput) { in.Username = "ab" }, "username", "Please enter a valid username between 3 and 24 characters."},
		{"uppercase username", func(in *actions.RegisterInput) { in.Username = "Ada99" }, "username", "Please enter a valid username between 3 and 24 characters."},
		{"long username", func(in *actions.RegisterInput) { in.Username = "abcdefghijklmnopqrstuvwxy" }, "username", "Please enter a valid username between 3 and 24 characters."},
		{"bad email", func(in *actions.RegisterInput) { in.Email = "not-an-email" }, "email", "Please enter a valid email."},
		{"short password", func(in *actions.RegisterInput) {
			in.Password = "short"
			in.PasswordConfirm = "short"
		}, "password", "Please enter a valid password between 8 and 255 characters long."},
		{"name checked before username", func(in *actions.RegisterInput) {
			in.Name = ""
			in.Username = "!"
		}, "name", "Please enter a valid name between 2 and 32."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := adaRegistration()
			tt.mutate(&in)

			res := f.svc.Register(context.Background(), in)

			requireFailure(t, res, actions.KindValidation, tt.message)
			assert.Equal(t, tt.field, res.Failure.Field)
		})
	}
}

func TestRegister_Conflicts(t *testing.T) {
	ctx := context.Background()

	t.Run("username taken", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("FindByUsernameOrEmail", anyCtx, "ada99", "ada@example.com").
			Return(&auth.User{Username: "ada99", Email: "someone@example.com"}, nil)

		res := f.svc.Register(ctx, adaRegistration())
		requireFailure(t, res, actions.KindConflict, actions.MsgUsernameTaken)
		assert.Equal(t, "username", res.Failure.Field)
	})

	t.Run("email taken", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("FindByUsernameOrEmail", anyCtx, "ada99", "ada@example.com").
			Return(&auth.User{Username: "lovelace", Email: "ada@example.com"}, nil)

		res := f.svc.Register(ctx, adaRegistration())
		requireFailure(t, res, actions.KindConflict, actions.MsgEmailTaken)
		assert.Equal(t, "email", res.Failure.Field)
	})

	t.Run("insert race reports the colliding field", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("FindByUsernameOrEmail", anyCtx, "ada99", "ada@example.com").Return(nil, auth.ErrNotFound)
		f.hasher.On("Hash", "correct horse").Return("argon-hash", nil)
		f.users.On("Create", anyCtx, mock.Anything).
			Return(oops.Code("USER_DUPLICATE").Wrap(&auth.DuplicateKeyError{Field: "email"}))

		res := f.svc.Register(ctx, adaRegistration())
		requireFailure(t, res, actions.KindConflict, actions.MsgEmailTaken)
	})

	t.Run("collision is reported before a confirmation mismatch", func(t *testing.T) {
		f := newFixture(t)
		in := adaRegistration()
		in.PasswordConfirm = "different"
		f.users.On("FindByUsernameOrEmail", anyCtx, "ada99", "ada@example.com").
			Return(&auth.User{Username: "ada99"}, nil)

		res := f.svc.Register(ctx, in)
		requireFailure(t, res, actions.KindConflict, actions.MsgUsernameTaken)
	})
}

func TestRegister_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("password confirmation mismatch", func(t *testing.T) {
		f := newFixture(t)
		in := adaRegistration()
		in.PasswordConfirm = "correct horse battery"
		f.users.On("FindByUsernameOrEmail", anyCtx, "ada99", "ada@example.com").Return(nil, auth.ErrNotFound)

		res := f.svc.Register(ctx, in)
		requireFailure(t, res, actions.KindValidation, actions.MsgPasswordMismatch)
		assert.Equal(t, "passwordConfirm", res.Failure.Field)
	})

	t.Run("lookup storage error", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("FindByUsernameOrEmail", anyCtx, "ada99", "ada@example.com").Return(nil, assert.AnError)

		res := f.svc.Register(ctx, adaRegistration())
		requireFailure(t, res, actions.KindStorage, actions.MsgRequestFailed)
	})

	t.Run("session storage error", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("FindByUsernameOrEmail", anyCtx, "ada99", "ada@example.com").Return(nil, auth.ErrNotFound)
		f.hasher.On("Hash", "correct horse").Return("argon-hash", nil)
		f.users.On("Create", anyCtx, mock.Anything).Return(nil)
		f.sessions.On("Create", anyCtx, mock.Anything).Return(assert.AnError)

		res := f.svc.Register(ctx, adaRegistration())
		requireFailure(t, res, actions.KindStorage, actions.MsgRequestFailed)
	})
}
