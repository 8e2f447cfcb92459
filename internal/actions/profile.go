// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package actions

import (
	"context"
	"errors"

	"github.com/katarogu/katarogu/internal/auth"
)

// UpdateProfile applies the submitted profile fields. Every submitted
// field must differ from its stored value.
func (s *Service) UpdateProfile(ctx context.Context, current auth.Validation, in ProfileInput) Result {
	if !current.Valid() {
		return unauthorized()
	}
	if in.IsEmpty() {
		return fail(KindValidation, "", MsgNoChanges)
	}
	if f := s.check(in, profileMessages); f != nil {
		return Result{Failure: f}
	}

	user := current.User
	switch {
	case in.Username != nil && *in.Username == user.Username:
		return fail(KindValidation, "username", MsgNoChanges)
	case in.Name != nil && *in.Name == user.Name:
		return fail(KindValidation, "name", MsgNoChanges)
	case in.Visibility != nil && auth.Visibility(*in.Visibility) == user.Visibility:
		return fail(KindValidation, "visibility", MsgNoChanges)
	}

	err := s.users.Update(ctx, user.ID, in.update())
	if err != nil {
		var dup *auth.DuplicateKeyError
		switch {
		case errors.As(err, &dup):
			return conflict(dup)
		case errors.Is(err, auth.ErrNotFound):
			return unauthorized()
		default:
			return s.storageFailure(ctx, "update profile", err)
		}
	}
	return Result{Message: MsgChangesSaved}
}

// ChangePassword replaces the password, signs out every session of the
// user and signs the caller back in with a fresh one.
func (s *Service) ChangePassword(ctx context.Context, current auth.Validation, in PasswordInput) Result {
	if !current.Valid() {
		return unauthorized()
	}
	if f := s.check(in, passwordMessages); f != nil {
		return Result{Failure: f}
	}

	user := current.User
	ok, err := s.verify(ctx, in.CurrentPassword, user.PasswordHash)
	if err != nil {
		s.logger.WarnContext(ctx, "password verification failed", "user_id", user.ID, "error", err)
		return fail(KindAuthentication, "currentPassword", MsgIncorrectPassword)
	}
	if !ok {
		return fail(KindAuthentication, "currentPassword", MsgIncorrectPassword)
	}

	passwordHash, err := s.hash(ctx, in.Password)
	if err != nil {
		return s.storageFailure(ctx, "change password hash", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return s.storageFailure(ctx, "change password", err)
	}
	if err := s.sessions.InvalidateAllSessionsForUser(ctx, user.ID); err != nil {
		return s.storageFailure(ctx, "change password revoke", err)
	}

	session, err := s.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		return s.storageFailure(ctx, "change password session", err)
	}
	s.logger.InfoContext(ctx, "password changed", "user_id", user.ID)
	return redirect(HomePath, s.sessions.SessionCookie(session))
}
