// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package actions

import (
	"context"
	"errors"

	"github.com/katarogu/katarogu/internal/auth"
)

// Register creates an account, signs it in and, when configured, emails
// the first verification code. Nothing is written unless every field is
// valid and neither the username nor the email is taken.
func (s *Service) Register(ctx context.Context, in RegisterInput) Result {
	if f := s.check(in, registerMessages); f != nil {
		return Result{Failure: f}
	}

	existing, err := s.users.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	switch {
	case err == nil:
		if existing.Username == in.Username {
			return fail(KindConflict, "username", MsgUsernameTaken)
		}
		return fail(KindConflict, "email", MsgEmailTaken)
	case !errors.Is(err, auth.ErrNotFound):
		return s.storageFailure(ctx, "register lookup", err)
	}

	if in.Password != in.PasswordConfirm {
		return fail(KindValidation, "passwordConfirm", MsgPasswordMismatch)
	}

	passwordHash, err := s.hash(ctx, in.Password)
	if err != nil {
		return s.storageFailure(ctx, "register hash", err)
	}

	user, err := auth.NewUser(in.Name, in.Username, in.Email, passwordHash)
	if err != nil {
		return s.storageFailure(ctx, "register", err)
	}
	if err := s.users.Create(ctx, user); err != nil {
		var dup *auth.DuplicateKeyError
		if errors.As(err, &dup) {
			return conflict(dup)
		}
		return s.storageFailure(ctx, "register insert", err)
	}

	session, err := s.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		return s.storageFailure(ctx, "register session", err)
	}

	if s.sendOnRegister {
		s.sendFirstCode(ctx, user)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return redirect(HomePath, s.sessions.SessionCookie(session))
}

// sendFirstCode is best effort; the user can always ask for a resend.
func (s *Service) sendFirstCode(ctx context.Context, user *auth.User) {
	code, err := s.codes.GenerateCode(ctx, user.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "initial verification code not generated", "user_id", user.ID, "error", err)
		return
	}
	if err := s.codes.SendCode(ctx, user, code); err != nil {
		s.logger.WarnContext(ctx, "initial verification code not sent", "user_id", user.ID, "error", err)
	}
}
