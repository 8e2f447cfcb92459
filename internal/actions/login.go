// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package actions

import (
	"context"
	"errors"

	"github.com/katarogu/katarogu/internal/auth"
)

// Login checks the credentials and issues a new session. Every credential
// failure produces the same message.
func (s *Service) Login(ctx context.Context, in LoginInput) Result {
	if f := s.check(in, loginMessages); f != nil {
		return Result{Failure: f}
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if !errors.Is(err, auth.ErrNotFound) {
			return s.storageFailure(ctx, "login lookup", err)
		}
		// Unknown email: spend the same effort before refusing.
		if dummy, hashErr := s.dummyHash(ctx); hashErr == nil {
			_, _ = s.verify(ctx, in.Password, dummy)
		}
		return fail(KindAuthentication, "", MsgIncorrectCredentials)
	}

	ok, err := s.verify(ctx, in.Password, user.PasswordHash)
	if err != nil {
		s.logger.WarnContext(ctx, "password verification failed", "user_id", user.ID, "error", err)
		return fail(KindAuthentication, "", MsgIncorrectCredentials)
	}
	if !ok {
		return fail(KindAuthentication, "", MsgIncorrectCredentials)
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user.ID, in.Password)
	}

	session, err := s.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		return s.storageFailure(ctx, "login session", err)
	}
	return redirect(HomePath, s.sessions.SessionCookie(session))
}

// upgradeHash rehashes with the current parameters. Failure leaves the
// old hash in place, which still verifies.
func (s *Service) upgradeHash(ctx context.Context, userID, password string) {
	upgraded, err := s.hash(ctx, password)
	if err != nil {
		s.logger.WarnContext(ctx, "password rehash failed", "user_id", userID, "error", err)
		return
	}
	if err := s.users.UpdatePassword(ctx, userID, upgraded); err != nil {
		s.logger.WarnContext(ctx, "password rehash not stored", "user_id", userID, "error", err)
	}
}

// Logout ends the current session and clears the cookie.
func (s *Service) Logout(ctx context.Context, current auth.Validation) Result {
	if !current.Valid() {
		return unauthorized()
	}
	if err := s.sessions.InvalidateSession(ctx, current.Session.ID); err != nil {
		return s.storageFailure(ctx, "logout", err)
	}
	return redirect(HomePath, s.sessions.BlankSessionCookie())
}
