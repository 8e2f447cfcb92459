// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package actions

import (
	"context"

	"github.com/katarogu/katarogu/internal/auth"
)

// Verify checks an emailed code and marks the user's email verified.
func (s *Service) Verify(ctx context.Context, current auth.Validation, in VerifyInput) Result {
	if !current.Valid() {
		return unauthorized()
	}
	user := current.User
	if user.EmailVerified {
		return redirect(VerifySuccessPath, nil)
	}
	if f := s.check(in, verifyMessages); f != nil {
		return Result{Failure: f}
	}

	ok, err := s.codes.MatchCode(ctx, user.ID, in.Code)
	if err != nil {
		return s.storageFailure(ctx, "verify", err)
	}
	if !ok {
		return fail(KindValidation, "code", MsgInvalidCode)
	}

	// Marking is idempotent; the code stays usable until it succeeds.
	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return s.storageFailure(ctx, "verify mark", err)
	}
	consumed, err := s.codes.CheckCode(ctx, user.ID, in.Code)
	switch {
	case err != nil:
		s.logger.WarnContext(ctx, "failed to consume verification code", "user_id", user.ID, "error", err)
	case !consumed:
		s.logger.DebugContext(ctx, "verification code already consumed", "user_id", user.ID)
	}
	s.logger.InfoContext(ctx, "email verified", "user_id", user.ID)
	return redirect(VerifySuccessPath, nil)
}

// ResendCode replaces the user's code and emails the new one.
func (s *Service) ResendCode(ctx context.Context, current auth.Validation) Result {
	if !current.Valid() {
		return unauthorized()
	}
	user := current.User
	if user.EmailVerified {
		return redirect(VerifySuccessPath, nil)
	}

	code, err := s.codes.GenerateCode(ctx, user.ID)
	if err != nil {
		return s.storageFailure(ctx, "resend generate", err)
	}
	if err := s.codes.SendCode(ctx, user, code); err != nil {
		return s.storageFailure(ctx, "resend send", err)
	}
	return Result{Redirect: VerifyPath, Message: MsgCodeSent}
}
