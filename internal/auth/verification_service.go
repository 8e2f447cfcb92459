// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// VerificationOption configures a VerificationService.
type VerificationOption func(*VerificationService)

// WithVerificationClock overrides the time source.
func WithVerificationClock(now func() time.Time) VerificationOption {
	return func(s *VerificationService) { s.now = now }
}

// WithVerificationLogger sets the service logger.
func WithVerificationLogger(logger *slog.Logger) VerificationOption {
	return func(s *VerificationService) { s.logger = logger }
}

// VerificationService issues and checks single-use email verification codes.
type VerificationService struct {
	codes  VerificationCodeRepository
	sender CodeSender
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewVerificationService creates a VerificationService. A zero ttl selects DefaultCodeTTL.
func NewVerificationService(codes VerificationCodeRepository, sender CodeSender, ttl time.Duration, opts ...VerificationOption) (*VerificationService, error) {
	if codes == nil {
		return nil, oops.Code("VERIFICATION_INVALID_CONFIG").Errorf("codes repository is required")
	}
	if sender == nil {
		return nil, oops.Code("VERIFICATION_INVALID_CONFIG").Errorf("code sender is required")
	}
	if ttl < 0 {
		return nil, oops.Code("VERIFICATION_INVALID_CONFIG").With("ttl", ttl).Errorf("code ttl cannot be negative")
	}
	if ttl == 0 {
		ttl = DefaultCodeTTL
	}

	s := &VerificationService{
		codes:  codes,
		sender: sender,
		ttl:    ttl,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GenerateCode creates a new code for userID, replacing any previous one,
// and returns the plaintext.
func (s *VerificationService) GenerateCode(ctx context.Context, userID string) (string, error) {
	code, err := GenerateVerificationCode()
	if err != nil {
		return "", err
	}

	now := s.now()
	record := &VerificationCode{
		UserID:    userID,
		CodeHash:  HashVerificationCode(code),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.codes.Upsert(ctx, record); err != nil {
		return "", oops.Code("VERIFICATION_GENERATE_FAILED").
			With("operation", "upsert code").
			With("user_id", userID).
			Wrap(err)
	}
	return code, nil
}

// SendCode delivers code to the user's email. The stored code is kept on
// failure so the user can ask for a resend.
func (s *VerificationService) SendCode(ctx context.Context, user *User, code string) error {
	if err := s.sender.SendVerificationCode(ctx, user.Email, user.Name, code); err != nil {
		return oops.Code("VERIFICATION_SEND_FAILED").
			With("user_id", user.ID).
			Wrap(err)
	}
	s.logger.DebugContext(ctx, "verification code sent", "user_id", user.ID)
	return nil
}

// MatchCode reports whether code matches the user's live code without
// consuming it.
func (s *VerificationService) MatchCode(ctx context.Context, userID, code string) (bool, error) {
	stored, err := s.codes.GetByUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("VERIFICATION_CHECK_FAILED").
			With("operation", "get code").
			With("user_id", userID).
			Wrap(err)
	}
	if stored.IsExpiredAt(s.now()) {
		return false, nil
	}
	submitted := HashVerificationCode(code)
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(stored.CodeHash)) == 1, nil
}

// CheckCode reports whether code matches the user's live code and consumes
// it in the same step. Of concurrent checks with one code, at most one
// matches. An expired code never matches and is discarded.
func (s *VerificationService) CheckCode(ctx context.Context, userID, code string) (bool, error) {
	ok, err := s.codes.Consume(ctx, userID, HashVerificationCode(code), s.now())
	if err != nil {
		return false, oops.Code("VERIFICATION_CHECK_FAILED").
			With("operation", "consume code").
			With("user_id", userID).
			Wrap(err)
	}
	return ok, nil
}

// DeleteExpired removes all expired codes.
func (s *VerificationService) DeleteExpired(ctx context.Context) (int64, error) {
	n, err := s.codes.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, oops.Code("VERIFICATION_SWEEP_FAILED").Wrap(err)
	}
	return n, nil
}
