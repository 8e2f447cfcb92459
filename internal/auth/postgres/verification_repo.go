// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/katarogu/katarogu/internal/auth"
	"github.com/katarogu/katarogu/internal/store"
)

// VerificationCodeRepository implements auth.VerificationCodeRepository
// using PostgreSQL. One row per user.
type VerificationCodeRepository struct {
	db store.DB
}

// NewVerificationCodeRepository creates a new VerificationCodeRepository.
func NewVerificationCodeRepository(db store.DB) *VerificationCodeRepository {
	return &VerificationCodeRepository{db: db}
}

// Upsert stores code, replacing the user's previous code.
func (r *VerificationCodeRepository) Upsert(ctx context.Context, code *auth.VerificationCode) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO verification_codes (user_id, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET code_hash = EXCLUDED.code_hash,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at
	`, code.UserID, code.CodeHash, code.ExpiresAt, code.CreatedAt)
	if err != nil {
		return oops.Code("VERIFICATION_UPSERT_FAILED").
			With("operation", "upsert verification code").
			With("user_id", code.UserID).
			Wrap(err)
	}
	return nil
}

// GetByUser retrieves the code of a user.
func (r *VerificationCodeRepository) GetByUser(ctx context.Context, userID string) (*auth.VerificationCode, error) {
	var code auth.VerificationCode
	err := r.db.QueryRow(ctx, `
		SELECT user_id::text, code_hash, expires_at, created_at
		FROM verification_codes
		WHERE user_id = $1
	`, userID).Scan(&code.UserID, &code.CodeHash, &code.ExpiresAt, &code.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("VERIFICATION_NOT_FOUND").With("user_id", userID).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("VERIFICATION_GET_FAILED").
			With("operation", "get verification code").
			With("user_id", userID).
			Wrap(err)
	}
	return &code, nil
}

// Consume deletes the user's code when it matches codeHash and is live, or
// when it has expired. The returned row says which case applied.
func (r *VerificationCodeRepository) Consume(ctx context.Context, userID, codeHash string, now time.Time) (bool, error) {
	var matched bool
	err := r.db.QueryRow(ctx, `
		DELETE FROM verification_codes
		WHERE user_id = $1 AND (code_hash = $2 OR expires_at <= $3)
		RETURNING code_hash = $2 AND expires_at > $3
	`, userID, codeHash, now).Scan(&matched)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("VERIFICATION_CONSUME_FAILED").
			With("operation", "consume verification code").
			With("user_id", userID).
			Wrap(err)
	}
	return matched, nil
}

// DeleteByUser removes the code of a user.
func (r *VerificationCodeRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM verification_codes WHERE user_id = $1`, userID); err != nil {
		return oops.Code("VERIFICATION_DELETE_FAILED").
			With("operation", "delete verification code").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes codes with expires_at <= now.
func (r *VerificationCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM verification_codes WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("VERIFICATION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired verification codes").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.VerificationCodeRepository = (*VerificationCodeRepository)(nil)
