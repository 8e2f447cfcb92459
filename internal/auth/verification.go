// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/samber/oops"
)

// Verification code configuration.
const (
	VerificationCodeDigits = 6
	DefaultCodeTTL         = 10 * time.Minute
)

var codeSpace = big.NewInt(1_000_000)

// VerificationCode is the pending email verification code of a user.
// At most one exists per user.
type VerificationCode struct {
	UserID    string
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpiredAt returns true if the code is expired at t.
func (c *VerificationCode) IsExpiredAt(t time.Time) bool {
	return !t.Before(c.ExpiresAt)
}

// GenerateVerificationCode returns a uniformly random 6 digit code with
// leading zeros preserved.
func GenerateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", oops.Code("VERIFICATION_CODE_GENERATE_FAILED").
			With("operation", "crypto/rand.Int").
			Wrap(err)
	}
	return fmt.Sprintf("%0*d", VerificationCodeDigits, n.Int64()), nil
}

// HashVerificationCode computes the SHA256 hash of a code.
func HashVerificationCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// VerificationCodeRepository manages verification code persistence.
type VerificationCodeRepository interface {
	// Upsert stores code, replacing any existing code of the same user.
	Upsert(ctx context.Context, code *VerificationCode) error

	// GetByUser retrieves the code of a user.
	GetByUser(ctx context.Context, userID string) (*VerificationCode, error)

	// Consume deletes the user's code if it matches codeHash and is live at
	// now, and reports whether it did. Match and delete are one atomic step,
	// so concurrent calls with the same code see at most one true. An
	// expired code may be deleted as well; it reports false.
	Consume(ctx context.Context, userID, codeHash string, now time.Time) (bool, error)

	// DeleteByUser removes the code of a user. Deleting an absent code is not an error.
	DeleteByUser(ctx context.Context, userID string) error

	// DeleteExpired removes codes expired at now and returns the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CodeSender delivers a verification code to a user.
type CodeSender interface {
	SendVerificationCode(ctx context.Context, to, name, code string) error
}
