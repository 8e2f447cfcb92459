// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

// Package redis stores verification codes in Redis with native key expiry.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/katarogu/katarogu/internal/auth"
)

const keyPrefix = "katarogu:verification:"

// Hash fields of a stored code.
const (
	fieldCodeHash  = "code_hash"
	fieldExpiresAt = "expires_at"
	fieldCreatedAt = "created_at"
)

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient creates a client and verifies the connection.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, oops.Code("REDIS_UNREACHABLE").With("addr", cfg.Addr).Wrap(err)
	}
	return client, nil
}

// VerificationCodeRepository implements auth.VerificationCodeRepository.
// Each user's code is a hash that Redis expires at ExpiresAt.
type VerificationCodeRepository struct {
	client redis.UniversalClient
}

// NewVerificationCodeRepository creates a new VerificationCodeRepository.
func NewVerificationCodeRepository(client redis.UniversalClient) *VerificationCodeRepository {
	return &VerificationCodeRepository{client: client}
}

func codeKey(userID string) string {
	return keyPrefix + userID
}

// Upsert stores code, replacing the user's previous code.
func (r *VerificationCodeRepository) Upsert(ctx context.Context, code *auth.VerificationCode) error {
	key := codeKey(code.UserID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, encodeCode(code))
		pipe.PExpireAt(ctx, key, code.ExpiresAt)
		return nil
	})
	if err != nil {
		return oops.Code("VERIFICATION_UPSERT_FAILED").
			With("operation", "store verification code").
			With("user_id", code.UserID).
			Wrap(err)
	}
	return nil
}

// GetByUser retrieves the code of a user.
func (r *VerificationCodeRepository) GetByUser(ctx context.Context, userID string) (*auth.VerificationCode, error) {
	fields, err := r.client.HGetAll(ctx, codeKey(userID)).Result()
	if err != nil {
		return nil, oops.Code("VERIFICATION_GET_FAILED").
			With("operation", "get verification code").
			With("user_id", userID).
			Wrap(err)
	}
	if len(fields) == 0 {
		return nil, oops.Code("VERIFICATION_NOT_FOUND").With("user_id", userID).Wrap(auth.ErrNotFound)
	}

	code, err := decodeCode(userID, fields)
	if err != nil {
		return nil, oops.Code("VERIFICATION_CORRUPT").With("user_id", userID).Wrap(err)
	}
	return code, nil
}

// consumeScript deletes KEYS[1] when its ARGV[1] field equals ARGV[2].
var consumeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], ARGV[1]) == ARGV[2] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// Consume deletes the user's code if it matches codeHash. Expired codes
// are already gone, so now is unused.
func (r *VerificationCodeRepository) Consume(ctx context.Context, userID, codeHash string, _ time.Time) (bool, error) {
	n, err := consumeScript.Run(ctx, r.client, []string{codeKey(userID)}, fieldCodeHash, codeHash).Int()
	if err != nil {
		return false, oops.Code("VERIFICATION_CONSUME_FAILED").
			With("operation", "consume verification code").
			With("user_id", userID).
			Wrap(err)
	}
	return n == 1, nil
}

// DeleteByUser removes the code of a user.
func (r *VerificationCodeRepository) DeleteByUser(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, codeKey(userID)).Err(); err != nil {
		return oops.Code("VERIFICATION_DELETE_FAILED").
			With("operation", "delete verification code").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts expired codes itself.
func (r *VerificationCodeRepository) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func encodeCode(code *auth.VerificationCode) map[string]any {
	return map[string]any{
		fieldCodeHash:  code.CodeHash,
		fieldExpiresAt: code.ExpiresAt.UTC().Format(time.RFC3339Nano),
		fieldCreatedAt: code.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeCode(userID string, fields map[string]string) (*auth.VerificationCode, error) {
	expiresAt, err := time.Parse(time.RFC3339Nano, fields[fieldExpiresAt])
	if err != nil {
		return nil, oops.With("field", fieldExpiresAt).Wrap(err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	if err != nil {
		return nil, oops.With("field", fieldCreatedAt).Wrap(err)
	}
	return &auth.VerificationCode{
		UserID:    userID,
		CodeHash:  fields[fieldCodeHash],
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}

// Compile-time interface check.
var _ auth.VerificationCodeRepository = (*VerificationCodeRepository)(nil)
