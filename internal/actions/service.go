// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

// Package actions implements the authentication actions behind the site's
// forms. Each action takes already-decoded input, consults the auth stores
// and returns a Result; none of them touch the HTTP request or response.
package actions

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"

	"github.com/katarogu/katarogu/internal/auth"
	"github.com/katarogu/katarogu/pkg/errutil"
)

// Redirect targets.
const (
	HomePath          = "/"
	VerifyPath        = "/auth/verify"
	VerifySuccessPath = "/auth/verify/success"
)

// DefaultMaxConcurrentHashes bounds concurrent hash and verify calls.
const DefaultMaxConcurrentHashes = 4

// dummyPassword is hashed once and verified against when a login names an
// unknown email, so both paths do the same work.
const dummyPassword = "katarogu-dummy-password"

// Sessions issues and revokes sessions. *auth.SessionManager implements it.
type Sessions interface {
	CreateSession(ctx context.Context, userID string) (*auth.Session, error)
	InvalidateSession(ctx context.Context, id ulid.ULID) error
	InvalidateAllSessionsForUser(ctx context.Context, userID string) error
	SessionCookie(session *auth.Session) *http.Cookie
	BlankSessionCookie() *http.Cookie
}

// Codes issues and checks email verification codes.
// *auth.VerificationService implements it.
type Codes interface {
	GenerateCode(ctx context.Context, userID string) (string, error)
	SendCode(ctx context.Context, user *auth.User, code string) error
	MatchCode(ctx context.Context, userID, code string) (bool, error)
	CheckCode(ctx context.Context, userID, code string) (bool, error)
}

// Config tunes the action service.
type Config struct {
	// SendCodeOnRegister emails the first verification code right after
	// registration.
	SendCodeOnRegister bool
	// MaxConcurrentHashes bounds concurrent password hash and verify calls.
	MaxConcurrentHashes int64
}

// DefaultConfig returns the default action configuration.
func DefaultConfig() Config {
	return Config{
		SendCodeOnRegister:  true,
		MaxConcurrentHashes: DefaultMaxConcurrentHashes,
	}
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for storage failures and best-effort steps.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// Service runs the authentication actions.
type Service struct {
	users          auth.UserRepository
	hasher         auth.PasswordHasher
	sessions       Sessions
	codes          Codes
	hashSlots      *semaphore.Weighted
	sendOnRegister bool
	validate       *validator.Validate
	logger         *slog.Logger

	dummyMu sync.Mutex
	dummy   string
}

// NewService creates a Service.
func NewService(users auth.UserRepository, hasher auth.PasswordHasher, sessions Sessions, codes Codes, cfg Config, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Code("ACTIONS_INVALID_CONFIG").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("ACTIONS_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if sessions == nil {
		return nil, oops.Code("ACTIONS_INVALID_CONFIG").Errorf("session manager is required")
	}
	if codes == nil {
		return nil, oops.Code("ACTIONS_INVALID_CONFIG").Errorf("verification service is required")
	}
	if cfg.MaxConcurrentHashes < 1 {
		return nil, oops.Code("ACTIONS_INVALID_CONFIG").
			With("max_concurrent_hashes", cfg.MaxConcurrentHashes).
			Errorf("max concurrent hashes must be at least 1")
	}

	s := &Service{
		users:          users,
		hasher:         hasher,
		sessions:       sessions,
		codes:          codes,
		hashSlots:      semaphore.NewWeighted(cfg.MaxConcurrentHashes),
		sendOnRegister: cfg.SendCodeOnRegister,
		validate:       newValidator(),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code("ACTIONS_INVALID_CONFIG").Errorf("logger is required")
	}
	return s, nil
}

// dummyHash returns the hash of dummyPassword, computing it through a hash
// slot on first use. A failed attempt is retried by the next caller.
func (s *Service) dummyHash(ctx context.Context) (string, error) {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummy != "" {
		return s.dummy, nil
	}
	hash, err := s.hash(ctx, dummyPassword)
	if err != nil {
		return "", err
	}
	s.dummy = hash
	return hash, nil
}

// hash runs the hasher once a slot is free.
func (s *Service) hash(ctx context.Context, password string) (string, error) {
	if err := s.hashSlots.Acquire(ctx, 1); err != nil {
		return "", oops.Code("ACTIONS_HASH_CANCELLED").Wrap(err)
	}
	defer s.hashSlots.Release(1)
	return s.hasher.Hash(password)
}

// verify runs the hasher's Verify once a slot is free.
func (s *Service) verify(ctx context.Context, password, encodedHash string) (bool, error) {
	if err := s.hashSlots.Acquire(ctx, 1); err != nil {
		return false, oops.Code("ACTIONS_HASH_CANCELLED").Wrap(err)
	}
	defer s.hashSlots.Release(1)
	return s.hasher.Verify(password, encodedHash)
}

// storageFailure logs err and returns the generic failure shown to users.
func (s *Service) storageFailure(ctx context.Context, action string, err error) Result {
	errutil.LogErrorContext(ctx, s.logger, action+" failed", err)
	return fail(KindStorage, "", MsgRequestFailed)
}

// conflict turns a duplicate-key error into the matching user message.
func conflict(dup *auth.DuplicateKeyError) Result {
	if dup.Field == "email" {
		return fail(KindConflict, "email", MsgEmailTaken)
	}
	return fail(KindConflict, "username", MsgUsernameTaken)
}
