// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/katarogu/katarogu/pkg/errutil"
)

// Session defaults.
const (
	DefaultSessionCookieName = "auth_session"
	DefaultSessionLifetime   = 30 * 24 * time.Hour
)

// SessionConfig controls session lifetime and cookie attributes.
type SessionConfig struct {
	CookieName string
	Lifetime   time.Duration
	// RenewWithin is the remaining lifetime below which a validated
	// session is re-stamped with a full lifetime.
	RenewWithin time.Duration
	// Secure marks cookies Secure. Disabled only in development.
	Secure bool
}

// DefaultSessionConfig returns a 30 day lifetime renewed past its half-life.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		CookieName:  DefaultSessionCookieName,
		Lifetime:    DefaultSessionLifetime,
		RenewWithin: DefaultSessionLifetime / 2,
		Secure:      true,
	}
}

// Validate checks that the configuration is usable.
func (c SessionConfig) Validate() error {
	if c.CookieName == "" {
		return oops.Code("SESSION_INVALID_CONFIG").Errorf("cookie name is required")
	}
	if c.Lifetime <= 0 {
		return oops.Code("SESSION_INVALID_CONFIG").With("lifetime", c.Lifetime).Errorf("lifetime must be positive")
	}
	if c.RenewWithin < 0 || c.RenewWithin > c.Lifetime {
		return oops.Code("SESSION_INVALID_CONFIG").
			With("renew_within", c.RenewWithin).
			Errorf("renew window must be between 0 and the session lifetime")
	}
	return nil
}

// Validation is the outcome of ValidateSession. Both fields are nil when
// the token does not name a live session.
type Validation struct {
	Session *Session
	User    *User
	// Renewed is set when the expiry was pushed forward and the caller
	// should send a refreshed cookie.
	Renewed bool
}

// Valid returns true if the validation found a live session.
func (v Validation) Valid() bool {
	return v.Session != nil && v.User != nil
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithSessionClock overrides the time source.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

// WithSessionLogger sets the logger used for best-effort failures.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(m *SessionManager) { m.logger = logger }
}

// SessionManager issues, validates, renews and invalidates sessions.
type SessionManager struct {
	sessions SessionRepository
	users    UserRepository
	cfg      SessionConfig
	now      func() time.Time
	logger   *slog.Logger
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(sessions SessionRepository, users UserRepository, cfg SessionConfig, opts ...SessionOption) (*SessionManager, error) {
	if sessions == nil {
		return nil, oops.Code("SESSION_INVALID_CONFIG").Errorf("sessions repository is required")
	}
	if users == nil {
		return nil, oops.Code("SESSION_INVALID_CONFIG").Errorf("users repository is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &SessionManager{
		sessions: sessions,
		users:    users,
		cfg:      cfg,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		return nil, oops.Code("SESSION_INVALID_CONFIG").Errorf("logger is required")
	}
	return m, nil
}

// CreateSession issues a new session for userID. The returned session
// carries the plaintext Token.
func (m *SessionManager) CreateSession(ctx context.Context, userID string) (*Session, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	now := m.now()
	session, err := NewSession(userID, tokenHash, now.Add(m.cfg.Lifetime))
	if err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "create session").
			Wrap(err)
	}
	session.CreatedAt = now

	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", userID).
			Wrap(err)
	}

	session.Token = token
	return session, nil
}

// ValidateSession resolves a token to its session and user.
// Unknown, expired, or orphaned sessions yield a zero Validation and a nil
// error; expired and orphaned rows are deleted. An error is returned only
// when storage fails.
func (m *SessionManager) ValidateSession(ctx context.Context, token string) (Validation, error) {
	if token == "" {
		return Validation{}, nil
	}

	session, err := m.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if errors.Is(err, ErrNotFound) {
		return Validation{}, nil
	}
	if err != nil {
		return Validation{}, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	now := m.now()
	if session.IsExpiredAt(now) {
		m.discard(ctx, session, "expired")
		return Validation{}, nil
	}

	user, err := m.users.GetByID(ctx, session.UserID)
	if errors.Is(err, ErrNotFound) {
		m.discard(ctx, session, "user missing")
		return Validation{}, nil
	}
	if err != nil {
		return Validation{}, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session user").
			With("user_id", session.UserID).
			Wrap(err)
	}

	session.Token = token
	result := Validation{Session: session, User: user}

	if session.ExpiresAt.Sub(now) < m.cfg.RenewWithin {
		expiresAt := now.Add(m.cfg.Lifetime)
		err := m.sessions.UpdateExpiry(ctx, session.ID, expiresAt)
		switch {
		case errors.Is(err, ErrNotFound):
			// Invalidated between lookup and renewal.
			return Validation{}, nil
		case err != nil:
			errutil.LogError(m.logger, "session renewal failed", err)
		default:
			session.ExpiresAt = expiresAt
			result.Renewed = true
		}
	}

	return result, nil
}

// discard deletes a session found unusable during validation.
func (m *SessionManager) discard(ctx context.Context, session *Session, reason string) {
	if err := m.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, ErrNotFound) {
		m.logger.Warn("failed to delete stale session",
			"session_id", session.ID.String(),
			"reason", reason,
			"error", err,
		)
	}
}

// InvalidateSession deletes a session. Deleting an absent session is not an error.
func (m *SessionManager) InvalidateSession(ctx context.Context, id ulid.ULID) error {
	err := m.sessions.Delete(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("SESSION_INVALIDATE_FAILED").
			With("session_id", id.String()).
			Wrap(err)
	}
	return nil
}

// InvalidateAllSessionsForUser deletes every session of a user.
func (m *SessionManager) InvalidateAllSessionsForUser(ctx context.Context, userID string) error {
	if err := m.sessions.DeleteByUser(ctx, userID); err != nil {
		return oops.Code("SESSION_INVALIDATE_ALL_FAILED").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes all sessions expired by now.
func (m *SessionManager) DeleteExpired(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").Wrap(err)
	}
	return n, nil
}

// CookieName returns the name of the session cookie.
func (m *SessionManager) CookieName() string {
	return m.cfg.CookieName
}

// SessionCookie returns the cookie carrying session's token.
func (m *SessionManager) SessionCookie(session *Session) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// BlankSessionCookie returns a cookie that clears the session cookie.
func (m *SessionManager) BlankSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
