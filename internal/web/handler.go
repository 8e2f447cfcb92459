// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

// Package web is the HTTP edge of katarogu. It decodes form posts, runs the
// matching action and turns its Result into a redirect, cookie or JSON body.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/katarogu/katarogu/internal/actions"
	"github.com/katarogu/katarogu/internal/auth"
)

// DefaultRequestTimeout bounds each request.
const DefaultRequestTimeout = 30 * time.Second

// maxFormBytes caps a form body.
const maxFormBytes = 64 << 10

// Actions runs the auth actions. *actions.Service implements it.
type Actions interface {
	Register(ctx context.Context, in actions.RegisterInput) actions.Result
	Login(ctx context.Context, in actions.LoginInput) actions.Result
	Logout(ctx context.Context, current auth.Validation) actions.Result
	Verify(ctx context.Context, current auth.Validation, in actions.VerifyInput) actions.Result
	ResendCode(ctx context.Context, current auth.Validation) actions.Result
	UpdateProfile(ctx context.Context, current auth.Validation, in actions.ProfileInput) actions.Result
	ChangePassword(ctx context.Context, current auth.Validation, in actions.PasswordInput) actions.Result
}

// Sessions resolves session cookies. *auth.SessionManager implements it.
type Sessions interface {
	ValidateSession(ctx context.Context, token string) (auth.Validation, error)
	CookieName() string
	SessionCookie(session *auth.Session) *http.Cookie
	BlankSessionCookie() *http.Cookie
}

// Metrics records request outcomes. *observability.Metrics implements it.
type Metrics interface {
	RecordAction(action, outcome string)
	RecordSessionValidation(result string)
}

type noopMetrics struct{}

func (noopMetrics) RecordAction(string, string) {}
func (noopMetrics) RecordSessionValidation(string) {}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics Metrics) Option {
	return func(h *Handler) { h.metrics = metrics }
}

// WithRequestTimeout overrides DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

// Handler serves the auth routes.
type Handler struct {
	actions  Actions
	sessions Sessions
	metrics  Metrics
	logger   *slog.Logger
	timeout  time.Duration
	root     http.Handler
}

// NewHandler creates the HTTP handler for the auth routes.
func NewHandler(acts Actions, sessions Sessions, opts ...Option) (*Handler, error) {
	if acts == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("actions are required")
	}
	if sessions == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("session manager is required")
	}

	h := &Handler{
		actions:  acts,
		sessions: sessions,
		metrics:  noopMetrics{},
		logger:   slog.Default(),
		timeout:  DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("logger is required")
	}
	if h.metrics == nil {
		h.metrics = noopMetrics{}
	}
	if h.timeout <= 0 {
		return nil, oops.Code("WEB_INVALID_CONFIG").With("timeout", h.timeout).Errorf("request timeout must be positive")
	}

	h.root = otelhttp.NewHandler(h.routes(), "katarogu")
	return h, nil
}

func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.timeout))
	r.Use(h.loadSession)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)
		r.Post("/verify", h.handleVerify)
		r.Post("/verify/resend", h.handleResend)
	})
	r.Route("/user", func(r chi.Router) {
		r.Get("/me", h.handleMe)
		r.Post("/profile", h.handleProfile)
		r.Post("/password", h.handlePassword)
	})

	return r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

// logRequests writes one line per request.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		h.logger.InfoContext(r.Context(), "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
