// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package web

import (
	"context"
	"net/http"

	"github.com/katarogu/katarogu/internal/actions"
	"github.com/katarogu/katarogu/internal/auth"
	"github.com/katarogu/katarogu/pkg/errutil"
)

// Session validation results recorded in metrics.
const (
	sessionAbsent  = "absent"
	sessionValid   = "valid"
	sessionRenewed = "renewed"
	sessionInvalid = "invalid"
	sessionError   = "error"
)

type sessionKey struct{}

// CurrentSession returns the session resolved for the request. The zero
// Validation means the request is anonymous.
func CurrentSession(ctx context.Context) auth.Validation {
	v, _ := ctx.Value(sessionKey{}).(auth.Validation)
	return v
}

func withSession(ctx context.Context, v auth.Validation) context.Context {
	return context.WithValue(ctx, sessionKey{}, v)
}

// loadSession resolves the session cookie. A renewed session gets a fresh
// cookie; a cookie that names no live session is cleared.
func (h *Handler) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(h.sessions.CookieName())
		if err != nil || cookie.Value == "" {
			h.metrics.RecordSessionValidation(sessionAbsent)
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		v, err := h.sessions.ValidateSession(ctx, cookie.Value)
		if err != nil {
			h.metrics.RecordSessionValidation(sessionError)
			errutil.LogErrorContext(ctx, h.logger, "session validation failed", err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: actions.MsgRequestFailed})
			return
		}

		switch {
		case !v.Valid():
			h.metrics.RecordSessionValidation(sessionInvalid)
			http.SetCookie(w, h.sessions.BlankSessionCookie())
		case v.Renewed:
			h.metrics.RecordSessionValidation(sessionRenewed)
			http.SetCookie(w, h.sessions.SessionCookie(v.Session))
		default:
			h.metrics.RecordSessionValidation(sessionValid)
		}

		next.ServeHTTP(w, r.WithContext(withSession(ctx, v)))
	})
}
