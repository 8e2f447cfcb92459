// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/katarogu/katarogu/internal/actions"
	"github.com/katarogu/katarogu/internal/auth"
)

// parseForm reads a url-encoded or multipart body. On failure it answers
// 400 and returns false.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request, action string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	err := r.ParseForm()
	if err == nil && isMultipart(r) {
		err = r.ParseMultipartForm(maxFormBytes)
	}
	if err != nil {
		h.logger.DebugContext(r.Context(), "unreadable form", "action", action, "error", err)
		h.metrics.RecordAction(action, string(actions.KindValidation))
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid form"})
		return false
	}
	return true
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// optional returns a pointer to the field value, or nil when the field
// was not submitted.
func optional(r *http.Request, key string) *string {
	if !r.PostForm.Has(key) {
		return nil
	}
	v := r.PostForm.Get(key)
	return &v
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r, "register") {
		return
	}
	res := h.actions.Register(r.Context(), actions.RegisterInput{
		Name:            r.PostForm.Get("name"),
		Username:        r.PostForm.Get("username"),
		Email:           r.PostForm.Get("email"),
		Password:        r.PostForm.Get("password"),
		PasswordConfirm: r.PostForm.Get("passwordConfirm"),
	})
	h.respond(w, r, "register", res)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r, "login") {
		return
	}
	res := h.actions.Login(r.Context(), actions.LoginInput{
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	})
	h.respond(w, r, "login", res)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	res := h.actions.Logout(r.Context(), CurrentSession(r.Context()))
	h.respond(w, r, "logout", res)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r, "verify") {
		return
	}
	res := h.actions.Verify(r.Context(), CurrentSession(r.Context()), actions.VerifyInput{
		Code: r.PostForm.Get("code"),
	})
	h.respond(w, r, "verify", res)
}

func (h *Handler) handleResend(w http.ResponseWriter, r *http.Request) {
	res := h.actions.ResendCode(r.Context(), CurrentSession(r.Context()))
	h.respond(w, r, "resend_code", res)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r, "update_profile") {
		return
	}
	res := h.actions.UpdateProfile(r.Context(), CurrentSession(r.Context()), actions.ProfileInput{
		Username:   optional(r, "username"),
		Name:       optional(r, "name"),
		Visibility: optional(r, "visibility"),
	})
	h.respondProfile(w, "update_profile", res)
}

func (h *Handler) handlePassword(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r, "change_password") {
		return
	}
	res := h.actions.ChangePassword(r.Context(), CurrentSession(r.Context()), actions.PasswordInput{
		CurrentPassword: r.PostForm.Get("currentPassword"),
		Password:        r.PostForm.Get("password"),
		PasswordConfirm: r.PostForm.Get("passwordConfirm"),
	})
	h.respond(w, r, "change_password", res)
}

// userView is the public JSON shape of the signed-in user.
type userView struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Username      string          `json:"username"`
	Email         string          `json:"email"`
	EmailVerified bool            `json:"emailVerified"`
	Avatar        string          `json:"avatar"`
	Banner        string          `json:"banner"`
	Visibility    auth.Visibility `json:"visibility"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	current := CurrentSession(r.Context())
	if !current.Valid() {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: actions.MsgUnauthorized})
		return
	}
	u := current.User
	writeJSON(w, http.StatusOK, userView{
		ID:            u.ID,
		Name:          u.Name,
		Username:      u.Username,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Avatar:        u.Avatar,
		Banner:        u.Banner,
		Visibility:    u.Visibility,
		CreatedAt:     u.CreatedAt,
	})
}
