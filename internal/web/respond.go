// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package web

import (
	"encoding/json"
	"net/http"

	"github.com/katarogu/katarogu/internal/actions"
)

type errorBody struct {
	Error string `json:"error"`
}

// profileBody mirrors the shape the profile form expects.
type profileBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// statusFor maps a failure kind to its HTTP status.
func statusFor(kind actions.Kind) int {
	switch kind {
	case actions.KindValidation:
		return http.StatusBadRequest
	case actions.KindConflict:
		return http.StatusConflict
	case actions.KindAuthentication, actions.KindAuthorization:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// outcome labels a result for metrics.
func outcome(res actions.Result) string {
	if res.OK() {
		return "success"
	}
	return string(res.Failure.Kind)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(body)
}

// setCookie writes c, replacing any cookie the session middleware queued.
func setCookie(w http.ResponseWriter, c *http.Cookie) {
	if c == nil {
		return
	}
	w.Header().Del("Set-Cookie")
	http.SetCookie(w, c)
}

// respond writes the result of the named action.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, action string, res actions.Result) {
	h.metrics.RecordAction(action, outcome(res))

	if !res.OK() {
		writeJSON(w, statusFor(res.Failure.Kind), errorBody{Error: res.Failure.Message})
		return
	}

	setCookie(w, res.Cookie)
	if res.Redirect != "" {
		http.Redirect(w, r, res.Redirect, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, profileBody{Message: res.Message})
}

// respondProfile writes a profile result as {"error": bool, "message": ...}.
func (h *Handler) respondProfile(w http.ResponseWriter, action string, res actions.Result) {
	h.metrics.RecordAction(action, outcome(res))

	if !res.OK() {
		writeJSON(w, statusFor(res.Failure.Kind), profileBody{Error: true, Message: res.Failure.Message})
		return
	}
	writeJSON(w, http.StatusOK, profileBody{Message: res.Message})
}
