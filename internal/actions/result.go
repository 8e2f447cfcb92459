// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package actions

import "net/http"

// Kind classifies a failed action.
type Kind string

// Failure kinds.
const (
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindStorage        Kind = "storage"
)

// User-facing messages shared by several actions.
const (
	MsgUnauthorized         = "Unauthorized"
	MsgRequestFailed        = "Failed to complete request"
	MsgIncorrectCredentials = "Incorrect email or password"
	MsgUsernameTaken        = "Username already in use."
	MsgEmailTaken           = "Email already in use."
	MsgPasswordMismatch     = "Passwords do not match."
	MsgNoChanges            = "Please make some changes before saving"
	MsgChangesSaved         = "Your changes have been saved"
	MsgInvalidCode          = "Invalid or expired code."
	MsgCodeSent             = "A new code has been sent."
	MsgIncorrectPassword    = "Incorrect password"
)

// Failure describes why an action was refused. Message is safe to show
// to the user; Field names the offending form field when there is one.
type Failure struct {
	Kind    Kind
	Field   string
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

// Result is the outcome of an action. Exactly one of Failure or the
// success fields is meaningful.
type Result struct {
	// Redirect is the location to send the client to. Empty when the
	// action completes in place.
	Redirect string
	// Cookie, when set, must be written to the response.
	Cookie  *http.Cookie
	Message string
	Failure *Failure
}

// OK returns true if the action succeeded.
func (r Result) OK() bool {
	return r.Failure == nil
}

func redirect(to string, cookie *http.Cookie) Result {
	return Result{Redirect: to, Cookie: cookie}
}

func fail(kind Kind, field, message string) Result {
	return Result{Failure: &Failure{Kind: kind, Field: field, Message: message}}
}

func unauthorized() Result {
	return fail(KindAuthorization, "", MsgUnauthorized)
}
