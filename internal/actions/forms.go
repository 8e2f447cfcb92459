// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package actions

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/katarogu/katarogu/internal/auth"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// RegisterInput is the registration form.
type RegisterInput struct {
	Name            string `form:"name" validate:"required,min=2,max=32"`
	Username        string `form:"username" validate:"required,min=3,max=24,username"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=8,max=255"`
	PasswordConfirm string `form:"passwordConfirm"`
}

// LoginInput is the login form.
type LoginInput struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=6,max=255"`
}

// VerifyInput carries the emailed code.
type VerifyInput struct {
	Code string `form:"code" validate:"required,len=6,number"`
}

// ProfileInput holds the profile fields the user submitted. Nil means the
// field was not part of the form.
type ProfileInput struct {
	Username   *string `form:"username" validate:"omitnil,min=3,max=32,username"`
	Name       *string `form:"name" validate:"omitnil,min=2,max=32"`
	Visibility *string `form:"visibility" validate:"omitnil,oneof=public unlisted private"`
}

// IsEmpty returns true if no field was submitted.
func (p ProfileInput) IsEmpty() bool {
	return p.Username == nil && p.Name == nil && p.Visibility == nil
}

// PasswordInput is the change-password form.
type PasswordInput struct {
	CurrentPassword string `form:"currentPassword" validate:"required,max=255"`
	Password        string `form:"password" validate:"required,min=8,max=255"`
	PasswordConfirm string `form:"passwordConfirm" validate:"eqfield=Password"`
}

// fieldMessages maps a failing field to the message shown for it. A
// "field.tag" key takes precedence over the bare field.
type fieldMessages map[string]string

var (
	registerMessages = fieldMessages{
		"name":     "Please enter a valid name between 2 and 32.",
		"username": "Please enter a valid username between 3 and 24 characters.",
		"email":    "Please enter a valid email.",
		"password": "Please enter a valid password between 8 and 255 characters long.",
	}
	loginMessages = fieldMessages{
		"email":    "Invalid email",
		"password": "Invalid password",
	}
	verifyMessages = fieldMessages{
		"code": "Please enter the 6 digit code.",
	}
	profileMessages = fieldMessages{
		"username":          "Your username must be between 3 and 32 characters",
		"username.username": "Your username may only contain lowercase letters, numbers, _ and -",
		"name":              "Your name must be between 2 and 32 characters",
		"visibility":        "Invalid value",
	}
	passwordMessages = fieldMessages{
		"currentPassword": "Please enter your current password.",
		"password":        "Please enter a valid password between 8 and 255 characters long.",
		"passwordConfirm": MsgPasswordMismatch,
	}
)

func (m fieldMessages) lookup(field, tag string) string {
	if msg, ok := m[field+"."+tag]; ok {
		return msg
	}
	if msg, ok := m[field]; ok {
		return msg
	}
	return "Invalid value"
}

// newValidator returns a validator that reports fields by their form name
// and knows the username rule.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// Registration cannot fail for a well-formed tag name.
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// check validates form and converts the first failing field into a
// validation Failure. Fields are checked in declaration order.
func (s *Service) check(form any, messages fieldMessages) *Failure {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &Failure{Kind: KindValidation, Message: "Invalid value"}
	}
	first := fieldErrs[0]
	return &Failure{
		Kind:    KindValidation,
		Field:   first.Field(),
		Message: messages.lookup(first.Field(), first.Tag()),
	}
}

func (p ProfileInput) update() auth.UserUpdate {
	update := auth.UserUpdate{Username: p.Username, Name: p.Name}
	if p.Visibility != nil {
		v := auth.Visibility(*p.Visibility)
		update.Visibility = &v
	}
	return update
}
