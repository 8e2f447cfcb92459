// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Visibility controls who can see a user's profile.
type Visibility string

// Profile visibility values.
const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

// Valid reports whether v is one of the known visibility values.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPrivate:
		return true
	}
	return false
}

// User represents an account.
type User struct {
	ID              string
	Name            string
	Username        string
	Email           string
	EmailVerified   bool
	PasswordHash    string
	TwoFactorSecret *string
	Avatar          string
	Banner          string
	Visibility      Visibility
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewUser creates an unverified User with a fresh random ID.
// Field formats are checked by the caller; NewUser only rejects empty values.
func NewUser(name, username, email, passwordHash string) (*User, error) {
	if username == "" {
		return nil, oops.Code("USER_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if email == "" {
		return nil, oops.Code("USER_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &User{
		ID:           uuid.NewString(),
		Name:         name,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Visibility:   VisibilityPublic,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// UserUpdate lists every attribute the profile action may change.
// Nil fields are left untouched.
type UserUpdate struct {
	Username   *string
	Name       *string
	Visibility *Visibility
}

// IsEmpty returns true if no field is set.
func (u UserUpdate) IsEmpty() bool {
	return u.Username == nil && u.Name == nil && u.Visibility == nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns a *DuplicateKeyError if the
	// username or email is already taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by exact email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// FindByUsernameOrEmail returns a user whose username or email matches.
	// Returns ErrNotFound if neither is taken.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*User, error)

	// Update applies the non-nil fields of update.
	Update(ctx context.Context, id string, update UserUpdate) error

	// UpdatePassword replaces the password hash.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// MarkEmailVerified sets email_verified for the user.
	MarkEmailVerified(ctx context.Context, id string) error
}
