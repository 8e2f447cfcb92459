// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

// Package postgres implements the auth repositories on PostgreSQL.
package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/katarogu/katarogu/internal/auth"
)

// Unique constraints on the users table, see store migrations.
const (
	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"
)

// duplicateKey converts a unique violation into *auth.DuplicateKeyError.
// It returns nil for any other error.
func duplicateKey(err error) *auth.DuplicateKeyError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case usernameConstraint:
		return &auth.DuplicateKeyError{Field: "username"}
	case emailConstraint:
		return &auth.DuplicateKeyError{Field: "email"}
	default:
		return &auth.DuplicateKeyError{}
	}
}
