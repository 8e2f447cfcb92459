// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package auth

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateKey matches any *DuplicateKeyError.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrHashFormat is returned when a stored password hash cannot be parsed.
var ErrHashFormat = errors.New("invalid hash format")

// DuplicateKeyError reports a uniqueness violation raised by storage,
// typically a registration that raced past the pre-insert lookup.
type DuplicateKeyError struct {
	// Field is the colliding attribute ("username" or "email"), or empty
	// when storage did not say.
	Field string
}

func (e *DuplicateKeyError) Error() string {
	if e.Field == "" {
		return ErrDuplicateKey.Error()
	}
	return fmt.Sprintf("%s: %s already in use", ErrDuplicateKey, e.Field)
}

// Is makes errors.Is(err, ErrDuplicateKey) true for any DuplicateKeyError.
func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}
