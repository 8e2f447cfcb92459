// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

// Package auth provides the authentication primitives of katarogu.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - creates a User with a fresh random ID
//   - NewSession - creates a Session with validated owner and expiry
//
// Repository implementations receive pre-validated types from these constructors.
//
// # Services
//
//   - Argon2idHasher - salted memory-hard password hashing in PHC form
//   - SessionManager - session issuance, sliding renewal, invalidation, cookies
//   - VerificationService - single-use six digit email verification codes
//   - Sweeper - periodic removal of expired sessions and codes
//
// Services are created with New* constructors that validate dependencies.
// Storage implementations live in the postgres and redis subpackages.
package auth
