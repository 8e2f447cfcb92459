// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// Minimum argon2id parameters. Configuration may raise them, never lower.
const (
	MinArgon2Memory      = 19456 // KiB
	MinArgon2Time        = 2     // iterations
	MinArgon2Parallelism = 1
	MinArgon2KeyLen      = 32 // bytes
	argon2SaltLen        = 16
)

// Maximum argon2id parameters accepted from configuration or a stored hash.
const (
	MaxArgon2Memory = 1 << 20 // KiB
	MaxArgon2Time   = 64
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces an argon2id hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or an error
	// matching ErrHashFormat when the hash cannot be parsed.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade returns true if the hash was produced with parameters
	// other than the hasher's current ones.
	NeedsUpgrade(hash string) bool
}

// Argon2Params are the tunable argon2id parameters. They are encoded into
// every hash so verification keeps working after they change.
type Argon2Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

// DefaultArgon2Params returns the recommended minimum parameters.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      MinArgon2Memory,
		Time:        MinArgon2Time,
		Parallelism: MinArgon2Parallelism,
		KeyLen:      MinArgon2KeyLen,
	}
}

// Validate rejects parameters below the recommended minimums.
func (p Argon2Params) Validate() error {
	if p.Memory < MinArgon2Memory {
		return oops.Code("AUTH_WEAK_HASH_PARAMS").With("memory", p.Memory).Errorf("argon2 memory must be at least %d KiB", MinArgon2Memory)
	}
	if p.Time < MinArgon2Time {
		return oops.Code("AUTH_WEAK_HASH_PARAMS").With("time", p.Time).Errorf("argon2 time must be at least %d", MinArgon2Time)
	}
	if p.Memory > MaxArgon2Memory {
		return oops.Code("AUTH_EXCESSIVE_HASH_PARAMS").With("memory", p.Memory).Errorf("argon2 memory must be at most %d KiB", MaxArgon2Memory)
	}
	if p.Time > MaxArgon2Time {
		return oops.Code("AUTH_EXCESSIVE_HASH_PARAMS").With("time", p.Time).Errorf("argon2 time must be at most %d", MaxArgon2Time)
	}
	if p.Parallelism < MinArgon2Parallelism {
		return oops.Code("AUTH_WEAK_HASH_PARAMS").With("parallelism", p.Parallelism).Errorf("argon2 parallelism must be at least %d", MinArgon2Parallelism)
	}
	if p.KeyLen < MinArgon2KeyLen {
		return oops.Code("AUTH_WEAK_HASH_PARAMS").With("key_len", p.KeyLen).Errorf("argon2 key length must be at least %d", MinArgon2KeyLen)
	}
	return nil
}

// Argon2idHasher implements PasswordHasher using argon2id.
type Argon2idHasher struct {
	params Argon2Params
}

// NewArgon2idHasher creates a hasher with DefaultArgon2Params.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{params: DefaultArgon2Params()}
}

// NewArgon2idHasherWithParams creates a hasher with custom parameters.
func NewArgon2idHasherWithParams(params Argon2Params) (*Argon2idHasher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Argon2idHasher{params: params}, nil
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	p := h.params
	hash := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)

	// $argon2id$v=19$m=19456,t=2,p=1$<salt>$<hash>
	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Time,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)

	return encoded, nil
}

// decodedHash is a parsed PHC string.
type decodedHash struct {
	version int
	params  Argon2Params
	salt    []byte
	key     []byte
}

func invalidHash(format string, args ...any) error {
	return oops.Code("AUTH_INVALID_HASH").Wrapf(ErrHashFormat, format, args...)
}

func decodeHash(encodedHash string) (*decodedHash, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, invalidHash("expected 6 segments, got %d", len(parts))
	}

	if parts[1] != "argon2id" {
		return nil, invalidHash("unsupported hash algorithm: %s", parts[1])
	}

	var d decodedHash
	if _, err := fmt.Sscanf(parts[2], "v=%d", &d.version); err != nil {
		return nil, invalidHash("bad version segment %q", parts[2])
	}
	if d.version != argon2.Version {
		return nil, invalidHash("unsupported argon2 version %d", d.version)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, invalidHash("bad parameter segment %q", parts[3])
	}
	if threads == 0 || threads > 255 {
		return nil, invalidHash("threads value %d out of range", threads)
	}
	if memory == 0 || time == 0 {
		return nil, invalidHash("memory and time must be positive")
	}
	if memory > MaxArgon2Memory {
		return nil, invalidHash("memory value %d above %d KiB", memory, MaxArgon2Memory)
	}
	if time > MaxArgon2Time {
		return nil, invalidHash("time value %d above %d", time, MaxArgon2Time)
	}

	var err error
	d.salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, invalidHash("bad salt encoding")
	}

	d.key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, invalidHash("bad key encoding")
	}
	if len(d.key) == 0 || len(d.key) > 1<<10 {
		return nil, invalidHash("invalid hash key length: %d", len(d.key))
	}

	d.params = Argon2Params{
		Memory:      memory,
		Time:        time,
		Parallelism: uint8(threads),
		KeyLen:      uint32(len(d.key)),
	}
	return &d, nil
}

// Verify checks if the password matches the hash using the parameters
// recorded in the hash itself.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	d, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	p := d.params
	computed := argon2.IDKey([]byte(password), d.salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)

	return subtle.ConstantTimeCompare(computed, d.key) == 1, nil
}

// NeedsUpgrade returns true if the hash is unparseable or was produced with
// parameters other than the current ones.
func (h *Argon2idHasher) NeedsUpgrade(encodedHash string) bool {
	d, err := decodeHash(encodedHash)
	if err != nil {
		return true
	}
	return d.params != h.params
}
