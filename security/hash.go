// Package security provides password hashing for user profiles.
//
// Passwords are hashed with PBKDF2-SHA256 using a random per-password salt
// and a high iteration count. The stored format is the base64 encoding of
// the salt concatenated with the derived key, so a single string column
// carries everything needed for verification.
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations is the PBKDF2 iteration count.
	Iterations = 100_000
	// SaltLength is the salt size in bytes.
	SaltLength = 32
	// KeyLength is the derived key size in bytes.
	KeyLength = 32
)

// ErrInvalidHash is returned when a stored hash cannot be decoded.
var ErrInvalidHash = errors.New("invalid password hash")

// HashPassword hashes a password with a freshly generated random salt and
// returns the base64-encoded salt||hash string.
func HashPassword(password string) (string, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, Iterations, KeyLength, sha256.New)

	combined := make([]byte, 0, SaltLength+KeyLength)
	combined = append(combined, salt...)
	combined = append(combined, key...)
	return base64.StdEncoding.EncodeToString(combined), nil
}

// VerifyPassword reports whether password matches the stored salt||hash
// string. Comparison is constant time; malformed stored hashes simply fail
// verification.
func VerifyPassword(password, stored string) bool {
	salt, expected, err := decodeHash(stored)
	if err != nil {
		return false
	}

	key := pbkdf2.Key([]byte(password), salt, Iterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(key, expected) == 1
}

func decodeHash(stored string) (salt, key []byte, err error) {
	combined, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	if len(combined) <= SaltLength {
		return nil, nil, fmt.Errorf("%w: too short", ErrInvalidHash)
	}
	return combined[:SaltLength], combined[SaltLength:], nil
}
