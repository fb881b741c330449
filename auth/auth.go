// Package auth provides password hashing and session id generation.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2 parameters. Changing these invalidates stored hashes, so new
	// parameters need a new version prefix.
	hashVersion = "pbkdf2-sha256"
	iterations  = 210000
	keyLen      = 32
	saltLen     = 16
)

var ErrHashMismatch = errors.New("password does not match hash")

// GenerateSessionID creates a random URL-safe session identifier with
// 192 bits of entropy.
func GenerateSessionID() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}

// HashPassword derives a salted PBKDF2 hash of password, encoded as
// version$iterations$salt$key so parameters can evolve without breaking
// existing records.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, iterations, keyLen, sha256.New)

	return fmt.Sprintf("%s$%d$%s$%s",
		hashVersion,
		iterations,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// CheckPassword verifies password against an encoded hash produced by
// HashPassword. Returns ErrHashMismatch when the password is wrong.
func CheckPassword(password, encoded string) error {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != hashVersion {
		return fmt.Errorf("malformed password hash")
	}

	var iter int
	if _, err := fmt.Sscanf(parts[1], "%d", &iter); err != nil || iter <= 0 {
		return fmt.Errorf("malformed iteration count in password hash")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return fmt.Errorf("malformed salt in password hash: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return fmt.Errorf("malformed key in password hash: %w", err)
	}

	got := pbkdf2.Key([]byte(password), salt, iter, len(want), sha256.New)

	if !hmac.Equal(got, want) {
		return ErrHashMismatch
	}
	return nil
}
