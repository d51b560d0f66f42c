// Package crypto implements password hashing and verification for stored credentials.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/argon2"

	"github.com/and161185/focus-vault/internal/model"
)

// Argon2id parameters.
const (
	argonTime    uint32 = 3         // iterations
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32

	saltLen = 16
)

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// HashPassword returns Argon2id hash of password using the provided salt.
func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// VerifyPassword verifies password against expected Argon2id hash and salt.
func VerifyPassword(password, salt, expected []byte) bool {
	got := HashPassword(password, salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}

// NewCredential salts and hashes password.
func NewCredential(password string) (model.Credential, error) {
	if password == "" {
		return model.Credential{}, errors.New("empty password")
	}
	salt, err := RandBytes(saltLen)
	if err != nil {
		return model.Credential{}, err
	}
	return model.Credential{Salt: salt, Hash: HashPassword([]byte(password), salt)}, nil
}

// Matches reports whether password matches c. An empty credential never matches.
func Matches(c model.Credential, password string) bool {
	if len(c.Hash) == 0 || len(c.Salt) == 0 {
		return false
	}
	return VerifyPassword([]byte(password), c.Salt, c.Hash)
}
