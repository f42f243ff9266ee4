package seal

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// SaltSize is the length of the per-file salt.
const SaltSize = 16

// Argon2id parameters. Each account file derives its key once per open, so
// these stay well below interactive-login strength.
const (
	argon2Time    = 2
	argon2Memory  = 32 * 1024
	argon2Threads = 2
)

// NewSalt returns a random salt for DeriveKey.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("seal: salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives a KeySize key from a passphrase with Argon2id.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, argon2Time, argon2Memory, argon2Threads, KeySize)
}

// Wipe zeroes a key in place.
func Wipe(key []byte) {
	for i := range key {
		key[i] = 0
	}
}
