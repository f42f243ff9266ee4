// Package seal provides authenticated encryption for database files at rest.
//
// Supported algorithms:
//
//   - AES-256-GCM: preferred where the CPU accelerates AES
//   - ChaCha20-Poly1305: fallback elsewhere
//
// Keys are either supplied raw (32 bytes) or derived from a passphrase with
// Argon2id and a per-file salt; the salt is not secret and travels with the
// sealed payload.
//
// Usage:
//
//	key := seal.DeriveKey(passphrase, salt)
//	c, err := seal.New(key)
//	sealed, err := c.Seal(plaintext, aad)
//	plain, err := c.Open(sealed, aad)
//
// Cipher values are safe for concurrent use.
package seal
