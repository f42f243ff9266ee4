package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// Algorithm identifies the AEAD construction.
type Algorithm string

const (
	AlgorithmAESGCM   Algorithm = "aes-gcm"
	AlgorithmChaCha20 Algorithm = "chacha20-poly1305"
)

// KeySize is the key length every algorithm in this package expects.
const KeySize = 32

var (
	ErrKeySize          = errors.New("seal: key must be 32 bytes")
	ErrCiphertextShort  = errors.New("seal: ciphertext too short")
	ErrUnknownAlgorithm = errors.New("seal: unknown algorithm")
)

// Cipher provides authenticated encryption with a random nonce prepended
// to every sealed message.
type Cipher interface {
	Algorithm() Algorithm
	Seal(plaintext, additionalData []byte) ([]byte, error)
	Open(sealed, additionalData []byte) ([]byte, error)
}

// New picks AES-GCM on architectures where Go uses hardware AES and
// ChaCha20-Poly1305 otherwise.
func New(key []byte) (Cipher, error) {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return NewWithAlgorithm(key, AlgorithmAESGCM)
	default:
		return NewWithAlgorithm(key, AlgorithmChaCha20)
	}
}

// NewWithAlgorithm creates a cipher of the given algorithm.
// An empty algorithm behaves like New.
func NewWithAlgorithm(key []byte, algo Algorithm) (Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch algo {
	case "":
		return New(key)
	case AlgorithmAESGCM:
		var block cipher.Block
		block, err = aes.NewCipher(key)
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case AlgorithmChaCha20:
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, algo)
	}
	if err != nil {
		return nil, fmt.Errorf("seal: init %s: %w", algo, err)
	}

	return &aeadCipher{algo: algo, aead: aead}, nil
}

type aeadCipher struct {
	algo Algorithm
	aead cipher.AEAD
}

func (c *aeadCipher) Algorithm() Algorithm {
	return c.algo
}

func (c *aeadCipher) Seal(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("seal: nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

func (c *aeadCipher) Open(sealed, additionalData []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(sealed) < n+c.aead.Overhead() {
		return nil, ErrCiphertextShort
	}
	return c.aead.Open(nil, sealed[:n], sealed[n:], additionalData)
}
