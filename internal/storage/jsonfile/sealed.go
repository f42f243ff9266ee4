package jsonfile

import (
	"bytes"
	"fmt"

	"github.com/yndnr/botvault/pkg/crypto/seal"
)

var sealMagic = []byte("BVSEAL01")

const sealHeaderSize = 8 + seal.SaltSize

func isSealed(raw []byte) bool {
	return len(raw) >= sealHeaderSize && bytes.Equal(raw[:len(sealMagic)], sealMagic)
}

// cipherFor returns the cipher for salt, deriving it on first use or when
// the salt changes. A nil salt reuses the cached key or creates a new salt.
func (f *File) cipherFor(salt []byte) (seal.Cipher, []byte, error) {
	f.keyMu.Lock()
	defer f.keyMu.Unlock()

	if f.closed.Load() {
		return nil, nil, ErrClosed
	}
	if f.cipher != nil && (salt == nil || bytes.Equal(salt, f.salt)) {
		return f.cipher, f.salt, nil
	}

	if salt == nil {
		fresh, err := seal.NewSalt()
		if err != nil {
			return nil, nil, err
		}
		salt = fresh
	}

	key := seal.DeriveKey(f.passphrase, salt)
	defer seal.Wipe(key)

	c, err := seal.NewWithAlgorithm(key, f.algo)
	if err != nil {
		return nil, nil, fmt.Errorf("jsonfile: %w", err)
	}
	f.cipher = c
	f.salt = append([]byte(nil), salt...)
	return f.cipher, f.salt, nil
}

func (f *File) seal(doc []byte) ([]byte, error) {
	c, salt, err := f.cipherFor(nil)
	if err != nil {
		return nil, err
	}

	header := make([]byte, 0, sealHeaderSize)
	header = append(header, sealMagic...)
	header = append(header, salt...)

	body, err := c.Seal(doc, header)
	if err != nil {
		return nil, fmt.Errorf("jsonfile: seal: %w", err)
	}
	return append(header, body...), nil
}

func (f *File) open(raw []byte) ([]byte, error) {
	header := raw[:sealHeaderSize]
	c, _, err := f.cipherFor(header[len(sealMagic):])
	if err != nil {
		return nil, err
	}

	plain, err := c.Open(raw[sealHeaderSize:], header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plain, nil
}
