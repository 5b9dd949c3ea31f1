// Package crypto seals and opens the free-text description fields before they
// touch the database. Everything stored at rest goes through Encrypt; rows are
// opened again on read. Losing the key makes the stored text unrecoverable.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

const keySize = 32

var ErrDecrypt = errors.New("crypto: cannot decrypt value")

type Cipher struct {
	key [keySize]byte
}

// New expects a base64-encoded 32-byte key.
func New(encodedKey string) (*Cipher, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", keySize, len(raw))
	}

	c := &Cipher{}
	copy(c.key[:], raw)
	return c, nil
}

// Encrypt seals plain text and returns a base64 envelope (nonce || box),
// safe to store in a text column.
func (c *Cipher) Encrypt(plain string) (string, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plain), &nonce, &c.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. A wrong key, a truncated value or
// a tampered envelope all return ErrDecrypt.
func (c *Cipher) Decrypt(envelope string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", ErrDecrypt
	}
	if len(raw) < 24+secretbox.Overhead {
		return "", ErrDecrypt
	}

	var nonce [24]byte
	copy(nonce[:], raw[:24])

	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &c.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
