// Package crypto provides the authenticated encryption used for state tokens
// and stored credentials. Corrupted or tampered ciphertext fails closed.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrCiphertextMalformed means the blob does not parse (bad encoding or
	// too short to contain a nonce and tag).
	ErrCiphertextMalformed = errors.New("ciphertext malformed")
	// ErrCiphertextTampered means the authentication tag failed to verify.
	ErrCiphertextTampered = errors.New("ciphertext failed authentication")
)

// Cipher seals and opens small payloads with ChaCha20-Poly1305. The wire form
// is base64url(nonce || ciphertext || tag) with a fresh random nonce per call.
type Cipher struct {
	key []byte
}

// NewCipher creates a Cipher from a 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Cipher{key: k}, nil
}

// Seal encrypts plaintext and returns a URL-safe token.
func (c *Cipher) Seal(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a token produced by Seal. The tag is verified before any
// plaintext is returned; failures are indistinguishable beyond the
// malformed/tampered split.
func (c *Cipher) Open(token string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrCiphertextMalformed
	}

	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrCiphertextMalformed
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrCiphertextTampered
	}

	return plaintext, nil
}
