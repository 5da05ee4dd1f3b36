// Package tokencipher seals opaque bearer tokens into cookie-safe
// envelopes using AES-256-GCM. An envelope is base64(nonce || ciphertext)
// with a fresh random nonce per call, so encrypting the same token twice
// yields different envelopes that both decrypt to the original value.
package tokencipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const keySize = 32 // AES-256

var (
	// ErrEmptyToken indicates an attempt to seal an empty token.
	ErrEmptyToken = errors.New("tokencipher: empty token")
	// ErrInvalidEnvelope indicates the envelope failed decoding or
	// authentication. Callers must treat this as an invalid session.
	ErrInvalidEnvelope = errors.New("tokencipher: invalid envelope")
)

// Cipher encrypts and decrypts bearer tokens with a key derived from a
// static application secret.
type Cipher struct {
	aead cipher.AEAD
}

// New derives the symmetric key from secret and prepares the AEAD.
func New(secret string) (*Cipher, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("tokencipher: secret is required")
	}
	block, err := aes.NewCipher(deriveKey(secret))
	if err != nil {
		return nil, fmt.Errorf("tokencipher: init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("tokencipher: init gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// deriveKey pads or truncates the secret to the AES-256 key size.
// Short secrets are zero-padded; longer secrets use the first 32 bytes.
func deriveKey(secret string) []byte {
	key := make([]byte, keySize)
	copy(key, secret)
	return key
}

// Encrypt seals token into a transportable envelope.
func (c *Cipher) Encrypt(token string) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("tokencipher: generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(token), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens an envelope produced by Encrypt. Any tampering with the
// envelope, including a single flipped byte, fails authentication.
func (c *Cipher) Decrypt(envelope string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	size := c.aead.NonceSize()
	if len(raw) <= size {
		return "", ErrInvalidEnvelope
	}
	plain, err := c.aead.Open(nil, raw[:size], raw[size:], nil)
	if err != nil {
		return "", ErrInvalidEnvelope
	}
	return string(plain), nil
}
