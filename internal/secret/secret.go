// Package secret seals OAuth access tokens before they are written to the
// user store.
//
// Stores call Seal on write and Open on read, so the rest of the application
// only ever sees plaintext tokens. Two implementations exist:
//   - Plaintext: the identity transform, used when no key is configured
//   - Box: XChaCha20-Poly1305 with a 32-byte key (TOKEN_ENCRYPTION_KEY)
//
// Sealed values look like "v1:<base64(nonce || ciphertext)>". Box.Open returns
// values without that prefix unchanged, so rows written before a key was
// configured stay readable.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const sealedPrefix = "v1:"

// Sealer protects a secret string at rest.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// Plaintext stores values as-is.
type Plaintext struct{}

func (Plaintext) Seal(plaintext string) (string, error) { return plaintext, nil }
func (Plaintext) Open(sealed string) (string, error)    { return sealed, nil }

// Box is an AEAD-backed Sealer.
type Box struct {
	key []byte
}

// NewBox builds a Box from a 32-byte key.
func NewBox(key []byte) (*Box, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("secret: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Box{key: k}, nil
}

// NewBoxFromHex decodes a 64-character hex key, e.g. from `openssl rand -hex 32`.
func NewBoxFromHex(hexKey string) (*Box, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, fmt.Errorf("secret: decoding hex key: %w", err)
	}
	return NewBox(key)
}

// FromConfig returns a Box when hexKey is set and Plaintext otherwise.
func FromConfig(hexKey string) (Sealer, error) {
	if strings.TrimSpace(hexKey) == "" {
		return Plaintext{}, nil
	}
	return NewBoxFromHex(hexKey)
}

func (b *Box) Seal(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", fmt.Errorf("secret: creating cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secret: generating nonce: %w", err)
	}

	out := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(out), nil
}

func (b *Box) Open(sealed string) (string, error) {
	if !strings.HasPrefix(sealed, sealedPrefix) {
		return sealed, nil
	}

	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("secret: decoding sealed value: %w", err)
	}

	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", fmt.Errorf("secret: creating cipher: %w", err)
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", errors.New("secret: sealed value too short")
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("secret: opening sealed value: %w", err)
	}
	return string(plain), nil
}
