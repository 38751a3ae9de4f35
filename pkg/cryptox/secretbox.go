package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// MinSecretBoxKeyLength is the least key material NewSecretBox accepts.
const MinSecretBoxKeyLength = 32

// sealedPrefix marks a stored value as sealed. Base32 TOTP secrets never
// contain ':' so plaintext values can't be mistaken for sealed ones.
const sealedPrefix = "v1:"

var (
	ErrSecretBoxKeyTooShort = fmt.Errorf("cryptox: secret box key must be at least %d bytes", MinSecretBoxKeyLength)
	ErrSecretBoxNoKey       = errors.New("cryptox: value is sealed but no key is configured")
	ErrSecretBoxCorrupt     = errors.New("cryptox: sealed value is corrupt")
)

// SecretBox seals short secrets for storage with AES-256-GCM.
// Output format: "v1:" + base64url([12-byte nonce][ciphertext][16-byte tag]).
//
// A nil *SecretBox stores values as-is, which keeps existing plaintext
// secrets readable when a key is configured later.
type SecretBox struct {
	aead cipher.AEAD
}

// NewSecretBox derives an AES-256 key from keyMaterial with HKDF-SHA256.
func NewSecretBox(keyMaterial []byte) (*SecretBox, error) {
	if len(keyMaterial) < MinSecretBoxKeyLength {
		return nil, ErrSecretBoxKeyTooShort
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, keyMaterial, nil, []byte("secretbox v1")), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &SecretBox{aead: aead}, nil
}

// IsSealed reports whether a stored value was produced by Seal.
func IsSealed(stored string) bool {
	return strings.HasPrefix(stored, sealedPrefix)
}

// Seal encrypts plaintext with a random nonce.
func (b *SecretBox) Seal(plaintext string) (string, error) {
	if b == nil {
		return plaintext, nil
	}

	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Values that were never sealed come back unchanged.
func (b *SecretBox) Open(stored string) (string, error) {
	encoded, ok := strings.CutPrefix(stored, sealedPrefix)
	if !ok {
		return stored, nil
	}
	if b == nil {
		return "", ErrSecretBoxNoKey
	}

	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrSecretBoxCorrupt
	}

	nonceSize := b.aead.NonceSize()
	if len(data) < nonceSize {
		return "", ErrSecretBoxCorrupt
	}

	plaintext, err := b.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", ErrSecretBoxCorrupt
	}
	return string(plaintext), nil
}
