// Package fieldcipher encrypts individual string fields with AES-256-GCM.
//
// A ciphertext is base64url(version || nonce || sealed), where sealed carries
// the GCM tag and the version byte is bound as additional data. The encoding
// is self-contained, so Decrypt needs nothing but the key.
package fieldcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/dtroode/medisupply-security/internal/model"
)

const (
	version1 byte = 1
	// KeySize is the required key length in bytes.
	KeySize = 32
)

var encoding = base64.RawURLEncoding.Strict()

// Cipher is safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// New creates a Cipher for a 32-byte key.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: cipher key must be %d bytes, got %d", model.ErrKeyStore, KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create block cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonceSize := c.aead.NonceSize()
	buf := make([]byte, 1+nonceSize, 1+nonceSize+len(plaintext)+c.aead.Overhead())
	buf[0] = version1

	if _, err := rand.Read(buf[1 : 1+nonceSize]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(buf, buf[1:1+nonceSize], []byte(plaintext), buf[:1])

	return encoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Malformed input, unknown versions
// and failed authentication all return model.ErrDecryption.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := encoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid encoding", model.ErrDecryption)
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < 1+nonceSize+c.aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", model.ErrDecryption)
	}
	if raw[0] != version1 {
		return "", fmt.Errorf("%w: unsupported version %d", model.ErrDecryption, raw[0])
	}

	plaintext, err := c.aead.Open(nil, raw[1:1+nonceSize], raw[1+nonceSize:], raw[:1])
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", model.ErrDecryption)
	}

	return string(plaintext), nil
}
