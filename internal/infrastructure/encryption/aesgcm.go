package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"pixelift/internal/ports"
)

// Service encrypts access tokens with AES-256-GCM before storage.
// Ciphertext layout: base64url(nonce|ciphertext).
type Service struct {
	key []byte
}

// NewService creates an encryption service from a base64 standard-encoded
// 32-byte key.
func NewService(keyB64 string) (*Service, error) {
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("encryption key must decode to 32 bytes")
	}
	return &Service{key: key}, nil
}

var _ ports.EncryptionService = (*Service)(nil)

// Encrypt seals plaintext with a random nonce
func (s *Service) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(append(nonce, ct...)), nil
}

// Decrypt opens a ciphertext produced by Encrypt
func (s *Service) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	ns := gcm.NonceSize()
	if len(raw) < ns {
		return "", errors.New("ciphertext too short")
	}

	pt, err := gcm.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(pt), nil
}

// Noop passes tokens through unchanged, used in demo mode when no
// encryption key is configured.
type Noop struct{}

// NewNoop creates a pass-through encryption service
func NewNoop() *Noop { return &Noop{} }

var _ ports.EncryptionService = (*Noop)(nil)

func (*Noop) Encrypt(plaintext string) (string, error)  { return plaintext, nil }
func (*Noop) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }
