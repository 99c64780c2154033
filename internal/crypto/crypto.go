// Package crypto encrypts external API tokens before they are persisted.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keySize = 32

var hkdfInfo = []byte("tubedesk external token encryption")

// Service encrypts and decrypts opaque strings.
type Service interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// NoopService passes values through unchanged (local development and tests).
type NoopService struct{}

func (NoopService) Encrypt(plaintext string) (string, error)  { return plaintext, nil }
func (NoopService) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }

// AesGcmService seals values with AES-256-GCM. The output is hex(nonce || ciphertext || tag).
type AesGcmService struct {
	gcm cipher.AEAD
}

// NewAesGcmService builds a service from a 64 character hex key. Any other
// non-empty secret is stretched into a key with HKDF-SHA256.
func NewAesGcmService(secret string) (*AesGcmService, error) {
	if secret == "" {
		return nil, errors.New("encryption key must not be empty")
	}

	key, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return &AesGcmService{gcm: gcm}, nil
}

// New returns an AES-GCM service for a configured secret, or a NoopService when none is set.
func New(secret string) (Service, error) {
	if secret == "" {
		return NoopService{}, nil
	}
	return NewAesGcmService(secret)
}

func deriveKey(secret string) ([]byte, error) {
	if len(secret) == keySize*2 {
		if key, err := hex.DecodeString(secret); err == nil {
			return key, nil
		}
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

func (c *AesGcmService) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(sealed), nil
}

func (c *AesGcmService) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	buf, err := hex.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode hex: %w", err)
	}

	nonceSize := c.gcm.NonceSize()
	if len(buf) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	plain, err := c.gcm.Open(nil, buf[:nonceSize], buf[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plain), nil
}
