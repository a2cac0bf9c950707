package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// RecordKeySize is the required key length for AES-256.
const RecordKeySize = 32

// ErrRecordTampered is returned by Open when a sealed record fails
// authentication.
var ErrRecordTampered = errors.New("sealed record failed authentication")

// RecordSealer encrypts storage records at rest with AES-256-GCM. Each record
// is bound to the storage key it is written under, so a ciphertext copied to
// another key does not open. A nil *RecordSealer passes data through.
type RecordSealer struct {
	aead cipher.AEAD
}

// NewRecordSealer creates a sealer for a 32-byte key. An empty key returns
// nil, which disables sealing.
func NewRecordSealer(key []byte) (*RecordSealer, error) {
	if len(key) == 0 {
		return nil, nil
	}
	if len(key) != RecordKeySize {
		return nil, fmt.Errorf("encryption key must be exactly %d bytes, got %d", RecordKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &RecordSealer{aead: aead}, nil
}

// Enabled reports whether records are encrypted.
func (s *RecordSealer) Enabled() bool {
	return s != nil
}

// Seal encrypts record for storage under key. Output layout: [nonce][ciphertext].
func (s *RecordSealer) Seal(key string, record []byte) ([]byte, error) {
	if s == nil {
		return record, nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, record, []byte(key)), nil
}

// Open decrypts a record previously sealed under key.
func (s *RecordSealer) Open(key string, sealed []byte) ([]byte, error) {
	if s == nil {
		return sealed, nil
	}
	n := s.aead.NonceSize()
	if len(sealed) < n {
		return nil, ErrRecordTampered
	}
	plain, err := s.aead.Open(nil, sealed[:n], sealed[n:], []byte(key))
	if err != nil {
		return nil, ErrRecordTampered
	}
	return plain, nil
}

// GenerateKey generates a new random 32-byte key
func GenerateKey() ([]byte, error) {
	key := make([]byte, RecordKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// KeyFromBase64 decodes a standard base64 encryption key
func KeyFromBase64(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 key: %w", err)
	}
	if len(key) != RecordKeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", RecordKeySize, len(key))
	}
	return key, nil
}
