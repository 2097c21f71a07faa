// Package crypto seals secrets, such as the SMTP password, that users keep
// in their report configuration file.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
)

// MinSecretLen is the shortest TESTREPORT_SECRET_KEY accepted.
const MinSecretLen = 32

var ErrShortSecret = fmt.Errorf("crypto: secret must be at least %d characters", MinSecretLen)

// Sealer encrypts config values with AES-256-GCM. The key is the SHA-256
// of the user's secret.
type Sealer struct {
	gcm cipher.AEAD
}

func NewSealer(secret string) (*Sealer, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrShortSecret
	}
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{gcm: gcm}, nil
}

func (s *Sealer) encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *Sealer) decrypt(ciphertext []byte) ([]byte, error) {
	n := s.gcm.NonceSize()
	if len(ciphertext) < n {
		return nil, errors.New("crypto: ciphertext too short")
	}
	return s.gcm.Open(nil, ciphertext[:n], ciphertext[n:], nil)
}
