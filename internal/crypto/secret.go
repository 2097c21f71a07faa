package crypto

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// SealedPrefix marks a config value produced by Seal.
const SealedPrefix = "enc:"

// IsSealed reports whether v was produced by Seal.
func IsSealed(v string) bool {
	return strings.HasPrefix(v, SealedPrefix)
}

// Seal encrypts plaintext into a value safe to keep in a config file.
func (s *Sealer) Seal(plaintext string) (string, error) {
	ciphertext, err := s.encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return SealedPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Reveal decrypts a value produced by Seal. Values without the prefix are
// returned unchanged.
func (s *Sealer) Reveal(v string) (string, error) {
	if !IsSealed(v) {
		return v, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(v, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("crypto: decode sealed value: %w", err)
	}
	plain, err := s.decrypt(raw)
	if err != nil {
		return "", fmt.Errorf("crypto: open sealed value: %w", err)
	}
	return string(plain), nil
}
