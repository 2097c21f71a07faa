// Package auth guards the report browser with a single user and a bcrypt
// password hash.
package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

var ErrShortPassword = errors.New("password must be at least 6 characters")

// Hash returns a bcrypt hash suitable for TESTREPORT_AUTH_PASSWORD_HASH.
func Hash(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", ErrShortPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// Verify reports whether password matches the stored bcrypt hash.
func Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Credentials is the configured user of the report browser.
type Credentials struct {
	User         string
	PasswordHash string
}

// Enabled reports whether both the user and the hash are configured.
func (c Credentials) Enabled() bool {
	return c.User != "" && c.PasswordHash != ""
}

// Check compares user in constant time and the password against the hash.
// The hash is always checked so a wrong user costs the same as a wrong
// password.
func (c Credentials) Check(user, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.User)) == 1
	passOK := Verify(c.PasswordHash, password)
	return userOK && passOK
}
