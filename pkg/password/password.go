// Package password wraps bcrypt hashing and verification for user
// credentials.
package password

import (
	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor. Fixed at a strong value; raising it
// only affects newly hashed passwords.
const Cost = 12

// Hash derives a one-way bcrypt hash of the plaintext password.
func Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), Cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether the plaintext password matches the stored
// hash. A mismatch returns false, never an error.
func Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}
