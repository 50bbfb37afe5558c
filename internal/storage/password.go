package storage

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// BcryptHasher implements Hasher with bcrypt.
type BcryptHasher struct {
	// Cost defaults to bcrypt.DefaultCost.
	Cost int
}

// Hash returns the bcrypt hash of password.
func (b BcryptHasher) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches hash.
func (BcryptHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CheckPassword enforces the password policy: at least 8 characters with at
// least one letter and one digit.
func CheckPassword(password string) error {
	if len(password) < 8 {
		return invalid("password", "must be at least 8 characters")
	}
	if len(password) > 72 {
		return invalid("password", "must be at most 72 bytes")
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return invalid("password", "must contain a letter and a digit")
	}
	return nil
}
