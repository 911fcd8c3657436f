package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost matches the cost the stored hashes were created with.
const PasswordCost = 10

var ErrPasswordMismatch = errors.New("password does not match")

// HashPassword hashes a plain text password with a salted bcrypt hash.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword returns ErrPasswordMismatch when plain does not produce hash.
func CheckPassword(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))

	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}

	return err
}
