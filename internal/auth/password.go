package auth

import (
	"errors"
	"fmt"

	"citizenly-registry/internal/apperr"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash for storage in
// user_profiles.password_hash.
func HashPassword(password string) ([]byte, error) {
	if password == "" {
		return nil, apperr.New(apperr.CodeValidation, "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, apperr.New(apperr.CodeValidation, "password is too long")
		}
		return nil, fmt.Errorf("could not hash password: %w", err)
	}
	return hashed, nil
}

// VerifyPassword checks a plaintext password against a stored hash. A
// mismatch is unauthorized, not an internal error.
func VerifyPassword(hash []byte, password string) error {
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return apperr.New(apperr.CodeUnauthorized, "invalid credentials")
		}
		return fmt.Errorf("could not verify password: %w", err)
	}
	return nil
}
