package auth

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/user"
)

const (
	bcryptCost        = 12
	minPasswordLength = 8
	// passwordChangeSkew backdates passwordChangedAt so that a token issued
	// in the same second as the change is still accepted.
	passwordChangeSkew = time.Second
)

// HashPassword returns the bcrypt digest of plain
func HashPassword(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperror.Validation("Password is too long")
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// VerifyPassword reports whether plain matches digest
func VerifyPassword(plain, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// ValidateNewPassword checks length and confirmation of a password being set
func ValidateNewPassword(password, confirm string) error {
	if password == "" {
		return apperror.Validation("Please provide a password")
	}
	if len(password) < minPasswordLength {
		return apperror.Validation("Password must be at least %d characters", minPasswordLength)
	}
	if confirm == "" {
		return apperror.Validation("Please confirm your password")
	}
	if password != confirm {
		return apperror.Validation("Passwords are not the same!")
	}
	return nil
}

// MarkPasswordChanged records a password change on an existing account.
// New accounts are left without a change timestamp.
func MarkPasswordChanged(u *user.User, now time.Time) {
	if u.ID.IsZero() {
		return
	}
	changed := now.Add(-passwordChangeSkew)
	u.PasswordChangedAt = &changed
}

// ChangedPasswordAfter reports whether the password changed after a token
// issued at iat. Comparison is in whole seconds.
func ChangedPasswordAfter(u *user.User, iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return iat.Unix() < u.PasswordChangedAt.Unix()
}
