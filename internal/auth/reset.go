package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/user"
)

const resetTokenTTL = 10 * time.Minute

// ErrResetTokenNotFound covers both an unknown and an expired reset token.
var ErrResetTokenNotFound = apperror.NotFound("Token is invalid or has expired").WithStatus(http.StatusBadRequest)

// ResetToken is a freshly generated password reset token.
// Plain is sent to the user, Hash is stored.
type ResetToken struct {
	Plain   string
	Hash    string
	Expires time.Time
}

// GenerateResetToken creates a 32 byte random token valid for ten minutes
func GenerateResetToken(now time.Time) (ResetToken, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return ResetToken{}, fmt.Errorf("failed to generate reset token: %w", err)
	}
	plain := hex.EncodeToString(b)
	return ResetToken{
		Plain:   plain,
		Hash:    HashResetToken(plain),
		Expires: now.Add(resetTokenTTL),
	}, nil
}

// HashResetToken returns the hex SHA-256 digest stored for a reset token
func HashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// ResetTokenFinder looks up the account holding an unexpired reset token hash
type ResetTokenFinder interface {
	FindByResetToken(ctx context.Context, hash string, now time.Time) (*user.User, error)
}

// ConsumeResetToken resolves a plaintext reset token to its account.
// The caller clears the token when it sets the new password.
func ConsumeResetToken(ctx context.Context, finder ResetTokenFinder, plain string, now time.Time) (*user.User, error) {
	if plain == "" {
		return nil, ErrResetTokenNotFound
	}
	u, err := finder.FindByResetToken(ctx, HashResetToken(plain), now)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, ErrResetTokenNotFound
		}
		return nil, err
	}
	// stores may match loosely on time; enforce expiry here too
	if u.PasswordResetExpires == nil || !now.Before(*u.PasswordResetExpires) {
		return nil, ErrResetTokenNotFound
	}
	return u, nil
}

