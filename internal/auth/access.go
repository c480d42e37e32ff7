package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/user"
)

// Outcomes of a failed authentication. Each answers 401 with its own message.
var (
	ErrNoToken      = apperror.Authentication("You are not logged in! Please log in to get access.")
	ErrBadToken     = apperror.Authentication("Invalid token. Please log in again!")
	ErrTokenExpired = apperror.Authentication("Your token has expired! Please log in again.")
	ErrUserGone     = apperror.Authentication("The user belonging to this token no longer exists.")
	ErrStaleToken   = apperror.Authentication("User recently changed password! Please log in again.")
	ErrForbidden    = apperror.Forbidden("You do not have permission to perform this action")
)

// ExtractToken returns the bearer token from the Authorization header,
// falling back to the session cookie when headers are allowed to be absent.
// The logout sentinel counts as no token.
func ExtractToken(r *http.Request, fromHeader bool) (string, bool) {
	if fromHeader {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			if token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); token != "" {
				return token, true
			}
		}
	}
	token, ok := TokenFromCookie(r)
	if !ok || token == LoggedOutValue {
		return "", false
	}
	return token, true
}

// Authenticator resolves a session token to a current, active account.
type Authenticator struct {
	tokens TokenService
	users  UserFinder
}

func NewAuthenticator(tokens TokenService, users UserFinder) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate verifies the token, loads its account and rejects tokens
// issued before the account's last password change.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*user.User, *TokenClaims, error) {
	claims, err := a.tokens.VerifyToken(token)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return nil, nil, ErrTokenExpired
		}
		return nil, nil, ErrBadToken
	}

	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, nil, ErrBadToken
	}

	u, err := a.users.GetByID(ctx, id, user.ScopeActive)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, nil, ErrUserGone
		}
		return nil, nil, err
	}

	if ChangedPasswordAfter(u, claims.IssuedAt) {
		return nil, nil, ErrStaleToken
	}

	return u, claims, nil
}

// Permits reports whether role is one of allowed.
func Permits(role user.Role, allowed ...user.Role) bool {
	return slices.Contains(allowed, role)
}

