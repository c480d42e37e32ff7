package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/redmonkez12/natours-api/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenClaims represents the claims carried by a session token
type TokenClaims struct {
	UserID    string    `json:"sub"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// TokenService issues and verifies session tokens.
// Implementations include JWTService (HS256) and PasetoService (PASETO v4.local).
type TokenService interface {
	CreateToken(userID string) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// NewTokenService picks the implementation named by cfg.TokenFormat.
func NewTokenService(cfg config.AuthConfig) (TokenService, error) {
	switch cfg.TokenFormat {
	case "jwt":
		return NewJWTService(cfg.JWTSecret, cfg.TokenDuration)
	case "paseto":
		return NewPasetoService(cfg.PasetoKey, cfg.TokenDuration)
	default:
		return nil, fmt.Errorf("unknown token format %q", cfg.TokenFormat)
	}
}
