package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("APP_ENV", "")
	t.Setenv("TOKEN_FORMAT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, int64(10*1024), cfg.Server.BodyLimit)
	assert.Equal(t, "jwt", cfg.Auth.TokenFormat)
	assert.Equal(t, 90*24*time.Hour, cfg.Auth.TokenDuration)
	assert.Equal(t, 90*24*time.Hour, cfg.Auth.CookieDuration)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("TOKEN_FORMAT", "paseto")
	t.Setenv("PASETO_KEY", strings.Repeat("k", 32))
	t.Setenv("JWT_EXPIRES_IN", "3600")
	t.Setenv("JWT_COOKIE_EXPIRES_IN", "7")
	t.Setenv("TRUSTED_ORIGINS", "https://natours.io, https://admin.natours.io ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Server.IsProduction())
	assert.Equal(t, time.Hour, cfg.Auth.TokenDuration)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.CookieDuration)
	assert.Equal(t, []string{"https://natours.io", "https://admin.natours.io"}, cfg.Server.TrustedOrigins)
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("TOKEN_FORMAT", "jwt")
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadRejectsUnknownEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("TOKEN_FORMAT", "jwt")
	t.Setenv("APP_ENV", "staging")

	_, err := Load()
	assert.ErrorContains(t, err, "APP_ENV")
}
