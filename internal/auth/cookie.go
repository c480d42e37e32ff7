package auth

import (
	"net/http"
	"time"
)

const (
	CookieName = "jwt"
	// LoggedOutValue replaces the session cookie on logout.
	LoggedOutValue  = "loggedout"
	loggedOutMaxAge = 10 * time.Second
)

// isSecureRequest reports whether the request reached us over TLS,
// directly or through a proxy that says so.
func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}

// SetTokenCookie stores the session token in an HttpOnly cookie.
// Secure is set in production when the request came over TLS.
func SetTokenCookie(w http.ResponseWriter, r *http.Request, token string, isProduction bool, ttl time.Duration, now time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(ttl),
		HttpOnly: true,
		Secure:   isProduction && isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie overwrites the session cookie with a short-lived sentinel
func ClearTokenCookie(w http.ResponseWriter, now time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    LoggedOutValue,
		Path:     "/",
		Expires:  now.Add(loggedOutMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromCookie returns the session cookie value, if any
func TokenFromCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
