package auth

import (
	"net/http"

	"github.com/redmonkez12/natours-api/internal/httputil"
	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/user"
)

// Middleware handles authentication for protected routes
type Middleware struct {
	auth *Authenticator
	errs *httputil.ErrorWriter
}

func NewMiddleware(auth *Authenticator, errs *httputil.ErrorWriter) *Middleware {
	return &Middleware{auth: auth, errs: errs}
}

// Protect rejects requests without a valid, current session and stores the
// account in the request context.
func (m *Middleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.GetLoggerFromContext(r.Context())

		token, ok := ExtractToken(r, true)
		if !ok {
			m.errs.Write(w, r, ErrNoToken)
			return
		}

		u, _, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			logger.Warn("authentication failed", "error", err.Error())
			m.errs.Write(w, r, err)
			return
		}

		ctx := user.WithContext(r.Context(), u)
		ctx = logging.WithLogger(ctx, logger.WithFields(map[string]any{"user_id": u.ID.Hex()}))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IsLoggedIn attaches the account behind the session cookie when there is one.
// Any failure leaves the request anonymous.
func (m *Middleware) IsLoggedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := ExtractToken(r, false)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		u, _, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			logging.GetLoggerFromContext(r.Context()).Debug("continuing anonymously", "error", err.Error())
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(user.WithContext(r.Context(), u)))
	})
}

// RestrictTo only lets accounts with one of the given roles through.
// It must run after Protect.
func (m *Middleware) RestrictTo(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := user.FromContext(r.Context())
			if !ok {
				m.errs.Write(w, r, ErrNoToken)
				return
			}
			if !Permits(u.Role, roles...) {
				logging.GetLoggerFromContext(r.Context()).Warn("role not permitted", "role", u.Role)
				m.errs.Write(w, r, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
