package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/config"
	"github.com/redmonkez12/natours-api/internal/httputil"
	"github.com/redmonkez12/natours-api/internal/logging"
)

var ErrTooManyRequests = apperror.RateLimited("Too many requests from this IP, please try again in an hour!")

// Limiter allows Max requests per client IP in each Window.
type Limiter struct {
	store  Store
	max    int
	window time.Duration
	errs   *httputil.ErrorWriter
}

func New(store Store, cfg config.RateLimitConfig, errs *httputil.ErrorWriter) *Limiter {
	return &Limiter{store: store, max: cfg.Max, window: cfg.Window, errs: errs}
}

// Middleware rejects clients over the limit with 429. When the store fails
// the request is let through.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count, reset, err := l.store.Hit(r.Context(), clientIP(r), l.window)
		if err != nil {
			logging.GetLoggerFromContext(r.Context()).Warn("rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		remaining := int64(l.max) - count
		if remaining < 0 {
			remaining = 0
		}
		resetSeconds := strconv.Itoa(int(math.Ceil(reset.Seconds())))

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(l.max))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		h.Set("X-RateLimit-Reset", resetSeconds)

		if count > int64(l.max) {
			h.Set("Retry-After", resetSeconds)
			l.errs.Write(w, r, ErrTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP expects RemoteAddr to have been rewritten by middleware.RealIP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
