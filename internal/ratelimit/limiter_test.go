package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/natours-api/internal/config"
	"github.com/redmonkez12/natours-api/internal/httputil"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func request(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	req.RemoteAddr = ip + ":54321"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLimiterBlocksAfterMax(t *testing.T) {
	store := NewMemoryStore()
	l := New(store, config.RateLimitConfig{Max: 3, Window: time.Hour}, httputil.NewErrorWriter(true))
	h := l.Middleware(ok)

	for i := 0; i < 3; i++ {
		rec := request(h, "10.0.0.1")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := request(h, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Too many requests from this IP, please try again in an hour!")
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))

	rec = request(h, "10.0.0.2")
	assert.Equal(t, http.StatusOK, rec.Code, "limits are per client")
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
}

func TestMemoryStoreWindowResets(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	n, reset, err := store.Hit(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, time.Minute, reset)

	now = now.Add(30 * time.Second)
	n, reset, _ = store.Hit(ctx, "a", time.Minute)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 30*time.Second, reset)

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, store.Sweep())

	n, _, _ = store.Hit(ctx, "a", time.Minute)
	assert.Equal(t, int64(1), n)
}

type failingStore struct{}

func (failingStore) Hit(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("redis: connection refused")
}

func TestLimiterFailsOpen(t *testing.T) {
	l := New(failingStore{}, config.RateLimitConfig{Max: 1, Window: time.Hour}, httputil.NewErrorWriter(true))
	h := l.Middleware(ok)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, request(h, "10.0.0.1").Code)
	}
}
