package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/crud"
)

// capture records the request as seen by the next handler.
type capture struct {
	query string
	body  string
}

func (c *capture) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.query = r.URL.RawQuery
		if r.Body != nil {
			b, _ := io.ReadAll(r.Body)
			c.body = string(b)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestSanitizeQuery(t *testing.T) {
	c := &capture{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tours?price[gte]=500&$where=1&a.b=2&name=<script>x", nil)
	Sanitize(c.handler()).ServeHTTP(httptest.NewRecorder(), req)

	assert.NotContains(t, c.query, "where")
	assert.NotContains(t, c.query, "a.b")
	assert.Contains(t, c.query, "price%5Bgte%5D=500")
	assert.Contains(t, c.query, "name=scriptx")
}

func TestSanitizeJSONBody(t *testing.T) {
	c := &capture{}
	body := `{"email":{"$gt":""},"password":"pass1234","profile":{"a.b":1,"ok":[{"$ne":1,"x":2}]}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	Sanitize(c.handler()).ServeHTTP(httptest.NewRecorder(), req)

	assert.JSONEq(t, `{"email":{},"password":"pass1234","profile":{"ok":[{"x":2}]}}`, c.body)
}

func TestSanitizeLeavesInvalidJSON(t *testing.T) {
	c := &capture{}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"broken`))
	req.Header.Set("Content-Type", "application/json")
	Sanitize(c.handler()).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, `{"broken`, c.body)
}

func TestSanitizeKeepsLargeIntegers(t *testing.T) {
	c := &capture{}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"n":9007199254740993,"f":1.5e3,"$x":1}`))
	req.Header.Set("Content-Type", "application/json")
	Sanitize(c.handler()).ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, c.body, "9007199254740993")
	assert.JSONEq(t, `{"n":9007199254740993,"f":1.5e3}`, c.body)
}

func TestSanitizeLeavesTrailingData(t *testing.T) {
	c := &capture{}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1} {"$b":2}`))
	req.Header.Set("Content-Type", "application/json")
	Sanitize(c.handler()).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, `{"a":1} {"$b":2}`, c.body)
}

func TestSanitizeKeepsBodyLimitError(t *testing.T) {
	var decodeErr error
	h := middleware.RequestSize(32)(Sanitize(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var doc map[string]any
		decodeErr = crud.DecodeJSON(r, &doc)
	})))

	body := `{"name":"x"}` + strings.Repeat(" ", 500)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Error(t, decodeErr)
	appErr := apperror.From(decodeErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, appErr.Status)
	assert.Equal(t, "Request body too large", appErr.Message)
}

func TestSecurityHeaders(t *testing.T) {
	c := &capture{}
	h := SecurityHeaders(c.handler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'none'", rec.Header().Get("Content-Security-Policy"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "script-src 'self' 'unsafe-inline'")
}
