package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// SecurityHeaders adds security-related headers to all responses.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")

		// Swagger UI needs scripts, styles, and images to render
		if strings.HasPrefix(r.URL.Path, "/swagger/") {
			w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		} else {
			w.Header().Set("Content-Security-Policy", "default-src 'none'")
		}

		next.ServeHTTP(w, r)
	})
}

// Sanitize strips operator keys from the query string and JSON bodies and
// removes markup brackets from query values.
func Sanitize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			r.URL.RawQuery = sanitizeQuery(r.URL.Query()).Encode()
		}

		if r.Body != nil && isJSON(r) {
			body, err := io.ReadAll(r.Body)
			r.Body.Close()
			if err != nil {
				// replay the partial body, then the read error, so the
				// handler still sees a *http.MaxBytesError
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), errReader{err}))
				next.ServeHTTP(w, r)
				return
			}
			body = sanitizeBody(body)
			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
		}

		next.ServeHTTP(w, r)
	})
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func unsafeKey(key string) bool {
	return strings.HasPrefix(key, "$") || strings.Contains(key, ".")
}

var stripMarkup = strings.NewReplacer("<", "", ">", "")

func sanitizeQuery(values url.Values) url.Values {
	clean := make(url.Values, len(values))
	for key, vals := range values {
		if unsafeKey(key) {
			continue
		}
		for _, v := range vals {
			clean.Add(key, stripMarkup.Replace(v))
		}
	}
	return clean
}

// sanitizeBody returns body unchanged when it is not valid JSON.
func sanitizeBody(body []byte) []byte {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return body
	}
	if _, err := dec.Token(); err != io.EOF {
		return body
	}
	out, err := json.Marshal(sanitizeValue(doc))
	if err != nil {
		return body
	}
	return out
}

func sanitizeValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for key, inner := range v {
			if unsafeKey(key) {
				delete(v, key)
				continue
			}
			v[key] = sanitizeValue(inner)
		}
		return v
	case []any:
		for i, inner := range v {
			v[i] = sanitizeValue(inner)
		}
		return v
	default:
		return v
	}
}
