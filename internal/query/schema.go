package query

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/natours-api/internal/apperror"
)

// Kind is the declared type of a resource field.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindNumber
	KindBool
	KindTime
	// KindID is a 24 hex character document id.
	KindID
	// KindUUID is an RFC 4122 identifier, coerced to uuid.UUID.
	KindUUID
)

// Schema declares the filterable, sortable and projectable fields of a resource.
type Schema map[string]Kind

var (
	fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	hexID     = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
)

// ValidFieldName reports whether name can be used as a field reference.
// Store operator prefixes ($) and path separators (.) are rejected.
func ValidFieldName(name string) bool {
	return fieldName.MatchString(name)
}

// Coerce converts a raw query string value into the declared kind.
// KindAny guesses: integers, then floats, then booleans, then strings.
func Coerce(field string, kind Kind, raw string) (any, error) {
	switch kind {
	case KindString:
		return raw, nil
	case KindNumber:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, apperror.Validation("Invalid %s: %s", field, raw)
		}
		return f, nil
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, apperror.Validation("Invalid %s: %s", field, raw)
		}
		return b, nil
	case KindTime:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
		return nil, apperror.Validation("Invalid %s: %s", field, raw)
	case KindID:
		if !hexID.MatchString(raw) {
			return nil, apperror.Validation("Invalid %s: %s", field, raw)
		}
		return strings.ToLower(raw), nil
	case KindUUID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperror.Validation("Invalid %s: %s", field, raw)
		}
		return id, nil
	default:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, nil
		}
		if raw == "true" || raw == "false" {
			return raw == "true", nil
		}
		return raw, nil
	}
}
