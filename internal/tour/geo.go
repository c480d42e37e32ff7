package tour

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/redmonkez12/natours-api/internal/apperror"
)

// Unit is a distance unit accepted by the geo endpoints.
type Unit string

const (
	UnitMiles      Unit = "mi"
	UnitKilometers Unit = "km"
)

const (
	earthRadiusMiles = 3963.2
	earthRadiusKm    = 6378.1
	metersToMiles    = 0.000621371
	metersToKm       = 0.001
)

func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case UnitMiles, UnitKilometers:
		return Unit(s), nil
	}
	return "", apperror.Validation("Unit must be mi or km, got %q", s)
}

// RadiusRadians converts a distance into the angle used by $centerSphere.
func (u Unit) RadiusRadians(distance float64) float64 {
	if u == UnitMiles {
		return distance / earthRadiusMiles
	}
	return distance / earthRadiusKm
}

// Multiplier converts meters reported by $geoNear into the unit.
func (u Unit) Multiplier() float64 {
	if u == UnitMiles {
		return metersToMiles
	}
	return metersToKm
}

// ParseLatLng reads a "lat,lng" path segment.
func ParseLatLng(s string) (lat, lng float64, err error) {
	bad := apperror.Validation("Please provide latitude and longitude in the format lat,lng.")

	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, bad
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || !inRange(lat, 90) {
		return 0, 0, bad
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || !inRange(lng, 180) {
		return 0, 0, bad
	}
	return lat, lng, nil
}

// ParseDistance reads a positive, finite search radius.
func ParseDistance(raw string) (float64, error) {
	d, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return 0, apperror.Validation("Invalid distance: %s", raw)
	}
	return d, nil
}

// inRange reports whether v is a number within [-limit, limit]. NaN is not.
func inRange(v, limit float64) bool {
	return v >= -limit && v <= limit
}

// Slugify lowercases s, strips accents and joins words with hyphens.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
