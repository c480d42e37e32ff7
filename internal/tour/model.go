package tour

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/query"
)

type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyDifficult Difficulty = "difficult"
)

const (
	DefaultRatingsAverage = 4.5
	minNameLength         = 10
	maxNameLength         = 40
)

// Location is a GeoJSON point with optional description.
// Coordinates are [longitude, latitude].
type Location struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
	Address     string    `bson:"address,omitempty" json:"address,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Day         int       `bson:"day,omitempty" json:"day,omitempty"`
}

type Tour struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name            string               `bson:"name" json:"name"`
	Slug            string               `bson:"slug" json:"slug"`
	Duration        int                  `bson:"duration" json:"duration"`
	MaxGroupSize    int                  `bson:"maxGroupSize" json:"maxGroupSize"`
	Difficulty      Difficulty           `bson:"difficulty" json:"difficulty"`
	RatingsAverage  float64              `bson:"ratingsAverage" json:"ratingsAverage"`
	RatingsQuantity int                  `bson:"ratingsQuantity" json:"ratingsQuantity"`
	Price           float64              `bson:"price" json:"price"`
	PriceDiscount   float64              `bson:"priceDiscount,omitempty" json:"priceDiscount,omitempty"`
	Summary         string               `bson:"summary" json:"summary"`
	Description     string               `bson:"description,omitempty" json:"description,omitempty"`
	ImageCover      string               `bson:"imageCover" json:"imageCover"`
	Images          []string             `bson:"images" json:"images"`
	CreatedAt       time.Time            `bson:"createdAt" json:"createdAt"`
	StartDates      []time.Time          `bson:"startDates" json:"startDates"`
	SecretTour      bool                 `bson:"secretTour" json:"secretTour"`
	StartLocation   *Location            `bson:"startLocation,omitempty" json:"startLocation,omitempty"`
	Locations       []Location           `bson:"locations" json:"locations"`
	Guides          []primitive.ObjectID `bson:"guides" json:"guides"`
}

// DurationWeeks is derived, never stored.
func (t *Tour) DurationWeeks() float64 {
	return float64(t.Duration) / 7
}

// Normalize trims text, derives the slug and fills defaults.
func (t *Tour) Normalize() {
	t.Name = strings.TrimSpace(t.Name)
	t.Summary = strings.TrimSpace(t.Summary)
	t.Description = strings.TrimSpace(t.Description)
	t.Slug = Slugify(t.Name)

	if t.RatingsAverage == 0 {
		t.RatingsAverage = DefaultRatingsAverage
	}
	t.RatingsAverage = RoundRating(t.RatingsAverage)

	if t.StartLocation != nil && t.StartLocation.Type == "" {
		t.StartLocation.Type = "Point"
	}
	for i := range t.Locations {
		if t.Locations[i].Type == "" {
			t.Locations[i].Type = "Point"
		}
	}
	if t.Images == nil {
		t.Images = []string{}
	}
	if t.StartDates == nil {
		t.StartDates = []time.Time{}
	}
	if t.Locations == nil {
		t.Locations = []Location{}
	}
	if t.Guides == nil {
		t.Guides = []primitive.ObjectID{}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
}

func (t *Tour) Validate() error {
	n := utf8.RuneCountInString(t.Name)
	switch {
	case n == 0:
		return apperror.Validation("A tour must have a name")
	case n > maxNameLength:
		return apperror.Validation("A tour name must have less or equal than %d characters", maxNameLength)
	case n < minNameLength:
		return apperror.Validation("A tour name must have more or equal than %d characters", minNameLength)
	}
	if t.Duration <= 0 {
		return apperror.Validation("A tour must have a duration")
	}
	if t.MaxGroupSize <= 0 {
		return apperror.Validation("A tour must have a group size")
	}
	switch t.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyDifficult:
	case "":
		return apperror.Validation("A tour must have a difficulty")
	default:
		return apperror.Validation("Difficulty is either: easy, medium, difficult")
	}
	if t.RatingsAverage < 1 {
		return apperror.Validation("Rating must be above 1.0")
	}
	if t.RatingsAverage > 5 {
		return apperror.Validation("Rating must be below 5.0")
	}
	if t.Price <= 0 {
		return apperror.Validation("A tour must have a price")
	}
	if t.PriceDiscount != 0 && t.PriceDiscount >= t.Price {
		return apperror.Validation("Discount price (%v) should be below regular price", t.PriceDiscount)
	}
	if t.Summary == "" {
		return apperror.Validation("A tour must have a summary")
	}
	if t.ImageCover == "" {
		return apperror.Validation("A tour must have a cover image")
	}
	if err := validateLocation(t.StartLocation); err != nil {
		return err
	}
	for i := range t.Locations {
		if err := validateLocation(&t.Locations[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateLocation(l *Location) error {
	if l == nil {
		return nil
	}
	if l.Type != "Point" {
		return apperror.Validation("Location type must be Point")
	}
	if len(l.Coordinates) != 2 {
		return apperror.Validation("Location coordinates must be [longitude, latitude]")
	}
	if !inRange(l.Coordinates[0], 180) || !inRange(l.Coordinates[1], 90) {
		return apperror.Validation("Location coordinates are out of range")
	}
	return nil
}

// RoundRating rounds to one decimal place.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

// Repeatable are the fields a client may repeat to match any of several values.
var Repeatable = []string{"duration", "ratingsAverage", "ratingsQuantity", "maxGroupSize", "difficulty", "price"}

// QueryOptions describes the tours resource to the query builder.
var QueryOptions = query.Options{
	Schema: query.Schema{
		"name":            query.KindString,
		"slug":            query.KindString,
		"duration":        query.KindNumber,
		"maxGroupSize":    query.KindNumber,
		"difficulty":      query.KindString,
		"ratingsAverage":  query.KindNumber,
		"ratingsQuantity": query.KindNumber,
		"price":           query.KindNumber,
		"priceDiscount":   query.KindNumber,
		"summary":         query.KindString,
		"description":     query.KindString,
		"imageCover":      query.KindString,
		"images":          query.KindString,
		"createdAt":       query.KindTime,
		"startDates":      query.KindTime,
		"secretTour":      query.KindBool,
		"startLocation":   query.KindAny,
		"locations":       query.KindAny,
		"guides":          query.KindID,
	},
	Repeatable: Repeatable,
}

// Updatable are the keys an update may change.
var Updatable = []string{
	"name", "duration", "maxGroupSize", "difficulty", "price", "priceDiscount",
	"summary", "description", "imageCover", "images", "startDates", "secretTour",
	"startLocation", "locations", "guides",
}
