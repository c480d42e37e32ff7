package review

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/query"
)

// Author is the public part of the user who wrote a review.
type Author struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Photo string             `bson:"photo" json:"photo"`
}

// Review is one user's rating of one tour. A user reviews a tour at most once.
type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Review    string             `bson:"review" json:"review"`
	Rating    float64            `bson:"rating" json:"rating"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	Tour      primitive.ObjectID `bson:"tour" json:"tour"`
	User      primitive.ObjectID `bson:"user" json:"-"`
	Author    *Author            `bson:"-" json:"user,omitempty"`
}

func (r *Review) Normalize() {
	r.Review = strings.TrimSpace(r.Review)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
}

func (r *Review) Validate() error {
	if r.Review == "" {
		return apperror.Validation("Review can not be empty!")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return apperror.Validation("Rating must be between 1 and 5")
	}
	if r.Tour.IsZero() {
		return apperror.Validation("Review must belong to a tour.")
	}
	if r.User.IsZero() {
		return apperror.Validation("Review must belong to a user")
	}
	return nil
}

// QueryOptions describes the reviews resource to the query builder.
var QueryOptions = query.Options{
	Schema: query.Schema{
		"review":    query.KindString,
		"rating":    query.KindNumber,
		"createdAt": query.KindTime,
		"tour":      query.KindID,
		"user":      query.KindID,
	},
}

// Updatable are the keys an author may change.
var Updatable = []string{"review", "rating"}
