package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/query"
)

// Booking records a user's purchase of a tour. Tour and user ids refer to
// documents in MongoDB.
type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:b" json:"-"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	TourID    string    `bun:"tour_id,type:varchar(24),notnull" json:"tour"`
	UserID    string    `bun:"user_id,type:varchar(24),notnull" json:"user"`
	Price     float64   `bun:"price,type:numeric,notnull" json:"price"`
	Paid      *bool     `bun:"paid,notnull,default:true" json:"paid"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

func (b *Booking) Normalize() {
	if b.Paid == nil {
		paid := true
		b.Paid = &paid
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
}

func (b *Booking) Validate() error {
	if !primitive.IsValidObjectID(b.TourID) {
		return apperror.Validation("Booking must belong to a Tour!")
	}
	if !primitive.IsValidObjectID(b.UserID) {
		return apperror.Validation("Booking must belong to a User!")
	}
	if b.Price <= 0 {
		return apperror.Validation("Booking must have a price.")
	}
	return nil
}

// columns maps query fields onto table columns.
var columns = map[string]string{
	"id":        "id",
	"tour":      "tour_id",
	"user":      "user_id",
	"price":     "price",
	"paid":      "paid",
	"createdAt": "created_at",
}

// QueryOptions describes the bookings resource to the query builder.
var QueryOptions = query.Options{
	Schema: query.Schema{
		"id":        query.KindUUID,
		"tour":      query.KindID,
		"user":      query.KindID,
		"price":     query.KindNumber,
		"paid":      query.KindBool,
		"createdAt": query.KindTime,
	},
	StrictPaging: true,
}

// Updatable are the keys an update may change.
var Updatable = []string{"tour", "user", "price", "paid"}
