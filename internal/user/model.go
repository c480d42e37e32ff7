package user

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/redmonkez12/natours-api/internal/apperror"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

const DefaultPhoto = "default.jpg"

type User struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`
	Photo string             `bson:"photo" json:"photo"`
	Role  Role               `bson:"role" json:"role"`
	// Password holds the bcrypt digest. It is only loaded by the WithPassword lookups.
	Password             string     `bson:"password,omitempty" json:"-"`
	PasswordChangedAt    *time.Time `bson:"passwordChangedAt,omitempty" json:"-"`
	PasswordResetToken   string     `bson:"passwordResetToken,omitempty" json:"-"`
	PasswordResetExpires *time.Time `bson:"passwordResetExpires,omitempty" json:"-"`
	Active               *bool      `bson:"active,omitempty" json:"-"`
	CreatedAt            time.Time  `bson:"createdAt" json:"createdAt"`
}

// IsActive treats a missing flag as active.
func (u *User) IsActive() bool {
	return u.Active == nil || *u.Active
}

// Normalize lowercases the email and fills defaults.
func (u *User) Normalize() {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Photo == "" {
		u.Photo = DefaultPhoto
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
}

func (u *User) Validate() error {
	if u.Name == "" {
		return apperror.Validation("Please tell us your name!")
	}
	if u.Email == "" {
		return apperror.Validation("Please provide an email")
	}
	if addr, err := mail.ParseAddress(u.Email); err != nil || addr.Address != u.Email {
		return apperror.Validation("Please provide a valid email")
	}
	if !u.Role.Valid() {
		return apperror.Validation("Invalid role: %s", u.Role)
	}
	return nil
}

type contextKey struct{}

// WithContext stores the authenticated user in ctx.
func WithContext(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// FromContext returns the authenticated user, if any.
func FromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(contextKey{}).(*User)
	return u, ok && u != nil
}
