package auth

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/redmonkez12/natours-api/internal/user"
)

// UserFinder resolves the account named by a token.
type UserFinder interface {
	GetByID(ctx context.Context, id primitive.ObjectID, scope user.Scope) (*user.User, error)
}

// UserStore is the account persistence used by the auth service.
type UserStore interface {
	UserFinder
	ResetTokenFinder
	Create(ctx context.Context, u *user.User) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByEmailWithPassword(ctx context.Context, email string) (*user.User, error)
	GetByIDWithPassword(ctx context.Context, id primitive.ObjectID) (*user.User, error)
	SetResetToken(ctx context.Context, id primitive.ObjectID, hash string, expires *time.Time) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string, changedAt *time.Time) error
}

// Mailer sends the account emails.
type Mailer interface {
	SendWelcome(ctx context.Context, to *user.User, url string) error
	SendPasswordReset(ctx context.Context, to *user.User, url string) error
}
