package user

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/redmonkez12/natours-api/internal/mongostore"
	"github.com/redmonkez12/natours-api/internal/query"
)

// Scope selects which accounts a lookup may return.
type Scope int

const (
	// ScopeActive hides soft-deleted accounts.
	ScopeActive Scope = iota
	// ScopeAll includes soft-deleted accounts. Reserved for administrative paths.
	ScopeAll
)

// Hidden fields are never returned by list queries.
var Hidden = []string{"password", "passwordResetToken", "passwordResetExpires", "passwordChangedAt", "active"}

// QueryOptions describes the users resource to the query builder.
var QueryOptions = query.Options{
	Schema: query.Schema{
		"name":      query.KindString,
		"email":     query.KindString,
		"role":      query.KindString,
		"photo":     query.KindString,
		"createdAt": query.KindTime,
	},
	Hidden: Hidden,
}

// Profile carries the self-service fields a user may change.
type Profile struct {
	Name  *string
	Email *string
}

// Repository handles user data persistence
type Repository struct {
	coll *mongostore.Collection[User]
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{coll: mongostore.New[User](db, "users", "user")}
}

// EnsureIndexes creates the unique email index.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Raw().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func scoped(filter bson.D, scope Scope) bson.D {
	if scope == ScopeActive {
		filter = append(filter, bson.E{Key: "active", Value: bson.D{{Key: "$ne", Value: false}}})
	}
	return filter
}

// withoutSecrets keeps passwordChangedAt and active, which access checks need.
func withoutSecrets() *options.FindOneOptions {
	return options.FindOne().SetProjection(bson.D{
		{Key: "password", Value: 0},
		{Key: "passwordResetToken", Value: 0},
		{Key: "passwordResetExpires", Value: 0},
	})
}

// Create inserts a new user. The password must already be hashed.
func (r *Repository) Create(ctx context.Context, u *User) (*User, error) {
	u.Normalize()
	id, err := r.coll.Insert(ctx, u)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id, ScopeAll)
}

// GetByID retrieves a user by ID without credential fields.
func (r *Repository) GetByID(ctx context.Context, id primitive.ObjectID, scope Scope) (*User, error) {
	return r.coll.FindOne(ctx, scoped(bson.D{{Key: "_id", Value: id}}, scope), withoutSecrets())
}

// GetByIDWithPassword retrieves an active user including the password digest.
func (r *Repository) GetByIDWithPassword(ctx context.Context, id primitive.ObjectID) (*User, error) {
	return r.coll.FindOne(ctx, scoped(bson.D{{Key: "_id", Value: id}}, ScopeActive))
}

// GetByEmail retrieves an active user by email without credential fields.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.coll.FindOne(ctx, scoped(bson.D{{Key: "email", Value: email}}, ScopeActive), withoutSecrets())
}

// GetByEmailWithPassword retrieves an active user including the password digest.
func (r *Repository) GetByEmailWithPassword(ctx context.Context, email string) (*User, error) {
	return r.coll.FindOne(ctx, scoped(bson.D{{Key: "email", Value: email}}, ScopeActive))
}

// FindByResetToken returns the active user holding an unexpired reset token hash.
func (r *Repository) FindByResetToken(ctx context.Context, hash string, now time.Time) (*User, error) {
	return r.coll.FindOne(ctx, scoped(bson.D{
		{Key: "passwordResetToken", Value: hash},
		{Key: "passwordResetExpires", Value: bson.D{{Key: "$gt", Value: now}}},
	}, ScopeActive))
}

// SetResetToken stores a reset token hash and expiry. A nil expiry clears both.
func (r *Repository) SetResetToken(ctx context.Context, id primitive.ObjectID, hash string, expires *time.Time) error {
	var update bson.D
	if expires == nil {
		update = bson.D{{Key: "$unset", Value: bson.D{
			{Key: "passwordResetToken", Value: ""},
			{Key: "passwordResetExpires", Value: ""},
		}}}
	} else {
		update = bson.D{{Key: "$set", Value: bson.D{
			{Key: "passwordResetToken", Value: hash},
			{Key: "passwordResetExpires", Value: *expires},
		}}}
	}
	_, err := r.coll.UpdateByID(ctx, id, update)
	return err
}

// UpdatePassword replaces the password digest and clears any pending reset token.
func (r *Repository) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string, changedAt *time.Time) error {
	set := bson.D{{Key: "password", Value: hash}}
	if changedAt != nil {
		set = append(set, bson.E{Key: "passwordChangedAt", Value: *changedAt})
	}
	_, err := r.coll.UpdateByID(ctx, id, bson.D{
		{Key: "$set", Value: set},
		{Key: "$unset", Value: bson.D{
			{Key: "passwordResetToken", Value: ""},
			{Key: "passwordResetExpires", Value: ""},
		}},
	})
	return err
}

// UpdateProfile changes the self-service fields of a user.
func (r *Repository) UpdateProfile(ctx context.Context, id primitive.ObjectID, p Profile) (*User, error) {
	set := bson.D{}
	if p.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *p.Name})
	}
	if p.Email != nil {
		set = append(set, bson.E{Key: "email", Value: *p.Email})
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id, ScopeActive)
	}
	if _, err := r.coll.UpdateByID(ctx, id, bson.D{{Key: "$set", Value: set}}); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id, ScopeActive)
}

// Deactivate soft-deletes a user.
func (r *Repository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.coll.UpdateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{{Key: "active", Value: false}}}})
	return err
}

// ClearExpiredResetTokens removes reset tokens whose expiry has passed.
func (r *Repository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.Raw().UpdateMany(ctx,
		bson.D{{Key: "passwordResetExpires", Value: bson.D{{Key: "$lte", Value: now}}}},
		bson.D{{Key: "$unset", Value: bson.D{
			{Key: "passwordResetToken", Value: ""},
			{Key: "passwordResetExpires", Value: ""},
		}}},
	)
	if err != nil {
		return 0, mongostore.Translate(err, "user")
	}
	return res.ModifiedCount, nil
}

// DeleteAll removes every user. Used by the admin purge command.
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.coll.Raw().DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, mongostore.Translate(err, "user")
	}
	return res.DeletedCount, nil
}

// The methods below serve the administrative CRUD handlers.

func (r *Repository) Find(ctx context.Context, q query.Query) ([]User, error) {
	return r.coll.Find(ctx, q)
}

func (r *Repository) Get(ctx context.Context, id string) (*User, error) {
	oid, err := mongostore.ParseID(id)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, oid, ScopeActive)
}

func (r *Repository) Update(ctx context.Context, id string, u *User, fields []string) (*User, error) {
	updated, err := r.coll.Update(ctx, id, u, fields)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, updated.ID, ScopeAll)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.coll.Delete(ctx, id)
}
