// Package seed loads fixture documents into the stores and clears them again.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/redmonkez12/natours-api/internal/auth"
	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/review"
	"github.com/redmonkez12/natours-api/internal/tour"
	"github.com/redmonkez12/natours-api/internal/user"
)

// Fixture file names inside a data directory.
const (
	ToursFile   = "tours.json"
	UsersFile   = "users.json"
	ReviewsFile = "reviews.json"
)

// Data is a set of fixtures ready to import.
type Data struct {
	Tours   []tour.Tour
	Users   []user.User
	Reviews []review.Review
}

// Fixture files carry Mongo style "_id" keys and plain text or bcrypt passwords.
type tourRecord struct {
	ID primitive.ObjectID `json:"_id"`
	tour.Tour
}

type userRecord struct {
	ID       primitive.ObjectID `json:"_id"`
	Password string             `json:"password"`
	user.User
}

type reviewRecord struct {
	ID   primitive.ObjectID `json:"_id"`
	User primitive.ObjectID `json:"user"`
	review.Review
}

// Load reads the fixture files from fsys. Missing users or reviews files are
// treated as empty; the tours file is required.
func Load(fsys fs.FS) (*Data, error) {
	var (
		tours   []tourRecord
		users   []userRecord
		reviews []reviewRecord
	)
	if err := readFile(fsys, ToursFile, &tours, true); err != nil {
		return nil, err
	}
	if err := readFile(fsys, UsersFile, &users, false); err != nil {
		return nil, err
	}
	if err := readFile(fsys, ReviewsFile, &reviews, false); err != nil {
		return nil, err
	}

	d := &Data{
		Tours:   make([]tour.Tour, len(tours)),
		Users:   make([]user.User, len(users)),
		Reviews: make([]review.Review, len(reviews)),
	}
	for i, rec := range tours {
		d.Tours[i] = rec.Tour
		d.Tours[i].ID = rec.ID
	}
	for i, rec := range users {
		d.Users[i] = rec.User
		d.Users[i].ID = rec.ID
		d.Users[i].Password = rec.Password
	}
	for i, rec := range reviews {
		d.Reviews[i] = rec.Review
		d.Reviews[i].ID = rec.ID
		d.Reviews[i].User = rec.User
	}
	return d, nil
}

func readFile(fsys fs.FS, name string, v any, required bool) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

type TourStore interface {
	InsertMany(ctx context.Context, tours []tour.Tour) (int, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type UserStore interface {
	Create(ctx context.Context, u *user.User) (*user.User, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type ReviewStore interface {
	InsertMany(ctx context.Context, reviews []review.Review) (int, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// RatingUpdater recomputes a tour's ratings from its reviews.
type RatingUpdater interface {
	Recalculate(ctx context.Context, tourID primitive.ObjectID) error
}

type BookingStore interface {
	DeleteAll(ctx context.Context) (int64, error)
}

// Counts reports how many documents each store gained or lost.
type Counts struct {
	Tours    int64
	Users    int64
	Reviews  int64
	Bookings int64
}

// Importer writes fixtures through the application's repositories.
type Importer struct {
	Tours    TourStore
	Users    UserStore
	Reviews  ReviewStore
	Ratings  RatingUpdater
	Bookings BookingStore
	Logger   *logging.Logger
}

// Import inserts tours, then users, then reviews, and refreshes the ratings
// of every reviewed tour.
func (im *Importer) Import(ctx context.Context, d *Data) (Counts, error) {
	var c Counts

	if len(d.Tours) > 0 {
		n, err := im.Tours.InsertMany(ctx, d.Tours)
		if err != nil {
			return c, fmt.Errorf("failed to import tours: %w", err)
		}
		c.Tours = int64(n)
	}

	for i := range d.Users {
		u := d.Users[i]
		if err := preparePassword(&u); err != nil {
			return c, fmt.Errorf("user %s: %w", u.Email, err)
		}
		u.Normalize()
		if err := u.Validate(); err != nil {
			return c, fmt.Errorf("user %s: %w", u.Email, err)
		}
		if _, err := im.Users.Create(ctx, &u); err != nil {
			return c, fmt.Errorf("failed to import user %s: %w", u.Email, err)
		}
		c.Users++
	}

	if len(d.Reviews) > 0 {
		n, err := im.Reviews.InsertMany(ctx, d.Reviews)
		if err != nil {
			return c, fmt.Errorf("failed to import reviews: %w", err)
		}
		c.Reviews = int64(n)
	}

	for _, id := range reviewedTours(d.Reviews) {
		if err := im.Ratings.Recalculate(ctx, id); err != nil {
			return c, fmt.Errorf("failed to update ratings of tour %s: %w", id.Hex(), err)
		}
	}

	im.Logger.Info("fixtures imported", "tours", c.Tours, "users", c.Users, "reviews", c.Reviews)
	return c, nil
}

// Purge deletes every tour, user, review and booking.
func (im *Importer) Purge(ctx context.Context) (Counts, error) {
	var (
		c   Counts
		err error
	)
	if c.Reviews, err = im.Reviews.DeleteAll(ctx); err != nil {
		return c, fmt.Errorf("failed to delete reviews: %w", err)
	}
	if c.Tours, err = im.Tours.DeleteAll(ctx); err != nil {
		return c, fmt.Errorf("failed to delete tours: %w", err)
	}
	if c.Users, err = im.Users.DeleteAll(ctx); err != nil {
		return c, fmt.Errorf("failed to delete users: %w", err)
	}
	if im.Bookings != nil {
		if c.Bookings, err = im.Bookings.DeleteAll(ctx); err != nil {
			return c, fmt.Errorf("failed to delete bookings: %w", err)
		}
	}

	im.Logger.Info("data purged",
		"tours", c.Tours, "users", c.Users, "reviews", c.Reviews, "bookings", c.Bookings)
	return c, nil
}

// CreateAdmin adds an administrator account.
func CreateAdmin(ctx context.Context, users UserStore, name, email, password string) (*user.User, error) {
	if err := auth.ValidateNewPassword(password, password); err != nil {
		return nil, err
	}
	u := &user.User{Name: name, Email: email, Role: user.RoleAdmin, Password: password}
	if err := preparePassword(u); err != nil {
		return nil, err
	}
	u.Normalize()
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return users.Create(ctx, u)
}

// preparePassword hashes plain text passwords and keeps bcrypt digests.
func preparePassword(u *user.User) error {
	if u.Password == "" {
		return errors.New("missing password")
	}
	if isDigest(u.Password) {
		return nil
	}
	digest, err := auth.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = digest
	return nil
}

func isDigest(s string) bool {
	return len(s) == 60 && strings.HasPrefix(s, "$2")
}

func reviewedTours(reviews []review.Review) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	for _, r := range reviews {
		if r.Tour.IsZero() || seen[r.Tour] {
			continue
		}
		seen[r.Tour] = true
		ids = append(ids, r.Tour)
	}
	return ids
}
