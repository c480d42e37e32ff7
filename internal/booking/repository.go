package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/query"
)

var ErrBookingNotFound = apperror.NotFound("No booking found with that ID")

// Repository handles booking persistence in PostgreSQL
type Repository struct {
	db    *bun.DB
	count func(*bun.SelectQuery, context.Context) (int, error)
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db, count: (*bun.SelectQuery).Count}
}

// CreateTable creates the bookings table and its user index when missing.
func (r *Repository) CreateTable(ctx context.Context) error {
	if _, err := r.db.NewCreateTable().
		Model((*Booking)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create bookings table: %w", err)
	}

	if _, err := r.db.NewCreateIndex().
		Model((*Booking)(nil)).
		Index("bookings_user_id_idx").
		Column("user_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create bookings index: %w", err)
	}
	return nil
}

func (r *Repository) selectQuery(q query.Query, dest *[]Booking) (*bun.SelectQuery, error) {
	return query.ApplyBun(r.db.NewSelect().Model(dest), q, columns)
}

// Find lists bookings filtered, sorted and paginated by q.
func (r *Repository) Find(ctx context.Context, q query.Query) ([]Booking, error) {
	bookings := []Booking{}
	sq, err := r.selectQuery(q, &bookings)
	if err != nil {
		return nil, err
	}

	err = query.CheckPage(q, func() (int64, error) {
		total, err := r.count(sq, ctx)
		if err != nil {
			return 0, apperror.Internal(fmt.Errorf("failed to count bookings: %w", err))
		}
		return int64(total), nil
	})
	if err != nil {
		return nil, err
	}

	if err := sq.Scan(ctx); err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to list bookings: %w", err))
	}
	return bookings, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Booking, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	b := new(Booking)
	err = r.db.NewSelect().
		Model(b).
		Where("? = ?", bun.Ident("id"), uid).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, apperror.Internal(fmt.Errorf("failed to get booking: %w", err))
	}
	return b, nil
}

func (r *Repository) Create(ctx context.Context, b *Booking) (*Booking, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	_, err := r.db.NewInsert().
		Model(b).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to create booking: %w", err))
	}
	return b, nil
}

// Update writes the listed fields of b to the booking with the given id.
func (r *Repository) Update(ctx context.Context, id string, b *Booking, fields []string) (*Booking, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		col, ok := columns[f]
		if !ok || col == "id" {
			continue
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return nil, apperror.Validation("No updatable fields provided")
	}

	b.ID = uid
	res, err := r.db.NewUpdate().
		Model(b).
		Column(cols...).
		WherePK().
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to update booking: %w", err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}

	res, err := r.db.NewDelete().
		Model((*Booking)(nil)).
		Where("? = ?", bun.Ident("id"), uid).
		Exec(ctx)
	if err != nil {
		return apperror.Internal(fmt.Errorf("failed to delete booking: %w", err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return apperror.Internal(fmt.Errorf("failed to check rows affected: %w", err))
	}
	if rowsAffected == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// ListByUser returns a user's bookings, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Booking, error) {
	bookings := []Booking{}
	err := r.db.NewSelect().
		Model(&bookings).
		Where("? = ?", bun.Ident("user_id"), userID).
		OrderExpr("? DESC", bun.Ident("created_at")).
		Scan(ctx)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to list user bookings: %w", err))
	}
	return bookings, nil
}

func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*Booking)(nil)).
		Where("TRUE").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete bookings: %w", err)
	}
	return res.RowsAffected()
}

func parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, apperror.Validation("Invalid id: %s", id)
	}
	return uid, nil
}
