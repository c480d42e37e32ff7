package review

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/mongostore"
	"github.com/redmonkez12/natours-api/internal/query"
)

// Neutral ratings of a tour without reviews.
const (
	DefaultAverage  = 4.5
	DefaultQuantity = 0
)

var ErrAlreadyReviewed = apperror.Conflict("tour", "You have already reviewed this tour")

// Repo is the review persistence used by Service.
type Repo interface {
	Find(ctx context.Context, q query.Query) ([]Review, error)
	Get(ctx context.Context, id string) (*Review, error)
	ForTour(ctx context.Context, tourID primitive.ObjectID) ([]Review, error)
	Insert(ctx context.Context, rev *Review) (*Review, error)
	Update(ctx context.Context, id string, rev *Review, fields []string) (*Review, error)
	DeleteByID(ctx context.Context, id primitive.ObjectID) (*Review, error)
	RatingStats(ctx context.Context, tourID primitive.ObjectID) (float64, int, error)
}

// Tours receives recomputed ratings.
type Tours interface {
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
	UpdateRatings(ctx context.Context, id primitive.ObjectID, average float64, quantity int) error
}

// Service writes reviews and keeps the reviewed tour's ratings in step.
// It satisfies crud.Store[Review].
type Service struct {
	repo   Repo
	tours  Tours
	logger *logging.Logger
}

func NewService(repo Repo, tours Tours, logger *logging.Logger) *Service {
	return &Service{repo: repo, tours: tours, logger: logger}
}

func (s *Service) Find(ctx context.Context, q query.Query) ([]Review, error) {
	return s.repo.Find(ctx, q)
}

func (s *Service) Get(ctx context.Context, id string) (*Review, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ForTour(ctx context.Context, tourID primitive.ObjectID) ([]Review, error) {
	return s.repo.ForTour(ctx, tourID)
}

func (s *Service) Create(ctx context.Context, rev *Review) (*Review, error) {
	ok, err := s.tours.Exists(ctx, rev.Tour)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NotFound("No tour found with that ID")
	}

	created, err := s.repo.Insert(ctx, rev)
	if err != nil {
		if apperror.IsKind(err, apperror.KindConflict) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}

	if err := s.Recalculate(ctx, created.Tour); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, rev *Review, fields []string) (*Review, error) {
	updated, err := s.repo.Update(ctx, id, rev, fields)
	if err != nil {
		return nil, err
	}
	if err := s.Recalculate(ctx, updated.Tour); err != nil {
		return nil, err
	}
	updated.Author = rev.Author
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	oid, err := mongostore.ParseID(id)
	if err != nil {
		return err
	}
	removed, err := s.repo.DeleteByID(ctx, oid)
	if err != nil {
		return err
	}
	return s.Recalculate(ctx, removed.Tour)
}

// Recalculate stores the tour's review average rounded to one decimal,
// or the neutral defaults once no reviews remain.
func (s *Service) Recalculate(ctx context.Context, tourID primitive.ObjectID) error {
	average, count, err := s.repo.RatingStats(ctx, tourID)
	if err != nil {
		return err
	}
	if count == 0 {
		average, count = DefaultAverage, DefaultQuantity
	}

	if err := s.tours.UpdateRatings(ctx, tourID, average, count); err != nil {
		s.logger.Error("failed to update tour ratings", "tour", tourID.Hex(), "error", err)
		return err
	}
	return nil
}
