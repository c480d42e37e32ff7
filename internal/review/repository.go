package review

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/redmonkez12/natours-api/internal/mongostore"
	"github.com/redmonkez12/natours-api/internal/query"
)

// Repository stores reviews and resolves their authors from the users collection.
type Repository struct {
	coll    *mongostore.Collection[Review]
	authors *mongostore.Collection[Author]
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{
		coll:    mongostore.New[Review](db, "reviews", "review"),
		authors: mongostore.New[Author](db, "users", "user"),
	}
}

// EnsureIndexes allows one review per user and tour.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Raw().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tour", Value: 1}, {Key: "user", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create review indexes: %w", err)
	}
	return nil
}

func (r *Repository) Find(ctx context.Context, q query.Query) ([]Review, error) {
	reviews, err := r.coll.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	return reviews, r.populate(ctx, reviews)
}

func (r *Repository) Get(ctx context.Context, id string) (*Review, error) {
	rev, err := r.coll.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews := []Review{*rev}
	if err := r.populate(ctx, reviews); err != nil {
		return nil, err
	}
	return &reviews[0], nil
}

// ForTour lists a tour's reviews, newest first.
func (r *Repository) ForTour(ctx context.Context, tourID primitive.ObjectID) ([]Review, error) {
	reviews, err := r.coll.FindAll(ctx,
		bson.D{{Key: "tour", Value: tourID}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	return reviews, r.populate(ctx, reviews)
}

func (r *Repository) Insert(ctx context.Context, rev *Review) (*Review, error) {
	return r.coll.Create(ctx, rev)
}

func (r *Repository) Update(ctx context.Context, id string, rev *Review, fields []string) (*Review, error) {
	return r.coll.Update(ctx, id, rev, fields)
}

func (r *Repository) DeleteByID(ctx context.Context, id primitive.ObjectID) (*Review, error) {
	return r.coll.DeleteByID(ctx, id)
}

// RatingStats averages the ratings of a tour's reviews.
func (r *Repository) RatingStats(ctx context.Context, tourID primitive.ObjectID) (average float64, count int, err error) {
	cur, err := r.coll.Raw().Aggregate(ctx, ratingStatsPipeline(tourID))
	if err != nil {
		return 0, 0, mongostore.Translate(err, "review")
	}

	var rows []struct {
		Average float64 `bson:"avgRating"`
		Count   int     `bson:"nRating"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, 0, mongostore.Translate(err, "review")
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].Average, rows[0].Count, nil
}

func (r *Repository) InsertMany(ctx context.Context, reviews []Review) (int, error) {
	docs := make([]any, len(reviews))
	for i := range reviews {
		reviews[i].Normalize()
		docs[i] = reviews[i]
	}
	res, err := r.coll.Raw().InsertMany(ctx, docs)
	if err != nil {
		return 0, mongostore.Translate(err, "review")
	}
	return len(res.InsertedIDs), nil
}

func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.coll.Raw().DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, mongostore.Translate(err, "review")
	}
	return res.DeletedCount, nil
}

// populate attaches each review's author with one lookup per page.
func (r *Repository) populate(ctx context.Context, reviews []Review) error {
	if len(reviews) == 0 {
		return nil
	}

	ids := make([]primitive.ObjectID, 0, len(reviews))
	for _, rev := range reviews {
		ids = append(ids, rev.User)
	}
	authors, err := r.authors.FindAll(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1, "photo": 1}),
	)
	if err != nil {
		return err
	}

	byID := make(map[primitive.ObjectID]*Author, len(authors))
	for i := range authors {
		byID[authors[i].ID] = &authors[i]
	}
	for i := range reviews {
		reviews[i].Author = byID[reviews[i].User]
	}
	return nil
}

func ratingStatsPipeline(tourID primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tour": tourID}}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$tour",
			"nRating":   bson.M{"$sum": 1},
			"avgRating": bson.M{"$avg": "$rating"},
		}}},
	}
}
