package tour

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/redmonkez12/natours-api/internal/mongostore"
	"github.com/redmonkez12/natours-api/internal/query"
)

// Guide is the public projection of a user listed on a tour.
type Guide struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`
	Photo string             `bson:"photo" json:"photo"`
	Role  string             `bson:"role" json:"role"`
}

// DifficultyStats is one row of the tour statistics report.
type DifficultyStats struct {
	Difficulty string  `bson:"_id" json:"_id"`
	NumTours   int     `bson:"numTours" json:"numTours"`
	NumRatings int     `bson:"numRatings" json:"numRatings"`
	AvgRating  float64 `bson:"avgRating" json:"avgRating"`
	AvgPrice   float64 `bson:"avgPrice" json:"avgPrice"`
	MinPrice   float64 `bson:"minPrice" json:"minPrice"`
	MaxPrice   float64 `bson:"maxPrice" json:"maxPrice"`
}

// MonthPlan counts the tour starts within one month.
type MonthPlan struct {
	Month         int      `bson:"month" json:"month"`
	NumTourStarts int      `bson:"numTourStarts" json:"numTourStarts"`
	Tours         []string `bson:"tours" json:"tours"`
}

// Distance is a tour's distance from a point, in the requested unit.
type Distance struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Distance float64            `bson:"distance" json:"distance"`
}

const (
	statsMinRating = 4.5
	planMaxMonths  = 12
)

// Repository stores tours in MongoDB. Secret tours are excluded from every
// read except lookups by id.
type Repository struct {
	*mongostore.Collection[Tour]
	guides *mongostore.Collection[Guide]
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{
		Collection: mongostore.New[Tour](db, "tours", "tour"),
		guides:     mongostore.New[Guide](db, "users", "guide"),
	}
}

func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.Raw().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "slug", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}, {Key: "ratingsAverage", Value: -1}}},
		{Keys: bson.D{{Key: "startLocation", Value: "2dsphere"}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create tour indexes: %w", err)
	}
	return nil
}

func publicOnly() bson.E {
	return bson.E{Key: "secretTour", Value: bson.M{"$ne": true}}
}

// Find lists public tours.
func (r *Repository) Find(ctx context.Context, q query.Query) ([]Tour, error) {
	q.Conditions = append(slices.Clip(q.Conditions), query.Condition{Field: "secretTour", Op: query.OpNe, Value: true, Kind: query.KindBool})
	return r.Collection.Find(ctx, q)
}

func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Tour, error) {
	return r.FindOne(ctx, bson.D{{Key: "slug", Value: slug}, publicOnly()})
}

// FindByIDs returns the tours with the given ids, secret or not.
func (r *Repository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]Tour, error) {
	if len(ids) == 0 {
		return []Tour{}, nil
	}
	return r.FindAll(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// Guides resolves guide ids to their public profiles.
func (r *Repository) Guides(ctx context.Context, ids []primitive.ObjectID) ([]Guide, error) {
	if len(ids) == 0 {
		return []Guide{}, nil
	}
	return r.guides.FindAll(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1, "email": 1, "photo": 1, "role": 1}),
	)
}

// Exists reports whether a tour with the id is stored.
func (r *Repository) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := r.Raw().CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, mongostore.Translate(err, "tour")
	}
	return n > 0, nil
}

// UpdateRatings stores recomputed review statistics.
func (r *Repository) UpdateRatings(ctx context.Context, id primitive.ObjectID, average float64, quantity int) error {
	_, err := r.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"ratingsAverage":  RoundRating(average),
		"ratingsQuantity": quantity,
	}})
	return err
}

func (r *Repository) Stats(ctx context.Context) ([]DifficultyStats, error) {
	return aggregate[DifficultyStats](ctx, r.Raw(), statsPipeline())
}

func (r *Repository) MonthlyPlan(ctx context.Context, year int) ([]MonthPlan, error) {
	return aggregate[MonthPlan](ctx, r.Raw(), monthlyPlanPipeline(year))
}

// Within lists tours starting inside the circle around (lat, lng).
func (r *Repository) Within(ctx context.Context, lat, lng, distance float64, unit Unit) ([]Tour, error) {
	return r.FindAll(ctx, withinFilter(lat, lng, distance, unit))
}

// Distances reports how far every tour starts from (lat, lng), nearest first.
func (r *Repository) Distances(ctx context.Context, lat, lng float64, unit Unit) ([]Distance, error) {
	return aggregate[Distance](ctx, r.Raw(), distancesPipeline(lat, lng, unit))
}

func (r *Repository) InsertMany(ctx context.Context, tours []Tour) (int, error) {
	docs := make([]any, len(tours))
	for i := range tours {
		tours[i].Normalize()
		docs[i] = tours[i]
	}
	res, err := r.Raw().InsertMany(ctx, docs)
	if err != nil {
		return 0, mongostore.Translate(err, "tour")
	}
	return len(res.InsertedIDs), nil
}

func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.Raw().DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, mongostore.Translate(err, "tour")
	}
	return res.DeletedCount, nil
}

func aggregate[T any](ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline) ([]T, error) {
	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mongostore.Translate(err, "tour")
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, mongostore.Translate(err, "tour")
	}
	return out, nil
}

func statsPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{publicOnly()}}},
		{{Key: "$match", Value: bson.M{"ratingsAverage": bson.M{"$gte": statsMinRating}}}},
		{{Key: "$group", Value: bson.M{
			"_id":        bson.M{"$toUpper": "$difficulty"},
			"numTours":   bson.M{"$sum": 1},
			"numRatings": bson.M{"$sum": "$ratingsQuantity"},
			"avgRating":  bson.M{"$avg": "$ratingsAverage"},
			"avgPrice":   bson.M{"$avg": "$price"},
			"minPrice":   bson.M{"$min": "$price"},
			"maxPrice":   bson.M{"$max": "$price"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "avgPrice", Value: 1}}}},
	}
}

func monthlyPlanPipeline(year int) mongo.Pipeline {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{publicOnly()}}},
		{{Key: "$unwind", Value: "$startDates"}},
		{{Key: "$match", Value: bson.M{"startDates": bson.M{"$gte": from, "$lt": to}}}},
		{{Key: "$group", Value: bson.M{
			"_id":           bson.M{"$month": "$startDates"},
			"numTourStarts": bson.M{"$sum": 1},
			"tours":         bson.M{"$push": "$name"},
		}}},
		{{Key: "$addFields", Value: bson.M{"month": "$_id"}}},
		{{Key: "$project", Value: bson.M{"_id": 0}}},
		{{Key: "$sort", Value: bson.D{{Key: "numTourStarts", Value: -1}, {Key: "month", Value: 1}}}},
		{{Key: "$limit", Value: planMaxMonths}},
	}
}

func withinFilter(lat, lng, distance float64, unit Unit) bson.D {
	return bson.D{
		{Key: "startLocation", Value: bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": bson.A{bson.A{lng, lat}, unit.RadiusRadians(distance)},
			},
		}},
		publicOnly(),
	}
}

// $geoNear must be the first stage, so the secret filter rides in its query.
func distancesPipeline(lat, lng float64, unit Unit) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.D{
			{Key: "near", Value: bson.D{
				{Key: "type", Value: "Point"},
				{Key: "coordinates", Value: bson.A{lng, lat}},
			}},
			{Key: "distanceField", Value: "distance"},
			{Key: "distanceMultiplier", Value: unit.Multiplier()},
			{Key: "query", Value: bson.D{publicOnly()}},
		}}},
		{{Key: "$project", Value: bson.M{"distance": 1, "name": 1}}},
	}
}
