// Package mongostore adapts a MongoDB collection to the query package and
// translates driver errors into application errors.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/query"
)

// Collection is a typed view over a MongoDB collection. Documents of type T
// must use matching json and bson field names.
type Collection[T any] struct {
	coll     *mongo.Collection
	singular string
}

// New wraps the named collection. singular names one document in error messages.
func New[T any](db *mongo.Database, name, singular string) *Collection[T] {
	return &Collection[T]{coll: db.Collection(name), singular: singular}
}

// Raw exposes the underlying driver collection for aggregations.
func (c *Collection[T]) Raw() *mongo.Collection {
	return c.coll
}

// ParseID converts a hex string into an ObjectID.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperror.Validation("Invalid _id: %s", id)
	}
	return oid, nil
}

// Find runs q and returns the matching page.
func (c *Collection[T]) Find(ctx context.Context, q query.Query) ([]T, error) {
	filter, err := query.MongoFilter(q)
	if err != nil {
		return nil, err
	}

	err = query.CheckPage(q, func() (int64, error) {
		total, err := c.coll.CountDocuments(ctx, filter)
		if err != nil {
			return 0, c.translate(err)
		}
		return total, nil
	})
	if err != nil {
		return nil, err
	}

	cur, err := c.coll.Find(ctx, filter, query.MongoFindOptions(q))
	if err != nil {
		return nil, c.translate(err)
	}

	docs := []T{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, c.translate(err)
	}
	return docs, nil
}

// FindOne returns the first document matching filter.
func (c *Collection[T]) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) (*T, error) {
	doc := new(T)
	if err := c.coll.FindOne(ctx, filter, opts...).Decode(doc); err != nil {
		return nil, c.translate(err)
	}
	return doc, nil
}

// FindAll returns every document matching filter.
func (c *Collection[T]) FindAll(ctx context.Context, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, c.translate(err)
	}
	docs := []T{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, c.translate(err)
	}
	return docs, nil
}

// Get returns the document with the given hex id.
func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return c.FindOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

// Insert stores doc and returns its generated id.
func (c *Collection[T]) Insert(ctx context.Context, doc *T) (primitive.ObjectID, error) {
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, c.translate(err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, apperror.Internal(fmt.Errorf("unexpected inserted id %v", res.InsertedID))
	}
	return oid, nil
}

// Create stores doc and reads it back.
func (c *Collection[T]) Create(ctx context.Context, doc *T) (*T, error) {
	oid, err := c.Insert(ctx, doc)
	if err != nil {
		return nil, err
	}
	return c.FindOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

// Update writes the listed fields of doc to the document with the given id
// and returns the updated document. Fields omitted by doc's encoding are unset.
func (c *Collection[T]) Update(ctx context.Context, id string, doc *T, fields []string) (*T, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	update, err := fieldUpdate(doc, fields)
	if err != nil {
		return nil, err
	}
	return c.UpdateByID(ctx, oid, update)
}

// UpdateByID applies an update document and returns the result.
func (c *Collection[T]) UpdateByID(ctx context.Context, id primitive.ObjectID, update any) (*T, error) {
	doc := new(T)
	err := c.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(doc)
	if err != nil {
		return nil, c.translate(err)
	}
	return doc, nil
}

// Delete removes the document with the given hex id.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	_, err = c.DeleteByID(ctx, oid)
	return err
}

// DeleteByID removes a document and returns what was removed.
func (c *Collection[T]) DeleteByID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	doc := new(T)
	if err := c.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: id}}).Decode(doc); err != nil {
		return nil, c.translate(err)
	}
	return doc, nil
}

func (c *Collection[T]) translate(err error) error {
	return Translate(err, c.singular)
}

func fieldUpdate(doc any, fields []string) (bson.D, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("encode update: %w", err))
	}
	var encoded bson.M
	if err := bson.Unmarshal(raw, &encoded); err != nil {
		return nil, apperror.Internal(fmt.Errorf("decode update: %w", err))
	}

	set := bson.D{}
	unset := bson.D{}
	for _, f := range fields {
		if f == "_id" || slices.ContainsFunc(set, func(e bson.E) bool { return e.Key == f }) {
			continue
		}
		if v, ok := encoded[f]; ok {
			set = append(set, bson.E{Key: f, Value: v})
		} else {
			unset = append(unset, bson.E{Key: f, Value: ""})
		}
	}

	update := bson.D{}
	if len(set) > 0 {
		update = append(update, bson.E{Key: "$set", Value: set})
	}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	if len(update) == 0 {
		return nil, apperror.Validation("No updatable fields provided")
	}
	return update, nil
}

var dupKey = regexp.MustCompile(`dup key: \{ ?"?([A-Za-z0-9_.]+)"?: "?(.*?)"? ?\}`)

// Translate maps driver errors onto application errors.
func Translate(err error, singular string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperror.NotFound("No %s found with that ID", singular).Wrap(err)
	case mongo.IsDuplicateKeyError(err):
		field, value := duplicateKey(err.Error())
		return apperror.Conflict(field, fmt.Sprintf("Duplicate field value: %q. Please use another value!", value)).Wrap(err)
	default:
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperror.Internal(err)
	}
}

func duplicateKey(msg string) (field, value string) {
	m := dupKey.FindStringSubmatch(msg)
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}
