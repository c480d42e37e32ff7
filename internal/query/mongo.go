package query

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/redmonkez12/natours-api/internal/apperror"
)

// MongoFilter translates the query conditions into a filter document.
// Conditions on the same field are merged into one operator document.
func MongoFilter(q Query) (bson.D, error) {
	filter := bson.D{}
	index := make(map[string]int)

	for _, c := range q.Conditions {
		value, err := mongoValue(c)
		if err != nil {
			return nil, err
		}

		i, seen := index[c.Field]
		if !seen {
			index[c.Field] = len(filter)
			filter = append(filter, bson.E{Key: c.Field, Value: bson.D{{Key: "$" + string(c.Op), Value: value}}})
			continue
		}

		ops, ok := filter[i].Value.(bson.D)
		if !ok {
			return nil, apperror.Validation("Conflicting conditions on %s", c.Field)
		}
		filter[i].Value = append(ops, bson.E{Key: "$" + string(c.Op), Value: value})
	}

	// a lone equality reads better as {field: value}
	for i, e := range filter {
		if ops, ok := e.Value.(bson.D); ok && len(ops) == 1 && ops[0].Key == "$eq" {
			filter[i].Value = ops[0].Value
		}
	}

	return filter, nil
}

// MongoFindOptions translates sort, projection and pagination.
func MongoFindOptions(q Query) *options.FindOptions {
	opts := options.Find()

	if len(q.Sort) > 0 {
		sort := make(bson.D, 0, len(q.Sort))
		for _, s := range q.Sort {
			dir := 1
			if s.Desc {
				dir = -1
			}
			sort = append(sort, bson.E{Key: s.Field, Value: dir})
		}
		opts.SetSort(sort)
	}

	if projection := MongoProjection(q); len(projection) > 0 {
		opts.SetProjection(projection)
	}

	if q.Paginated() {
		opts.SetSkip(int64(q.Skip()))
		opts.SetLimit(int64(q.Limit))
	}

	return opts
}

// MongoProjection returns an inclusion projection when Fields is set,
// otherwise an exclusion projection built from Exclude.
func MongoProjection(q Query) bson.D {
	projection := bson.D{}
	if len(q.Fields) > 0 {
		for _, f := range q.Fields {
			projection = append(projection, bson.E{Key: f, Value: 1})
		}
		return projection
	}
	for _, f := range q.Exclude {
		projection = append(projection, bson.E{Key: f, Value: 0})
	}
	return projection
}

func mongoValue(c Condition) (any, error) {
	if c.Kind != KindID {
		return c.Value, nil
	}
	if c.Op == OpIn {
		values, _ := c.Value.([]any)
		ids := make([]any, 0, len(values))
		for _, v := range values {
			id, err := objectID(c.Field, v)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}
	return objectID(c.Field, c.Value)
}

func objectID(field string, v any) (any, error) {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id, nil
	case string:
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, apperror.Validation("Invalid %s: %s", field, id)
		}
		return oid, nil
	default:
		return v, nil
	}
}
