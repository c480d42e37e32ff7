package mongostore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/query"
)

func TestFindPaging(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := mtest.TestDb + ".samples"

	mt.Run("strict page past the end", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: 3}}))
		c := New[sample](mt.DB, "samples", "sample")

		_, err := c.Find(context.Background(), query.Query{Page: 3, Limit: 2, StrictPaging: true})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
		assert.EqualError(t, err, "This page does not exist: 3")
	})

	mt.Run("strict page in range", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: 3}}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "name", Value: "The Sea Explorer"}}),
		)
		c := New[sample](mt.DB, "samples", "sample")

		docs, err := c.Find(context.Background(), query.Query{Page: 2, Limit: 2, StrictPaging: true})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "The Sea Explorer", docs[0].Name)
	})

	mt.Run("lenient page past the end is empty", func(mt *mtest.T) {
		// a count would consume this response and report zero documents
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		c := New[sample](mt.DB, "samples", "sample")

		docs, err := c.Find(context.Background(), query.Query{Page: 50, Limit: 2})
		require.NoError(t, err)
		assert.NotNil(t, docs)
		assert.Empty(t, docs)
	})
}
