package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"membership-service/common/metrics"
	"membership-service/testing/testdb"
	"membership-service/testing/testmongo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type testDoc struct {
	bun.BaseModel `bun:"table:test_docs" bson:"-" json:"-"`
	Base          `bson:",inline"`

	Email    string   `bun:"email,notnull" bson:"email"`
	Name     string   `bun:"name" bson:"name"`
	Rank     int      `bun:"rank" bson:"rank"`
	Approved bool     `bun:"approved,notnull" bson:"approved"`
	Tags     []string `bun:"tags,array" bson:"tags"`
}

func (d *testDoc) Validate() error {
	if d.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

const testCollection = "test_docs"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMongoCollection_Shared(t *testing.T) {
	mongoContainer := testmongo.SetupSharedMongo(t)
	defer mongoContainer.Cleanup(t)

	database := mongoContainer.Database("store_test")
	backend := NewMongoBackend(database, metrics.NewMock(), quietLogger())

	runCollectionContract(t, func(t *testing.T) Collection[testDoc] {
		testmongo.CleanupCollections(t, database, testCollection)
		coll, err := Open[testDoc](context.Background(), backend, testCollection, "email")
		require.NoError(t, err)
		return coll
	})
}

func TestBunCollection_Shared(t *testing.T) {
	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	backend := NewBunBackend(pgContainer.DB, metrics.NewMock(), quietLogger())

	runCollectionContract(t, func(t *testing.T) Collection[testDoc] {
		coll, err := Open[testDoc](context.Background(), backend, testCollection, "email")
		require.NoError(t, err)
		testdb.CleanupTables(t, pgContainer.DB, testCollection)
		return coll
	})
}

func runCollectionContract(t *testing.T, open func(t *testing.T) Collection[testDoc]) {
	ctx := context.Background()

	t.Run("Create assigns id and timestamps", func(t *testing.T) {
		coll := open(t)

		doc, err := coll.Create(ctx, &testDoc{Email: "a@b.com", Name: "Asha", Tags: []string{"x", "y"}})
		require.NoError(t, err)
		assert.NotEmpty(t, doc.ID)
		assert.False(t, doc.CreatedAt.IsZero())
		assert.Equal(t, doc.CreatedAt, doc.UpdatedAt)

		found, err := coll.FindOne(ctx, Filter{"id": doc.ID})
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "Asha", found.Name)
		assert.Equal(t, []string{"x", "y"}, found.Tags)
	})

	t.Run("Create rejects duplicate natural key", func(t *testing.T) {
		coll := open(t)

		_, err := coll.Create(ctx, &testDoc{Email: "dup@b.com"})
		require.NoError(t, err)

		_, err = coll.Create(ctx, &testDoc{Email: "dup@b.com"})
		assert.ErrorIs(t, err, ErrDuplicateKey)

		n, err := coll.Count(ctx, Filter{"email": "dup@b.com"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Create rejects invalid record", func(t *testing.T) {
		coll := open(t)

		_, err := coll.Create(ctx, &testDoc{Name: "no email"})
		assert.ErrorIs(t, err, ErrInvalidRecord)
	})

	t.Run("concurrent creates with same key", func(t *testing.T) {
		coll := open(t)

		const writers = 8
		var wg sync.WaitGroup
		errs := make([]error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = coll.Create(ctx, &testDoc{Email: "race@b.com", Name: fmt.Sprintf("w%d", i)})
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, ErrDuplicateKey)
		}
		assert.Equal(t, 1, succeeded)

		n, err := coll.Count(ctx, Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("FindOne absent is not an error", func(t *testing.T) {
		coll := open(t)

		doc, err := coll.FindOne(ctx, Filter{"email": "nobody@b.com"})
		require.NoError(t, err)
		assert.Nil(t, doc)
	})

	t.Run("FindMany filters and sorts", func(t *testing.T) {
		coll := open(t)

		empty, err := coll.FindMany(ctx, Filter{})
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		for i, email := range []string{"r1@b.com", "r3@b.com", "r2@b.com"} {
			_, err := coll.Create(ctx, &testDoc{Email: email, Rank: []int{1, 3, 2}[i], Approved: i != 1})
			require.NoError(t, err)
		}

		docs, err := coll.FindMany(ctx, Filter{}, Desc("rank"))
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, []int{3, 2, 1}, []int{docs[0].Rank, docs[1].Rank, docs[2].Rank})

		approved, err := coll.FindMany(ctx, Filter{"approved": true}, Asc("rank"))
		require.NoError(t, err)
		require.Len(t, approved, 2)
		assert.Equal(t, "r1@b.com", approved[0].Email)
		assert.Equal(t, "r2@b.com", approved[1].Email)

		again, err := coll.FindMany(ctx, Filter{}, Desc("rank"))
		require.NoError(t, err)
		assert.Equal(t, docs, again)
	})

	t.Run("UpdateOne patches and returns the record", func(t *testing.T) {
		coll := open(t)

		created, err := coll.Create(ctx, &testDoc{Email: "u@b.com"})
		require.NoError(t, err)

		updated, err := coll.UpdateOne(ctx, Filter{"email": "u@b.com"}, Patch{"approved": true})
		require.NoError(t, err)
		assert.True(t, updated.Approved)
		assert.Equal(t, created.ID, updated.ID)
		assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

		_, err = coll.UpdateOne(ctx, Filter{"email": "missing@b.com"}, Patch{"approved": true})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("DeleteOne", func(t *testing.T) {
		coll := open(t)

		_, err := coll.Create(ctx, &testDoc{Email: "d@b.com"})
		require.NoError(t, err)

		require.NoError(t, coll.DeleteOne(ctx, Filter{"email": "d@b.com"}))
		assert.ErrorIs(t, coll.DeleteOne(ctx, Filter{"email": "d@b.com"}), ErrNotFound)
	})

	t.Run("DeleteMany with negated filter", func(t *testing.T) {
		coll := open(t)

		keep, err := coll.Create(ctx, &testDoc{Email: "keep@b.com"})
		require.NoError(t, err)
		for _, email := range []string{"x1@b.com", "x2@b.com"} {
			_, err := coll.Create(ctx, &testDoc{Email: email})
			require.NoError(t, err)
		}

		n, err := coll.DeleteMany(ctx, Filter{"id": Not{Value: keep.ID}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		left, err := coll.FindMany(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, left, 1)
		assert.Equal(t, keep.ID, left[0].ID)

		n, err = coll.DeleteMany(ctx, Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}
