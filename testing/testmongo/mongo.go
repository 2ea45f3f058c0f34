package testmongo

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

var (
	sharedContainer *MongoContainer
	sharedOnce      sync.Once
)

type MongoContainer struct {
	Container *mongodb.MongoDBContainer
	Client    *mongo.Client
	URI       string
}

// SetupSharedMongo creates a single MongoDB container shared across all tests
// of a package.
//
// IMPORTANT: Tests using shared container CANNOT run in parallel!
//
// Usage:
//
//	func TestMyService_Shared(t *testing.T) {
//	    mongoContainer := testmongo.SetupSharedMongo(t)
//	    defer mongoContainer.Cleanup(t)  // only once, at top level
//
//	    database := mongoContainer.Database("membership_test")
//	    t.Run("Test1", func(t *testing.T) {
//	        testmongo.CleanupCollections(t, database, "members")
//	        // ... test
//	    })
//	}
func SetupSharedMongo(t *testing.T) *MongoContainer {
	t.Helper()

	sharedOnce.Do(func() {
		ctx := context.Background()

		mongoContainer, err := mongodb.Run(ctx, "mongo:7")
		require.NoError(t, err)

		uri, err := mongoContainer.ConnectionString(ctx)
		require.NoError(t, err)

		client, err := mongo.Connect(options.Client().ApplyURI(uri))
		require.NoError(t, err)

		err = client.Ping(ctx, readpref.Primary())
		require.NoError(t, err)

		sharedContainer = &MongoContainer{
			Container: mongoContainer,
			Client:    client,
			URI:       uri,
		}
	})

	return sharedContainer
}

func (mc *MongoContainer) Database(name string) *mongo.Database {
	return mc.Client.Database(name)
}

func (mc *MongoContainer) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if mc.Client != nil {
		_ = mc.Client.Disconnect(ctx)
	}

	if mc.Container != nil {
		if err := mc.Container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
}

// CleanupCollections removes every document but keeps the indexes.
func CleanupCollections(t *testing.T, db *mongo.Database, collections ...string) {
	t.Helper()

	ctx := context.Background()

	for _, name := range collections {
		_, err := db.Collection(name).DeleteMany(ctx, bson.M{})
		require.NoError(t, err, "failed to clean collection: %s", name)
	}
}
