package store

import (
	"context"
	"fmt"
	"log/slog"

	"membership-service/common/metrics"
	"membership-service/internal/db"

	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Backend is the configured database behind every collection.
type Backend struct {
	driver  string
	mongo   *mongo.Database
	bun     *bun.DB
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewMongoBackend(database *mongo.Database, m *metrics.Metrics, logger *slog.Logger) *Backend {
	return &Backend{driver: "mongo", mongo: database, metrics: m, logger: logger}
}

func NewBunBackend(database *bun.DB, m *metrics.Metrics, logger *slog.Logger) *Backend {
	return &Backend{driver: "postgres", bun: database, metrics: m, logger: logger}
}

func (b *Backend) Driver() string {
	return b.driver
}

func (b *Backend) Ping(ctx context.Context) error {
	if b.mongo != nil {
		return b.mongo.Client().Ping(ctx, readpref.Primary())
	}
	return b.bun.PingContext(ctx)
}

// Open prepares the collection's storage (table, unique indexes) and returns it.
func Open[T any](ctx context.Context, b *Backend, name string, uniqueKeys ...string) (Collection[T], error) {
	switch {
	case b.mongo != nil:
		if err := EnsureMongoIndexes(ctx, b.mongo, name, uniqueKeys...); err != nil {
			return nil, err
		}
		return NewMongoCollection[T](b.mongo, name, b.metrics), nil
	case b.bun != nil:
		if err := db.RunMigrations(ctx, b.bun, b.logger, (*T)(nil)); err != nil {
			return nil, fmt.Errorf("migrate %s: %w", name, err)
		}
		if err := EnsureBunIndexes[T](ctx, b.bun, name, uniqueKeys...); err != nil {
			return nil, err
		}
		return NewBunCollection[T](b.bun, name, b.metrics), nil
	default:
		return nil, fmt.Errorf("store backend not configured")
	}
}
