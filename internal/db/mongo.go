package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"membership-service/internal/config"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Mongo owns one client for the process lifetime.
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongo(ctx context.Context, cfg config.MongoConfig, logger *slog.Logger) (*Mongo, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(cfg.URI).SetServerAPIOptions(serverAPI)

	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.ServerSelectionSeconds > 0 {
		opts.SetServerSelectionTimeout(time.Duration(cfg.ServerSelectionSeconds) * time.Second)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("mongo connected successfully", "database", cfg.Name)

	return &Mongo{
		Client:   client,
		Database: client.Database(cfg.Name),
	}, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return nil
	}
	return m.Client.Disconnect(ctx)
}
