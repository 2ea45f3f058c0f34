package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"membership-service/common/metrics"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type mongoCollection[T any] struct {
	coll    *mongo.Collection
	name    string
	metrics *metrics.Metrics
}

func NewMongoCollection[T any](db *mongo.Database, name string, m *metrics.Metrics) Collection[T] {
	return &mongoCollection[T]{
		coll:    db.Collection(name),
		name:    name,
		metrics: m,
	}
}

// EnsureMongoIndexes creates one unique index per natural key.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database, name string, uniqueKeys ...string) error {
	if len(uniqueKeys) == 0 {
		return nil
	}

	models := make([]mongo.IndexModel, 0, len(uniqueKeys))
	for _, key := range uniqueKeys {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: key, Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_" + key),
		})
	}

	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create indexes on %s: %w", name, err)
	}
	return nil
}

func (c *mongoCollection[T]) Name() string {
	return c.name
}

func (c *mongoCollection[T]) Create(ctx context.Context, doc *T) (*T, error) {
	if err := prepare(doc); err != nil {
		return nil, err
	}

	start := time.Now()
	_, err := c.coll.InsertOne(ctx, doc)
	c.record(ctx, "insert", start, err)

	if err != nil {
		return nil, c.translate(err)
	}
	return doc, nil
}

func (c *mongoCollection[T]) FindOne(ctx context.Context, filter Filter) (*T, error) {
	start := time.Now()
	doc := new(T)
	err := c.coll.FindOne(ctx, mongoFilter(filter)).Decode(doc)

	if errors.Is(err, mongo.ErrNoDocuments) {
		c.record(ctx, "select", start, nil)
		return nil, nil
	}
	c.record(ctx, "select", start, err)
	if err != nil {
		return nil, c.translate(err)
	}
	return doc, nil
}

func (c *mongoCollection[T]) FindMany(ctx context.Context, filter Filter, sort ...Sort) ([]T, error) {
	start := time.Now()
	docs, err := c.findMany(ctx, filter, sort)
	c.record(ctx, "select", start, err)

	if err != nil {
		return nil, c.translate(err)
	}
	return docs, nil
}

func (c *mongoCollection[T]) findMany(ctx context.Context, filter Filter, sort []Sort) ([]T, error) {
	order := bson.D{}
	for _, s := range sort {
		dir := 1
		if s.Desc {
			dir = -1
		}
		order = append(order, bson.E{Key: mongoField(s.Field), Value: dir})
	}
	// stable order for equal sort keys
	order = append(order, bson.E{Key: "_id", Value: 1})

	cursor, err := c.coll.Find(ctx, mongoFilter(filter), options.Find().SetSort(order))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *mongoCollection[T]) UpdateOne(ctx context.Context, filter Filter, patch Patch) (*T, error) {
	set := bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)}
	for _, k := range sortedKeys(patch) {
		set[mongoField(k)] = patch[k]
	}

	start := time.Now()
	doc := new(T)
	err := c.coll.FindOneAndUpdate(ctx,
		mongoFilter(filter),
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(doc)

	if errors.Is(err, mongo.ErrNoDocuments) {
		c.record(ctx, "update", start, nil)
		return nil, ErrNotFound
	}
	c.record(ctx, "update", start, err)
	if err != nil {
		return nil, c.translate(err)
	}
	return doc, nil
}

func (c *mongoCollection[T]) DeleteOne(ctx context.Context, filter Filter) error {
	start := time.Now()
	res, err := c.coll.DeleteOne(ctx, mongoFilter(filter))
	c.record(ctx, "delete", start, err)

	if err != nil {
		return c.translate(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoCollection[T]) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	start := time.Now()
	res, err := c.coll.DeleteMany(ctx, mongoFilter(filter))
	c.record(ctx, "delete", start, err)

	if err != nil {
		return 0, c.translate(err)
	}
	return res.DeletedCount, nil
}

func (c *mongoCollection[T]) Count(ctx context.Context, filter Filter) (int64, error) {
	start := time.Now()
	n, err := c.coll.CountDocuments(ctx, mongoFilter(filter))
	c.record(ctx, "count", start, err)

	if err != nil {
		return 0, c.translate(err)
	}
	return n, nil
}

func (c *mongoCollection[T]) record(ctx context.Context, op string, start time.Time, err error) {
	if c.metrics != nil {
		c.metrics.Database.RecordQuery(ctx, op, c.name, time.Since(start), err)
	}
}

func (c *mongoCollection[T]) translate(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", c.name, ErrDuplicateKey)
	}
	return fmt.Errorf("%s: %w", c.name, err)
}

func mongoField(name string) string {
	if name == "id" {
		return "_id"
	}
	return name
}

func mongoFilter(filter Filter) bson.M {
	out := bson.M{}
	for _, k := range sortedKeys(filter) {
		v := filter[k]
		if not, ok := v.(Not); ok {
			out[mongoField(k)] = bson.M{"$ne": not.Value}
			continue
		}
		out[mongoField(k)] = v
	}
	return out
}
