package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"membership-service/common/metrics"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const pgUniqueViolation = "23505"

type bunCollection[T any] struct {
	db      *bun.DB
	name    string
	metrics *metrics.Metrics
}

// NewBunCollection serves a collection from the table mapped by T's bun.BaseModel tag.
func NewBunCollection[T any](db *bun.DB, name string, m *metrics.Metrics) Collection[T] {
	return &bunCollection[T]{
		db:      db,
		name:    name,
		metrics: m,
	}
}

// EnsureBunIndexes creates one unique index per natural key column.
func EnsureBunIndexes[T any](ctx context.Context, db *bun.DB, name string, uniqueKeys ...string) error {
	for _, key := range uniqueKeys {
		_, err := db.NewCreateIndex().
			Model((*T)(nil)).
			Unique().
			IfNotExists().
			Index(fmt.Sprintf("uniq_%s_%s", name, key)).
			Column(key).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create index %s.%s: %w", name, key, err)
		}
	}
	return nil
}

func (c *bunCollection[T]) Name() string {
	return c.name
}

func (c *bunCollection[T]) Create(ctx context.Context, doc *T) (*T, error) {
	if err := prepare(doc); err != nil {
		return nil, err
	}

	start := time.Now()
	_, err := c.db.NewInsert().Model(doc).Returning("*").Exec(ctx)
	c.record(ctx, "insert", start, err)

	if err != nil {
		return nil, c.translate(err)
	}
	return doc, nil
}

func (c *bunCollection[T]) FindOne(ctx context.Context, filter Filter) (*T, error) {
	start := time.Now()
	doc := new(T)
	q := c.db.NewSelect().Model(doc)
	for _, w := range bunWhere(filter) {
		q = q.Where(w.query, w.args...)
	}
	err := q.Limit(1).Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		c.record(ctx, "select", start, nil)
		return nil, nil
	}
	c.record(ctx, "select", start, err)
	if err != nil {
		return nil, c.translate(err)
	}
	return doc, nil
}

func (c *bunCollection[T]) FindMany(ctx context.Context, filter Filter, sort ...Sort) ([]T, error) {
	start := time.Now()
	docs := []T{}
	q := c.db.NewSelect().Model(&docs)
	for _, w := range bunWhere(filter) {
		q = q.Where(w.query, w.args...)
	}
	for _, s := range sort {
		if s.Desc {
			q = q.OrderExpr("? DESC", bun.Ident(s.Field))
		} else {
			q = q.OrderExpr("? ASC", bun.Ident(s.Field))
		}
	}
	// stable order for equal sort keys
	err := q.OrderExpr("? ASC", bun.Ident("id")).Scan(ctx)
	c.record(ctx, "select", start, err)

	if err != nil {
		return nil, c.translate(err)
	}
	return docs, nil
}

func (c *bunCollection[T]) UpdateOne(ctx context.Context, filter Filter, patch Patch) (*T, error) {
	current, err := c.FindOne(ctx, filter)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotFound
	}
	id := idOf(current)

	start := time.Now()
	q := c.db.NewUpdate().
		Model((*T)(nil)).
		Set("? = ?", bun.Ident("updated_at"), time.Now().UTC().Truncate(time.Millisecond))
	for _, k := range sortedKeys(patch) {
		q = q.Set("? = ?", bun.Ident(k), patch[k])
	}
	res, err := q.Where("? = ?", bun.Ident("id"), id).Exec(ctx)
	c.record(ctx, "update", start, err)

	if err != nil {
		return nil, c.translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	updated, err := c.FindOne(ctx, Filter{"id": id})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

func (c *bunCollection[T]) DeleteOne(ctx context.Context, filter Filter) error {
	current, err := c.FindOne(ctx, filter)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrNotFound
	}

	start := time.Now()
	res, err := c.db.NewDelete().
		Model((*T)(nil)).
		Where("? = ?", bun.Ident("id"), idOf(current)).
		Exec(ctx)
	c.record(ctx, "delete", start, err)

	if err != nil {
		return c.translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *bunCollection[T]) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	start := time.Now()
	q := c.db.NewDelete().Model((*T)(nil))
	clauses := bunWhere(filter)
	if len(clauses) == 0 {
		// bun refuses a DELETE without WHERE
		q = q.Where("TRUE")
	}
	for _, w := range clauses {
		q = q.Where(w.query, w.args...)
	}
	res, err := q.Exec(ctx)
	c.record(ctx, "delete", start, err)

	if err != nil {
		return 0, c.translate(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (c *bunCollection[T]) Count(ctx context.Context, filter Filter) (int64, error) {
	start := time.Now()
	q := c.db.NewSelect().Model((*T)(nil))
	for _, w := range bunWhere(filter) {
		q = q.Where(w.query, w.args...)
	}
	n, err := q.Count(ctx)
	c.record(ctx, "count", start, err)

	if err != nil {
		return 0, c.translate(err)
	}
	return int64(n), nil
}

func (c *bunCollection[T]) record(ctx context.Context, op string, start time.Time, err error) {
	if c.metrics != nil {
		c.metrics.Database.RecordQuery(ctx, op, c.name, time.Since(start), err)
	}
}

func (c *bunCollection[T]) translate(err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", c.name, ErrDuplicateKey)
	}
	return fmt.Errorf("%s: %w", c.name, err)
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "SQLSTATE="+pgUniqueViolation)
}

type whereClause struct {
	query string
	args  []any
}

func bunWhere(filter Filter) []whereClause {
	clauses := make([]whereClause, 0, len(filter))
	for _, k := range sortedKeys(filter) {
		v := filter[k]
		if not, ok := v.(Not); ok {
			clauses = append(clauses, whereClause{query: "? != ?", args: []any{bun.Ident(k), not.Value}})
			continue
		}
		clauses = append(clauses, whereClause{query: "? = ?", args: []any{bun.Ident(k), v}})
	}
	return clauses
}
