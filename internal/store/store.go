package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrInvalidRecord = errors.New("invalid record")
)

// Base is embedded by every stored document.
type Base struct {
	ID        string    `bun:"id,pk" bson:"_id" json:"id"`
	CreatedAt time.Time `bun:"created_at,notnull" bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull" bson:"updated_at" json:"updatedAt"`
}

// Init assigns the id and timestamps of a new document.
func (b *Base) Init(now time.Time) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now = now.UTC().Truncate(time.Millisecond)
	b.CreatedAt = now
	b.UpdatedAt = now
}

func (b *Base) GetID() string {
	return b.ID
}

// Filter matches documents by equality on stored field names.
// A Not value matches documents whose field differs.
type Filter map[string]any

// Not negates a Filter value.
type Not struct {
	Value any
}

// Patch sets stored fields to new values.
type Patch map[string]any

type Sort struct {
	Field string
	Desc  bool
}

func Asc(field string) Sort  { return Sort{Field: field} }
func Desc(field string) Sort { return Sort{Field: field, Desc: true} }

// Collection is one entity collection in the record store.
// Reads never fail on absence: FindOne returns nil and FindMany an empty slice.
type Collection[T any] interface {
	Name() string
	Create(ctx context.Context, doc *T) (*T, error)
	FindOne(ctx context.Context, filter Filter) (*T, error)
	FindMany(ctx context.Context, filter Filter, sort ...Sort) ([]T, error)
	UpdateOne(ctx context.Context, filter Filter, patch Patch) (*T, error)
	DeleteOne(ctx context.Context, filter Filter) error
	DeleteMany(ctx context.Context, filter Filter) (int64, error)
	Count(ctx context.Context, filter Filter) (int64, error)
}

type initializer interface {
	Init(now time.Time)
}

type identified interface {
	GetID() string
}

type validatable interface {
	Validate() error
}

// prepare validates a new document and stamps it.
func prepare[T any](doc *T) error {
	if v, ok := any(doc).(validatable); ok {
		if err := v.Validate(); err != nil {
			return errors.Join(ErrInvalidRecord, err)
		}
	}
	if in, ok := any(doc).(initializer); ok {
		in.Init(time.Now())
	}
	return nil
}

func idOf[T any](doc *T) string {
	if d, ok := any(doc).(identified); ok {
		return d.GetID()
	}
	return ""
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
