// Package assettest provides an in-memory asset.Store for tests.
package assettest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"membership-service/internal/asset"
)

// Store keeps uploaded assets in memory. UploadFn and DeleteFn, when set,
// run before the default behaviour and may fail or delay the call.
type Store struct {
	UploadFn func(ctx context.Context, file asset.File) error
	DeleteFn func(ctx context.Context, id string) error

	mu      sync.Mutex
	live    map[string]asset.File
	deleted []string
	seq     atomic.Int64
}

func New() *Store {
	return &Store{live: map[string]asset.File{}}
}

func (s *Store) Upload(ctx context.Context, file asset.File) (asset.Ref, error) {
	if s.UploadFn != nil {
		if err := s.UploadFn(ctx, file); err != nil {
			return asset.Ref{}, fmt.Errorf("%w: %v", asset.ErrUploadFailed, err)
		}
	}

	id := fmt.Sprintf("test/%s-%d", file.Name, s.seq.Add(1))

	s.mu.Lock()
	s.live[id] = file
	s.mu.Unlock()

	return asset.Ref{URL: URL(id), ID: id}, nil
}

func (s *Store) Delete(ctx context.Context, id string) (asset.Outcome, error) {
	if s.DeleteFn != nil {
		if err := s.DeleteFn(ctx, id); err != nil {
			return 0, fmt.Errorf("%w: %v", asset.ErrDeleteFailed, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleted = append(s.deleted, id)
	if _, ok := s.live[id]; !ok {
		return asset.AlreadyAbsent, nil
	}
	delete(s.live, id)
	return asset.Deleted, nil
}

// Put registers an asset as if a client had uploaded it directly.
func (s *Store) Put(id string) asset.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[id] = asset.File{Name: id}
	return asset.Ref{URL: URL(id), ID: id}
}

// Live returns the ids still stored, sorted.
func (s *Store) Live() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live[id]
	return ok
}

// Deleted returns every id passed to Delete, in call order.
func (s *Store) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

// URL is the delivery URL the store hands out for id.
func URL(id string) string {
	return "https://assets.example/image/upload/v1/" + id + ".jpg"
}

// JPEG returns n bytes that sniff as image/jpeg.
func JPEG(n int) []byte {
	return withMagic([]byte{0xFF, 0xD8, 0xFF, 0xE0}, n)
}

// PNG returns n bytes that sniff as image/png.
func PNG(n int) []byte {
	return withMagic([]byte("\x89PNG\r\n\x1a\n"), n)
}

func withMagic(magic []byte, n int) []byte {
	if n < len(magic) {
		n = len(magic)
	}
	data := make([]byte, n)
	copy(data, magic)
	return data
}

// File is a JPEG asset.File named name.
func File(name string) asset.File {
	return asset.File{Name: name, ContentType: "image/jpeg", Data: JPEG(64)}
}
