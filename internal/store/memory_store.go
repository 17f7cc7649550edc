package store

import (
	"context"
	"sync"

	"github.com/streamhook/streamhook/internal/config"
)

// MemoryStore keeps a document in memory behind a sync.RWMutex. Every read
// returns a deep copy and every write stores one, so callers can never alias
// the held document.
type MemoryStore struct {
	mu  sync.RWMutex
	doc *config.Document
}

// NewMemoryStore creates a store, optionally seeded with doc.
func NewMemoryStore(doc *config.Document) *MemoryStore {
	s := &MemoryStore{}
	if doc != nil {
		s.doc = doc.Clone()
	}
	return s
}

// Load returns a copy of the held document.
func (s *MemoryStore) Load(ctx context.Context) (*config.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil, ErrNotFound
	}
	return s.doc.Clone(), nil
}

// Save replaces the held document with a copy of doc. Invalid documents are
// refused and the held one is kept.
func (s *MemoryStore) Save(ctx context.Context, doc *config.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(doc, "memory"); err != nil {
		return err
	}
	clone := doc.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = clone
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
