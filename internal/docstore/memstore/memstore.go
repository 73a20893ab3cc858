// Package memstore is an in-process docstore.Store.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/roach88/agenda/internal/docstore"
)

// Store keeps documents in memory.
type Store struct {
	hub *docstore.Hub
	now func() time.Time

	mu     sync.RWMutex
	colls  map[string]map[string]docstore.Document
	closed bool

	// failSet, when set, makes Set fail for matching collections.
	failSet func(collection, key string) error
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSetFailure injects write failures; fn returning non-nil aborts the
// write with that error.
func WithSetFailure(fn func(collection, key string) error) Option {
	return func(s *Store) { s.failSet = fn }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		now:   time.Now,
		colls: make(map[string]map[string]docstore.Document),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = docstore.NewHub(source{s})
	return s
}

// Get returns a copy of the stored document.
func (s *Store) Get(ctx context.Context, collection, key string) (docstore.Document, error) {
	return source{s}.Get(ctx, collection, key)
}

// Set replaces the document and notifies subscribers of the collection.
func (s *Store) Set(ctx context.Context, collection, key string, data []byte) error {
	if err := docstore.ValidatePath(collection, key); err != nil {
		return err
	}
	return s.hub.Commit(ctx, collection, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return docstore.ErrClosed
		}
		if s.failSet != nil {
			if err := s.failSet(collection, key); err != nil {
				return err
			}
		}
		docs, ok := s.colls[collection]
		if !ok {
			docs = make(map[string]docstore.Document)
			s.colls[collection] = docs
		}
		docs[key] = docstore.Document{Key: key, Data: slices.Clone(data), UpdatedAt: s.now()}
		return nil
	})
}

// List returns every document of the collection ordered by key.
func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	return source{s}.List(ctx, collection)
}

// Subscribe implements docstore.Store.
func (s *Store) Subscribe(ctx context.Context, collection string, onSnapshot docstore.SnapshotFunc, onError docstore.ErrorFunc) (docstore.Unsubscribe, error) {
	return s.hub.Subscribe(ctx, collection, onSnapshot, onError)
}

// SubscribeDocument implements docstore.Store.
func (s *Store) SubscribeDocument(ctx context.Context, collection, key string, onDoc docstore.DocumentFunc, onError docstore.ErrorFunc) (docstore.Unsubscribe, error) {
	return s.hub.SubscribeDocument(ctx, collection, key, onDoc, onError)
}

// Close discards all subscribers. Documents stay readable until the store is
// garbage collected but every call returns docstore.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.Close()
	return nil
}

// source reads without going through the hub.
type source struct{ s *Store }

func (src source) Get(_ context.Context, collection, key string) (docstore.Document, error) {
	src.s.mu.RLock()
	defer src.s.mu.RUnlock()
	if src.s.closed {
		return docstore.Document{}, docstore.ErrClosed
	}
	doc, ok := src.s.colls[collection][key]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	doc.Data = slices.Clone(doc.Data)
	return doc, nil
}

func (src source) List(_ context.Context, collection string) ([]docstore.Document, error) {
	src.s.mu.RLock()
	defer src.s.mu.RUnlock()
	if src.s.closed {
		return nil, docstore.ErrClosed
	}
	docs := src.s.colls[collection]
	out := make([]docstore.Document, 0, len(docs))
	for _, doc := range docs {
		doc.Data = slices.Clone(doc.Data)
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
