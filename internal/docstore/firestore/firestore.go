// Package firestore is a docstore.Store on Cloud Firestore.
//
// Collection paths map directly onto Firestore paths, so "users/alice/agenda"
// is the agenda subcollection of document users/alice. Documents are stored as
// native Firestore maps converted from the JSON the rest of the program
// writes, which keeps them readable in the console.
package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gfs "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/roach88/agenda/internal/docstore"
)

// resubscribeDelay is the pause before a failed listener is reopened.
const resubscribeDelay = time.Second

// Store is a Firestore-backed docstore.Store.
type Store struct {
	client *gfs.Client
	logger *slog.Logger

	mu     sync.Mutex
	cancel map[int]context.CancelFunc
	next   int
	closed bool
	wg     sync.WaitGroup
}

// Open connects to the project. Credentials come from the environment
// (GOOGLE_APPLICATION_CREDENTIALS or FIRESTORE_EMULATOR_HOST) unless opts
// say otherwise.
func Open(ctx context.Context, projectID string, logger *slog.Logger, opts ...option.ClientOption) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := gfs.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &Store{client: client, logger: logger, cancel: make(map[int]context.CancelFunc)}, nil
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, collection, key string) (docstore.Document, error) {
	if err := docstore.ValidatePath(collection, key); err != nil {
		return docstore.Document{}, err
	}
	snap, err := s.client.Collection(collection).Doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	return fromSnapshot(snap)
}

// Set implements docstore.Store. The whole document is replaced.
func (s *Store) Set(ctx context.Context, collection, key string, data []byte) error {
	if err := docstore.ValidatePath(collection, key); err != nil {
		return err
	}
	fields, err := toFields(data)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, key, err)
	}
	if _, err := s.client.Collection(collection).Doc(key).Set(ctx, fields); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, key, err)
	}
	return nil
}

// List implements docstore.Store.
func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	if err := docstore.ValidatePath(collection, ""); err != nil {
		return nil, err
	}
	iter := s.client.Collection(collection).OrderBy(gfs.DocumentID, gfs.Asc).Documents(ctx)
	defer iter.Stop()

	var docs []docstore.Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		doc, err := fromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Subscribe implements docstore.Store. Snapshots arrive on a background
// goroutine. A listener error is reported and the listener is reopened after
// a short delay.
func (s *Store) Subscribe(ctx context.Context, collection string, onSnapshot docstore.SnapshotFunc, onError docstore.ErrorFunc) (docstore.Unsubscribe, error) {
	if err := docstore.ValidatePath(collection, ""); err != nil {
		return nil, err
	}
	query := s.client.Collection(collection).OrderBy(gfs.DocumentID, gfs.Asc)
	return s.listen(ctx, collection, onError, func(ctx context.Context) error {
		it := query.Snapshots(ctx)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				return err
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				return err
			}
			docs := make([]docstore.Document, 0, len(snaps))
			for _, snap := range snaps {
				doc, err := fromSnapshot(snap)
				if err != nil {
					return err
				}
				docs = append(docs, doc)
			}
			onSnapshot(docs)
		}
	})
}

// SubscribeDocument implements docstore.Store.
func (s *Store) SubscribeDocument(ctx context.Context, collection, key string, onDoc docstore.DocumentFunc, onError docstore.ErrorFunc) (docstore.Unsubscribe, error) {
	if err := docstore.ValidatePath(collection, key); err != nil {
		return nil, err
	}
	ref := s.client.Collection(collection).Doc(key)
	return s.listen(ctx, collection+"/"+key, onError, func(ctx context.Context) error {
		it := ref.Snapshots(ctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				return err
			}
			if !snap.Exists() {
				onDoc(docstore.Document{Key: key}, false)
				continue
			}
			doc, err := fromSnapshot(snap)
			if err != nil {
				return err
			}
			onDoc(doc, true)
		}
	})
}

func (s *Store) listen(parent context.Context, path string, onError docstore.ErrorFunc, run func(context.Context) error) (docstore.Unsubscribe, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, docstore.ErrClosed
	}
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	id := s.next
	s.next++
	s.cancel[id] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		for {
			err := run(ctx)
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return
			}
			s.logger.Warn("firestore listener failed", "path", path, "error", err)
			if onError != nil {
				onError(fmt.Errorf("listen %s: %w", path, err))
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(resubscribeDelay):
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.cancel, id)
			s.mu.Unlock()
			cancel()
		})
	}, nil
}

// Close stops every listener and closes the client.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for _, cancel := range s.cancel {
		cancel()
	}
	s.cancel = nil
	s.mu.Unlock()

	s.wg.Wait()
	return s.client.Close()
}

func fromSnapshot(snap *gfs.DocumentSnapshot) (docstore.Document, error) {
	data, err := fromFields(snap.Data())
	if err != nil {
		return docstore.Document{}, fmt.Errorf("decode %s: %w", snap.Ref.Path, err)
	}
	return docstore.Document{Key: snap.Ref.ID, Data: data, UpdatedAt: snap.UpdateTime}, nil
}

// toFields converts a JSON object into the map Firestore stores.
func toFields(data []byte) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// fromFields converts Firestore values back to JSON. Timestamps become
// RFC 3339 strings.
func fromFields(fields map[string]any) ([]byte, error) {
	return json.Marshal(normalize(fields))
}

func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalize(val)
		}
		return out
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
