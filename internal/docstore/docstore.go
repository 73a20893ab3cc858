// Package docstore defines the keyed document store the agenda is persisted
// in.
//
// A store holds collections of JSON documents addressed by (collection, key).
// Set always replaces the whole document; nothing is merged server-side.
// Subscriptions deliver full snapshots, never diffs: the callback receives the
// complete, key-ordered collection every time something in it changes, and
// once immediately after subscribing.
//
// Backends live in subpackages: memstore (in-process), sqlite (single file),
// fsstore (one JSON file per document, watched with fsnotify) and firestore.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by Get when the document does not exist.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrClosed is returned by every operation on a closed store.
	ErrClosed = errors.New("docstore: store closed")
)

// Document is one stored record.
type Document struct {
	Key       string
	Data      []byte
	UpdatedAt time.Time
}

// SnapshotFunc receives the full contents of a collection, ordered by key.
type SnapshotFunc func(docs []Document)

// DocumentFunc receives the current state of a single document. exists is
// false when the document has not been written yet.
type DocumentFunc func(doc Document, exists bool)

// ErrorFunc receives listener failures. The subscription stays registered.
type ErrorFunc func(err error)

// Unsubscribe cancels a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// Store is a keyed document store with whole-document writes and
// snapshot subscriptions.
type Store interface {
	Get(ctx context.Context, collection, key string) (Document, error)
	Set(ctx context.Context, collection, key string, data []byte) error
	List(ctx context.Context, collection string) ([]Document, error)
	Subscribe(ctx context.Context, collection string, onSnapshot SnapshotFunc, onError ErrorFunc) (Unsubscribe, error)
	SubscribeDocument(ctx context.Context, collection, key string, onDoc DocumentFunc, onError ErrorFunc) (Unsubscribe, error)
	Close() error
}

// ValidatePath checks a collection path and key. Collections are
// slash-separated segments; keys are a single segment.
func ValidatePath(collection, key string) error {
	if collection == "" {
		return fmt.Errorf("docstore: empty collection")
	}
	for _, seg := range strings.Split(collection, "/") {
		if err := validateSegment(seg); err != nil {
			return fmt.Errorf("docstore: collection %q: %w", collection, err)
		}
	}
	if key == "" {
		return nil
	}
	if err := validateSegment(key); err != nil {
		return fmt.Errorf("docstore: key %q: %w", key, err)
	}
	return nil
}

func validateSegment(seg string) error {
	switch {
	case seg == "":
		return errors.New("empty segment")
	case seg == "." || seg == "..":
		return errors.New("relative segment")
	case strings.ContainsAny(seg, "/\\\x00"):
		return errors.New("invalid character")
	}
	return nil
}
