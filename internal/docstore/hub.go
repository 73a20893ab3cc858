package docstore

import (
	"context"
	"errors"
	"sync"
)

// Source is the read side a Hub publishes from.
type Source interface {
	Get(ctx context.Context, collection, key string) (Document, error)
	List(ctx context.Context, collection string) ([]Document, error)
}

// Hub fans snapshots out to in-process subscribers. Local backends embed one
// and route every write through Commit, which serializes the write with the
// snapshot it triggers so subscribers observe writes in order.
//
// Callbacks run on the writing goroutine while the hub is locked; they must
// hand work off rather than call back into the store.
type Hub struct {
	source Source

	pub sync.Mutex // held across write + publish

	mu     sync.Mutex
	next   int
	subs   map[int]*subscriber
	closed bool
}

type subscriber struct {
	collection string
	key        string
	onSnapshot SnapshotFunc
	onDoc      DocumentFunc
	onError    ErrorFunc
}

// NewHub creates a hub reading snapshots from source.
func NewHub(source Source) *Hub {
	return &Hub{source: source, subs: make(map[int]*subscriber)}
}

// Subscribe registers a collection listener and delivers the initial
// snapshot before returning.
func (h *Hub) Subscribe(ctx context.Context, collection string, onSnapshot SnapshotFunc, onError ErrorFunc) (Unsubscribe, error) {
	if err := ValidatePath(collection, ""); err != nil {
		return nil, err
	}
	return h.add(ctx, &subscriber{collection: collection, onSnapshot: onSnapshot, onError: onError})
}

// SubscribeDocument registers a single-document listener and delivers the
// document's current state before returning.
func (h *Hub) SubscribeDocument(ctx context.Context, collection, key string, onDoc DocumentFunc, onError ErrorFunc) (Unsubscribe, error) {
	if err := ValidatePath(collection, key); err != nil {
		return nil, err
	}
	return h.add(ctx, &subscriber{collection: collection, key: key, onDoc: onDoc, onError: onError})
}

func (h *Hub) add(ctx context.Context, sub *subscriber) (Unsubscribe, error) {
	h.pub.Lock()
	defer h.pub.Unlock()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	id := h.next
	h.next++
	h.subs[id] = sub
	h.mu.Unlock()

	h.deliver(ctx, sub)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}, nil
}

// Commit runs write and then publishes the collection to its subscribers.
// The snapshot is only published when write succeeds.
func (h *Hub) Commit(ctx context.Context, collection string, write func() error) error {
	h.pub.Lock()
	defer h.pub.Unlock()

	if err := write(); err != nil {
		return err
	}
	h.publish(ctx, collection)
	return nil
}

// Publish delivers a fresh snapshot of collection to its subscribers. Used
// when a change arrives from outside the process.
func (h *Hub) Publish(ctx context.Context, collection string) {
	h.pub.Lock()
	defer h.pub.Unlock()
	h.publish(ctx, collection)
}

func (h *Hub) publish(ctx context.Context, collection string) {
	for _, sub := range h.matching(collection) {
		h.deliver(ctx, sub)
	}
}

func (h *Hub) matching(collection string) []*subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*subscriber
	for _, sub := range h.subs {
		if sub.collection == collection {
			out = append(out, sub)
		}
	}
	return out
}

// Collections returns the collections with at least one subscriber.
func (h *Hub) Collections() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, sub := range h.subs {
		if !seen[sub.collection] {
			seen[sub.collection] = true
			out = append(out, sub.collection)
		}
	}
	return out
}

func (h *Hub) deliver(ctx context.Context, sub *subscriber) {
	if sub.onDoc != nil {
		doc, err := h.source.Get(ctx, sub.collection, sub.key)
		switch {
		case errors.Is(err, ErrNotFound):
			sub.onDoc(Document{Key: sub.key}, false)
		case err != nil:
			sub.fail(err)
		default:
			sub.onDoc(doc, true)
		}
		return
	}
	docs, err := h.source.List(ctx, sub.collection)
	if err != nil {
		sub.fail(err)
		return
	}
	sub.onSnapshot(docs)
}

func (s *subscriber) fail(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

// Close drops every subscriber. Later subscriptions fail with ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.subs = make(map[int]*subscriber)
}
