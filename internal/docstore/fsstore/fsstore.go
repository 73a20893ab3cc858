// Package fsstore is a docstore.Store that keeps one JSON file per document
// under a root directory: <root>/<collection>/<key>.json.
//
// Collection subscriptions watch the collection directory with fsnotify, so
// edits made by other processes (or by hand) are picked up after a short
// debounce.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/agenda/internal/docstore"
)

const (
	ext = ".json"

	// debounceDelay collapses bursts of filesystem events (temp file
	// create + rename) into one snapshot.
	debounceDelay = 100 * time.Millisecond
)

// Store is a directory-backed docstore.Store.
type Store struct {
	root    string
	hub     *docstore.Hub
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	closed  atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	mu       sync.Mutex
	watching map[string]string // dir -> collection
	timers   map[string]*time.Timer
}

// Open prepares root and starts the filesystem watcher.
func Open(root string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	s := &Store{
		root:     root,
		logger:   logger,
		watcher:  w,
		done:     make(chan struct{}),
		watching: make(map[string]string),
		timers:   make(map[string]*time.Timer),
	}
	s.hub = docstore.NewHub(s)

	s.wg.Add(1)
	go s.watch()
	return s, nil
}

func (s *Store) dir(collection string) string {
	return filepath.Join(s.root, filepath.FromSlash(collection))
}

func (s *Store) path(collection, key string) string {
	return filepath.Join(s.dir(collection), key+ext)
}

// Get implements docstore.Store.
func (s *Store) Get(_ context.Context, collection, key string) (docstore.Document, error) {
	if s.closed.Load() {
		return docstore.Document{}, docstore.ErrClosed
	}
	if err := docstore.ValidatePath(collection, key); err != nil {
		return docstore.Document{}, err
	}
	return readDoc(s.path(collection, key), key)
}

func readDoc(path, key string) (docstore.Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	doc := docstore.Document{Key: key, Data: data}
	if info, err := os.Stat(path); err == nil {
		doc.UpdatedAt = info.ModTime()
	}
	return doc, nil
}

// Set writes the document atomically (temp file + rename) and notifies
// subscribers.
func (s *Store) Set(ctx context.Context, collection, key string, data []byte) error {
	if err := docstore.ValidatePath(collection, key); err != nil {
		return err
	}
	return s.hub.Commit(ctx, collection, func() error {
		if s.closed.Load() {
			return docstore.ErrClosed
		}
		return writeAtomic(s.path(collection, key), data)
	})
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// List implements docstore.Store. Files not ending in .json are ignored.
func (s *Store) List(_ context.Context, collection string) ([]docstore.Document, error) {
	if s.closed.Load() {
		return nil, docstore.ErrClosed
	}
	if err := docstore.ValidatePath(collection, ""); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir(collection))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	var docs []docstore.Document
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ext) || strings.HasPrefix(name, ".") {
			continue
		}
		key := strings.TrimSuffix(name, ext)
		doc, err := readDoc(filepath.Join(s.dir(collection), name), key)
		if errors.Is(err, docstore.ErrNotFound) {
			continue // removed between ReadDir and ReadFile
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Key < docs[j].Key })
	return docs, nil
}

// Subscribe implements docstore.Store. The collection directory is created
// if needed and watched for external changes.
func (s *Store) Subscribe(ctx context.Context, collection string, onSnapshot docstore.SnapshotFunc, onError docstore.ErrorFunc) (docstore.Unsubscribe, error) {
	if err := s.watchCollection(collection); err != nil {
		return nil, err
	}
	return s.hub.Subscribe(ctx, collection, onSnapshot, onError)
}

// SubscribeDocument implements docstore.Store.
func (s *Store) SubscribeDocument(ctx context.Context, collection, key string, onDoc docstore.DocumentFunc, onError docstore.ErrorFunc) (docstore.Unsubscribe, error) {
	if err := s.watchCollection(collection); err != nil {
		return nil, err
	}
	return s.hub.SubscribeDocument(ctx, collection, key, onDoc, onError)
}

func (s *Store) watchCollection(collection string) error {
	if s.closed.Load() {
		return docstore.ErrClosed
	}
	if err := docstore.ValidatePath(collection, ""); err != nil {
		return err
	}
	dir := s.dir(collection)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watching[dir]; ok {
		return nil
	}
	if err := s.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	s.watching[dir] = collection
	return nil
}

func (s *Store) watch() {
	defer s.wg.Done()
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ext) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			s.schedule(filepath.Dir(event.Name))

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("fsstore watcher error", "error", err)

		case <-s.done:
			return
		}
	}
}

// schedule (re)arms the debounce timer for dir.
func (s *Store) schedule(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	collection, ok := s.watching[dir]
	if !ok {
		return
	}
	if t, exists := s.timers[dir]; exists {
		t.Stop()
	}
	s.timers[dir] = time.AfterFunc(debounceDelay, func() {
		s.mu.Lock()
		delete(s.timers, dir)
		s.mu.Unlock()
		if s.closed.Load() {
			return
		}
		s.logger.Debug("fsstore collection changed", "collection", collection)
		s.hub.Publish(context.Background(), collection)
	})
}

// Close stops the watcher and drops subscribers.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)
	err := s.watcher.Close()
	s.wg.Wait()

	s.mu.Lock()
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = make(map[string]*time.Timer)
	s.mu.Unlock()

	s.hub.Close()
	return err
}
