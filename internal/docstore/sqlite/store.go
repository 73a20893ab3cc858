// Package sqlite is a docstore.Store backed by a single SQLite file.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// Subscriptions are in-process only: another process writing the same file
// is not observed until this process writes to the collection itself.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/agenda/internal/docstore"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on documents(collection, updated_at)
const currentSchemaVersion = 1

// Store is a docstore.Store persisted in SQLite.
type Store struct {
	db     *sql.DB
	hub    *docstore.Hub
	now    func() time.Time
	closed atomic.Bool
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	s.hub = docstore.NewHub(s)
	return s, nil
}

// Close closes the database connection and drops subscribers.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.hub.Close()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, collection, key string) (docstore.Document, error) {
	if s.closed.Load() {
		return docstore.Document{}, docstore.ErrClosed
	}
	var (
		doc     = docstore.Document{Key: key}
		updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM documents WHERE collection = ? AND key = ?`,
		collection, key,
	).Scan(&doc.Data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	doc.UpdatedAt = parseTime(updated)
	return doc, nil
}

// Set replaces the document and notifies in-process subscribers.
func (s *Store) Set(ctx context.Context, collection, key string, data []byte) error {
	if err := docstore.ValidatePath(collection, key); err != nil {
		return err
	}
	return s.hub.Commit(ctx, collection, func() error {
		if s.closed.Load() {
			return docstore.ErrClosed
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO documents (collection, key, data, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (collection, key) DO UPDATE SET
				data = excluded.data,
				updated_at = excluded.updated_at
		`, collection, key, data, s.now().UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("set %s/%s: %w", collection, key, err)
		}
		return nil
	})
}

// List returns the collection ordered by key.
// Uses COLLATE BINARY for deterministic ordering.
func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	if s.closed.Load() {
		return nil, docstore.ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, data, updated_at FROM documents
		WHERE collection = ?
		ORDER BY key COLLATE BINARY ASC
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var (
			doc     docstore.Document
			updated string
		)
		if err := rows.Scan(&doc.Key, &doc.Data, &updated); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		doc.UpdatedAt = parseTime(updated)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return docs, nil
}

// Subscribe implements docstore.Store.
func (s *Store) Subscribe(ctx context.Context, collection string, onSnapshot docstore.SnapshotFunc, onError docstore.ErrorFunc) (docstore.Unsubscribe, error) {
	return s.hub.Subscribe(ctx, collection, onSnapshot, onError)
}

// SubscribeDocument implements docstore.Store.
func (s *Store) SubscribeDocument(ctx context.Context, collection, key string, onDoc docstore.DocumentFunc, onError docstore.ErrorFunc) (docstore.Unsubscribe, error) {
	return s.hub.SubscribeDocument(ctx, collection, key, onDoc, onError)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 indexes documents by modification time for history listings.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_documents_updated
		ON documents(collection, updated_at)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
