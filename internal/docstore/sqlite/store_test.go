package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agenda/internal/docstore"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agenda.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	_, path := openTemp(t)

	_, err := os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agenda.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_Pragmas(t *testing.T) {
	s, _ := openTemp(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
}

func TestSetOverwritesWholesale(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)

	require.NoError(t, s.Set(ctx, "users/a/agenda", "2024-05-01", []byte(`{"a":1,"b":2}`)))
	require.NoError(t, s.Set(ctx, "users/a/agenda", "2024-05-01", []byte(`{"a":3}`)))

	doc, err := s.Get(ctx, "users/a/agenda", "2024-05-01")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":3}`, string(doc.Data))
	assert.False(t, doc.UpdatedAt.IsZero())
}

func TestGet_NotFound(t *testing.T) {
	s, _ := openTemp(t)

	_, err := s.Get(context.Background(), "users/a/agenda", "2024-05-01")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestList_OrderedAndScoped(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)

	require.NoError(t, s.Set(ctx, "users/a/finances", "2024-06", []byte(`{}`)))
	require.NoError(t, s.Set(ctx, "users/a/finances", "2024-04", []byte(`{}`)))
	require.NoError(t, s.Set(ctx, "users/b/finances", "2024-05", []byte(`{}`)))

	docs, err := s.List(ctx, "users/a/finances")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "2024-04", docs[0].Key)
	assert.Equal(t, "2024-06", docs[1].Key)
}

func TestSubscribe_SeesWrites(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)

	var sizes []int
	unsub, err := s.Subscribe(ctx, "users/a/agenda", func(docs []docstore.Document) {
		sizes = append(sizes, len(docs))
	}, nil)
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, s.Set(ctx, "users/a/agenda", "2024-05-01", []byte(`{}`)))
	require.NoError(t, s.Set(ctx, "users/a/agenda", "2024-05-02", []byte(`{}`)))

	assert.Equal(t, []int{0, 1, 2}, sizes)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "agenda.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "c", "k", []byte(`{"x":true}`)))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	doc, err := s2.Get(ctx, "c", "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":true}`, string(doc.Data))
}

func TestClosed(t *testing.T) {
	s, _ := openTemp(t)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Set(context.Background(), "c", "k", []byte(`{}`)), docstore.ErrClosed)
	_, err := s.List(context.Background(), "c")
	assert.ErrorIs(t, err, docstore.ErrClosed)
}
