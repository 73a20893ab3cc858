package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agenda/internal/docstore"
)

func TestGetSet(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	_, err := s.Get(ctx, "users/a/agenda", "2024-05-01")
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	require.NoError(t, s.Set(ctx, "users/a/agenda", "2024-05-01", []byte(`{"v":1}`)))
	require.NoError(t, s.Set(ctx, "users/a/agenda", "2024-05-01", []byte(`{"v":2}`)))

	doc, err := s.Get(ctx, "users/a/agenda", "2024-05-01")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(doc.Data))
}

func TestListOrdered(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, k := range []string{"2024-05-03", "2024-05-01", "2024-05-02"} {
		require.NoError(t, s.Set(ctx, "c", k, []byte(`{}`)))
	}

	docs, err := s.List(ctx, "c")
	require.NoError(t, err)
	var keys []string
	for _, d := range docs {
		keys = append(keys, d.Key)
	}
	assert.Equal(t, []string{"2024-05-01", "2024-05-02", "2024-05-03"}, keys)
}

func TestSubscribe_InitialAndOnWrite(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Set(ctx, "c", "a", []byte(`{}`)))

	var snapshots [][]docstore.Document
	unsub, err := s.Subscribe(ctx, "c", func(docs []docstore.Document) {
		snapshots = append(snapshots, docs)
	}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "c", "b", []byte(`{}`)))
	require.NoError(t, s.Set(ctx, "other", "x", []byte(`{}`)))

	require.Len(t, snapshots, 2)
	assert.Len(t, snapshots[0], 1)
	assert.Len(t, snapshots[1], 2)

	unsub()
	unsub()
	require.NoError(t, s.Set(ctx, "c", "c", []byte(`{}`)))
	assert.Len(t, snapshots, 2)
}

func TestSubscribeDocument(t *testing.T) {
	ctx := context.Background()
	s := New()

	var seen []bool
	_, err := s.SubscribeDocument(ctx, "meta", "specialDates", func(doc docstore.Document, exists bool) {
		seen = append(seen, exists)
	}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "meta", "specialDates", []byte(`{"dates":[]}`)))
	assert.Equal(t, []bool{false, true}, seen)
}

func TestSetFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("offline")
	s := New(WithSetFailure(func(collection, key string) error { return boom }))

	calls := 0
	_, err := s.Subscribe(ctx, "c", func([]docstore.Document) { calls++ }, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Set(ctx, "c", "a", []byte(`{}`)), boom)
	assert.Equal(t, 1, calls, "failed write publishes nothing")
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Set(ctx, "c", "a", []byte(`{}`)), docstore.ErrClosed)
	_, err := s.Subscribe(ctx, "c", func([]docstore.Document) {}, nil)
	assert.ErrorIs(t, err, docstore.ErrClosed)
}

func TestInvalidPath(t *testing.T) {
	s := New()
	assert.Error(t, s.Set(context.Background(), "c", "../escape", []byte(`{}`)))
	assert.Error(t, s.Set(context.Background(), "a//b", "k", []byte(`{}`)))
}
