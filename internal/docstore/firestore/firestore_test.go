package firestore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agenda/internal/docstore"
)

func TestFieldsRoundTrip(t *testing.T) {
	in := []byte(`{"version":2,"buckets":{"morning":[{"id":"a","label":"Gym"}]},"amount":"10.50"}`)

	fields, err := toFields(in)
	require.NoError(t, err)

	out, err := fromFields(fields)
	require.NoError(t, err)
	assert.JSONEq(t, string(in), string(out))
}

func TestToFields_RejectsNonObject(t *testing.T) {
	_, err := toFields([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestFromFields_Timestamps(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600))

	out, err := fromFields(map[string]any{"updatedAt": ts, "nested": []any{map[string]any{"at": ts}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"updatedAt":"2024-05-01T15:00:00Z","nested":[{"at":"2024-05-01T15:00:00Z"}]}`, string(out))
}

// TestEmulator runs against a local emulator when FIRESTORE_EMULATOR_HOST is
// set.
func TestEmulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()

	s, err := Open(ctx, "agenda-test", nil)
	require.NoError(t, err)
	defer s.Close()

	coll := "users/emulator-" + time.Now().Format("150405.000000") + "/agenda"

	got := make(chan int, 8)
	unsub, err := s.Subscribe(ctx, coll, func(docs []docstore.Document) { got <- len(docs) }, nil)
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, s.Set(ctx, coll, "2024-05-01", []byte(`{"version":2}`)))

	doc, err := s.Get(ctx, coll, "2024-05-01")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":2}`, string(doc.Data))

	_, err = s.Get(ctx, coll, "2024-05-02")
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	assert.Eventually(t, func() bool {
		select {
		case n := <-got:
			return n == 1
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)
}
