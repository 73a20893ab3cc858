package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Format(t *testing.T) {
	cause := errors.New("disk full")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"message only", &Error{Code: CodeValidation, Op: "add item", Message: "label is required"}, "VALIDATION: add item: label is required"},
		{"cause only", &Error{Code: CodeWriteFailed, Op: "add item", Err: cause}, "WRITE_FAILED: add item: disk full"},
		{"both", &Error{Code: CodeWriteFailed, Op: "add item", Message: "saving", Err: cause}, "WRITE_FAILED: add item: saving: disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Predicates(t *testing.T) {
	cause := errors.New("boom")
	wrapped := fmt.Errorf("outer: %w", &Error{Code: CodeWriteFailed, Op: "x", Err: cause})

	assert.True(t, IsWriteFailed(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.ErrorIs(t, wrapped, cause)

	assert.True(t, IsValidation(validationError("op", "bad %d", 1)))
	assert.True(t, IsNotFound(notFoundError("op", "item", "i1")))
	assert.True(t, IsClosed(ErrClosed))
	assert.True(t, IsClosed(&Error{Code: CodeClosed}))
	assert.False(t, IsSubscription(nil))
}

func TestPathsFor(t *testing.T) {
	p, err := PathsFor("ana")
	require.NoError(t, err)
	assert.Equal(t, Paths{
		Agenda:   "users/ana/agenda",
		Finances: "users/ana/finances",
		Meta:     "users/ana/meta",
	}, p)

	for _, bad := range []string{"", "..", "a/b"} {
		_, err := PathsFor(bad)
		assert.Error(t, err, "actor %q", bad)
	}
}
