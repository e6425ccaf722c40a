package ormerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	err := New(CodeColumnNotNullable, "Author", "name", "value is empty")

	assert.True(t, errors.Is(err, ErrColumnNotNullable))
	assert.False(t, errors.Is(err, ErrUnsupportedFieldType))

	wrapped := fmt.Errorf("insert: %w", err)
	assert.True(t, errors.Is(wrapped, ErrColumnNotNullable))
	assert.Equal(t, CodeColumnNotNullable, CodeOf(wrapped))
}

func TestErrorMessageNamesEntityColumnAndCycle(t *testing.T) {
	err := New(CodeUnsupportedFieldType, "Book", "price", "kind %s", "decimal")
	assert.Equal(t, "unsupported_field_type: Book.price: kind decimal", err.Error())

	cyc := Cycle([]string{"A", "B", "A"}, "")
	assert.Equal(t, "circular_dependency: A -> B -> A", cyc.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeBatchFailed, "Book", "", cause)

	require.ErrorIs(t, err, cause)
	require.ErrorIs(t, err, ErrBatchFailed)
	assert.Equal(t, Code(""), CodeOf(cause))
}
