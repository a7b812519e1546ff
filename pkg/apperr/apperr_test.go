package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	err := New(CodeNotFound, "order not found")
	assert.Equal(t, CodeNotFound, CodeOf(err))

	wrapped := fmt.Errorf("handling request: %w", err)
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))

	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.True(t, IsCode(wrapped, CodeNotFound))
	assert.False(t, IsCode(wrapped, CodeUnavailable))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "product service unreachable")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeUnavailable, CodeOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWithDetail(t *testing.T) {
	err := Newf(CodeFailedPrecondition, "insufficient stock for product %s", "p-1").
		WithDetail("requested", int32(5)).
		WithDetail("available", int64(3))

	requested, ok := DetailOf(err, "requested")
	require.True(t, ok)
	assert.Equal(t, int32(5), requested)

	available, ok := DetailOf(fmt.Errorf("checkout: %w", err), "available")
	require.True(t, ok)
	assert.Equal(t, int64(3), available)

	_, ok = DetailOf(err, "missing")
	assert.False(t, ok)
}
