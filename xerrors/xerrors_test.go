package xerrors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesChain(t *testing.T) {
	base := New("base failure")
	wrapped := Wrap(base, "outer context")

	require.Error(t, wrapped)
	assert.True(t, Is(wrapped, base))
	assert.Contains(t, wrapped.Error(), "outer context")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
}

func TestWrapfFormats(t *testing.T) {
	base := New("base")
	wrapped := Wrapf(base, "key: %s", "orders")

	assert.Contains(t, wrapped.Error(), "key: orders")
	assert.True(t, Is(wrapped, base))
}

func TestCombine(t *testing.T) {
	e1 := New("first")
	e2 := New("second")

	assert.Nil(t, Combine(nil, nil))
	assert.Equal(t, e1, Combine(nil, e1))

	combined := Combine(e1, nil, e2)
	assert.True(t, Is(combined, e1))
	assert.True(t, Is(combined, e2))
}
