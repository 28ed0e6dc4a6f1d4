package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetMissing(t *testing.T) {
	_, err := NewMemory().Get(context.Background(), "missing")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestMemorySetCopiesValue(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	value := []byte("abc")
	require.NoError(t, mem.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'z'
	again, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	require.NoError(t, mem.Set(ctx, "k", []byte("v")))
	require.NoError(t, mem.Delete(ctx, "k"))
	require.NoError(t, mem.Delete(ctx, "k"))

	_, err := mem.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNamespacedIsolatesSessions(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	first := Namespaced(mem, "session-a")
	second := Namespaced(mem, "session-b")

	require.NoError(t, first.Set(ctx, "cart", []byte("a")))
	require.NoError(t, second.Set(ctx, "cart", []byte("b")))

	got, err := first.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))

	raw, err := mem.Get(ctx, "session-b:cart")
	require.NoError(t, err)
	assert.Equal(t, "b", string(raw))

	require.NoError(t, first.Delete(ctx, "cart"))
	_, err = first.Get(ctx, "cart")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = second.Get(ctx, "cart")
	assert.NoError(t, err)
}

func TestNamespacedEmptyNamespaceReturnsInner(t *testing.T) {
	mem := NewMemory()
	assert.Same(t, mem, Namespaced(mem, "  "))
}
