package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absolutastore/storefront-backend/pkg/storage"
)

func newMiniredisClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return NewWithClient(raw), mr
}

func TestStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, mr := newMiniredisClient(t)
	store := client.Storage(0)

	_, err := store.Get(ctx, "absoluta_cart.v1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Set(ctx, "absoluta_cart.v1", []byte(`[{"id":1}]`)))
	raw, err := mr.Get("sf:kv:absoluta_cart.v1")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, raw)

	got, err := store.Get(ctx, "absoluta_cart.v1")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(got))

	require.NoError(t, store.Delete(ctx, "absoluta_cart.v1"))
	_, err = store.Get(ctx, "absoluta_cart.v1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorageAppliesTTL(t *testing.T) {
	ctx := context.Background()
	client, mr := newMiniredisClient(t)
	store := client.Storage(time.Hour)

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	assert.Equal(t, time.Hour, mr.TTL("sf:kv:k"))

	mr.FastForward(2 * time.Hour)
	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorageWithNamespace(t *testing.T) {
	ctx := context.Background()
	client, mr := newMiniredisClient(t)
	scoped := storage.Namespaced(client.Storage(0), "session-42")

	require.NoError(t, scoped.Set(ctx, "absoluta_cart.v1", []byte("[]")))
	assert.True(t, mr.Exists("sf:kv:session-42:absoluta_cart.v1"))
}

func TestSetUnlessPrefixed(t *testing.T) {
	ctx := context.Background()
	client, mr := newMiniredisClient(t)

	written, err := client.SetUnlessPrefixed(ctx, "k", "submitting:", "submitting:a", time.Minute)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = client.SetUnlessPrefixed(ctx, "k", "submitting:", "submitting:b", time.Minute)
	require.NoError(t, err)
	assert.False(t, written)
	got, _ := mr.Get("k")
	assert.Equal(t, "submitting:a", got)

	require.NoError(t, mr.Set("k", "redirecting"))
	written, err = client.SetUnlessPrefixed(ctx, "k", "submitting:", "submitting:c", time.Minute)
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	_, err = client.SetUnlessPrefixed(ctx, "k", "submitting:", "x", 0)
	assert.Error(t, err)
}

func TestCompareAndSet(t *testing.T) {
	ctx := context.Background()
	client, mr := newMiniredisClient(t)

	written, err := client.CompareAndSet(ctx, "k", "submitting:a", "failed", time.Minute)
	require.NoError(t, err)
	assert.False(t, written, "missing key is not overwritten")
	assert.False(t, mr.Exists("k"))

	require.NoError(t, mr.Set("k", "submitting:b"))
	written, err = client.CompareAndSet(ctx, "k", "submitting:a", "failed", time.Minute)
	require.NoError(t, err)
	assert.False(t, written)

	written, err = client.CompareAndSet(ctx, "k", "submitting:b", "redirecting", time.Minute)
	require.NoError(t, err)
	assert.True(t, written)
	got, _ := mr.Get("k")
	assert.Equal(t, "redirecting", got)
}
