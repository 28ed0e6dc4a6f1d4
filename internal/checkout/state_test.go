package checkout

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absolutastore/storefront-backend/pkg/redis"
)

func newRedisTracker(t *testing.T, ttl time.Duration) (*RedisTracker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })

	tracker, err := NewRedisTracker(redis.NewWithClient(raw), ttl)
	require.NoError(t, err)
	return tracker, mr
}

func exerciseTracker(t *testing.T, tracker Tracker) {
	t.Helper()
	ctx := context.Background()

	state, err := tracker.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, state)

	first, err := tracker.Begin(ctx, "s1")
	require.NoError(t, err)
	require.NotEmpty(t, first)
	_, err = tracker.Begin(ctx, "s1")
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
	_, err = tracker.Begin(ctx, "s2")
	require.NoError(t, err, "sessions are independent")

	state, err = tracker.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateSubmitting, state)

	require.NoError(t, tracker.Finish(ctx, "s1", first, StateFailed))
	state, err = tracker.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, state)

	second, err := tracker.Begin(ctx, "s1")
	require.NoError(t, err, "failed attempts can be retried")
	assert.NotEqual(t, first, second)
	require.NoError(t, tracker.Finish(ctx, "s1", second, StateRedirecting))
	state, err = tracker.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateRedirecting, state)

	require.NoError(t, tracker.Finish(ctx, "s1", first, StateFailed), "a stale attempt finishing is ignored")
	state, err = tracker.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateRedirecting, state)
}

func TestMemoryTracker(t *testing.T) {
	exerciseTracker(t, NewMemoryTracker())
}

func TestRedisTracker(t *testing.T) {
	tracker, mr := newRedisTracker(t, time.Minute)
	exerciseTracker(t, tracker)
	assert.True(t, mr.Exists("sf:checkout:s1"))
}

func TestRedisTrackerSubmittingMarkerExpires(t *testing.T) {
	tracker, mr := newRedisTracker(t, 30*time.Second)
	ctx := context.Background()

	_, err := tracker.Begin(ctx, "s1")
	require.NoError(t, err)
	_, err = tracker.Begin(ctx, "s1")
	assert.ErrorIs(t, err, ErrCheckoutInProgress)

	mr.FastForward(31 * time.Second)
	_, err = tracker.Begin(ctx, "s1")
	assert.NoError(t, err)
}

func TestRedisTrackerExpiredAttemptDoesNotOverwriteNewer(t *testing.T) {
	tracker, mr := newRedisTracker(t, 30*time.Second)
	ctx := context.Background()

	slow, err := tracker.Begin(ctx, "s1")
	require.NoError(t, err)
	mr.FastForward(31 * time.Second)
	fresh, err := tracker.Begin(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, tracker.Finish(ctx, "s1", slow, StateFailed))
	state, err := tracker.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateSubmitting, state)
	_, err = tracker.Begin(ctx, "s1")
	assert.ErrorIs(t, err, ErrCheckoutInProgress, "the newer attempt still holds the session")

	require.NoError(t, tracker.Finish(ctx, "s1", fresh, StateRedirecting))
	state, err = tracker.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateRedirecting, state)
}

func TestRedisTrackerOneSubmitterAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	var trackers []*RedisTracker
	for i := 0; i < 4; i++ {
		raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = raw.Close() })
		tracker, err := NewRedisTracker(redis.NewWithClient(raw), time.Minute)
		require.NoError(t, err)
		trackers = append(trackers, tracker)
	}
	require.NoError(t, mr.Set("sf:checkout:s1", string(StateRedirecting)))

	var (
		wg  sync.WaitGroup
		won atomic.Int32
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(tracker *RedisTracker) {
			defer wg.Done()
			if _, err := tracker.Begin(ctx, "s1"); err == nil {
				won.Add(1)
			}
		}(trackers[i%len(trackers)])
	}
	wg.Wait()

	assert.Equal(t, int32(1), won.Load())
}

func TestNewRedisTrackerValidation(t *testing.T) {
	_, err := NewRedisTracker(nil, time.Minute)
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = raw.Close() }()
	_, err = NewRedisTracker(redis.NewWithClient(raw), 0)
	assert.Error(t, err)
}
