package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mavencrawler/shared/infrastructure/observability/adapters/noop"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewFromClient(client, time.Hour, noop.Logger{}, noop.Metrics{}), mr
}

func TestInFlightMarkers(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()
	key := "log4j:log4j:https://repo1.maven.org/maven2:1.2.17"

	ok, err := r.Mark(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Mark(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "second mark is suppressed")

	assert.Equal(t, time.Hour, mr.TTL(inFlightPrefix+key))

	require.NoError(t, r.Clear(ctx, key))
	ok, err = r.Mark(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInFlightMarkerExpires(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	_, err := r.Mark(ctx, "k")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	ok, err := r.Mark(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLease(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()
	root := "https://repo1.maven.org/maven2"

	release, ok, err := r.Acquire(ctx, root, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = r.Acquire(ctx, root, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lease is exclusive")

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists(leasePrefix+root))

	_, ok, err = r.Acquire(ctx, root, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStaleReleaseKeepsNewHolder(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	staleRelease, ok, err := r.Acquire(ctx, "root", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = r.Acquire(ctx, "root", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, staleRelease(ctx))
	assert.True(t, mr.Exists(leasePrefix+"root"), "new holder's lease survives")
}
