package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, ttl, nil), mr
}

func TestRedisLockerIsExclusive(t *testing.T) {
	locker, mr := newRedisLocker(t, 30*time.Second)

	unlock, err := locker.Lock(context.Background(), "slot:ts1:a1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:slot:ts1:a1"))
	assert.Equal(t, 30*time.Second, mr.TTL("lock:slot:ts1:a1"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "slot:ts1:a1")
	assert.ErrorIs(t, err, ErrNotAcquired)

	unlock()
	assert.False(t, mr.Exists("lock:slot:ts1:a1"))

	again, err := locker.Lock(context.Background(), "slot:ts1:a1")
	require.NoError(t, err)
	again()
}

func TestRedisLockerReleaseKeepsOtherHoldersLock(t *testing.T) {
	locker, mr := newRedisLocker(t, time.Second)

	stale, err := locker.Lock(context.Background(), "booking:b1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)
	require.False(t, mr.Exists("lock:booking:b1"))

	current, err := locker.Lock(context.Background(), "booking:b1")
	require.NoError(t, err)
	token, err := mr.Get("lock:booking:b1")
	require.NoError(t, err)

	stale()
	got, err := mr.Get("lock:booking:b1")
	require.NoError(t, err)
	assert.Equal(t, token, got)

	current()
	assert.False(t, mr.Exists("lock:booking:b1"))
}

func TestRedisLockerHonoursCancelledContext(t *testing.T) {
	locker, _ := newRedisLocker(t, time.Second)
	held, err := locker.Lock(context.Background(), "class:c1:Wed")
	require.NoError(t, err)
	defer held()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locker.Lock(ctx, "class:c1:Wed")
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.ErrorIs(t, err, context.Canceled)
}
