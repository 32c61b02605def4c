package ratelimit

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWindow(t *testing.T, limit int, size time.Duration) (*Window, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	w, err := NewWindow(client, "test:rl", limit, size)
	require.NoError(t, err)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }
	return w, mr
}

func TestWindowTakeCountsDown(t *testing.T) {
	w, _ := newWindow(t, 2, time.Minute)
	ctx := context.Background()

	q, err := w.Take(ctx, "login", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, q.Allowed)
	assert.Equal(t, 1, q.Remaining)
	assert.Equal(t, 2, q.Limit)
	assert.LessOrEqual(t, q.RetryAfter, time.Minute)
	assert.Greater(t, q.RetryAfter, time.Duration(0))

	q, err = w.Take(ctx, "login", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, q.Allowed)
	assert.Equal(t, 0, q.Remaining)

	q, err = w.Take(ctx, "login", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, q.Allowed)
	assert.Equal(t, 0, q.Remaining)
}

func TestWindowScopesAndSubjectsAreIndependent(t *testing.T) {
	w, _ := newWindow(t, 1, time.Minute)
	ctx := context.Background()

	q, err := w.Take(ctx, "login", "10.0.0.1")
	require.NoError(t, err)
	require.True(t, q.Allowed)

	q, err = w.Take(ctx, "signup", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, q.Allowed)

	q, err = w.Take(ctx, "login", "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, q.Allowed)
}

func TestWindowKeyLayout(t *testing.T) {
	w, mr := newWindow(t, 5, time.Minute)
	_, err := w.Take(context.Background(), "login", "10.0.0.1")
	require.NoError(t, err)

	slot := w.now().UnixMilli() / time.Minute.Milliseconds()
	key := "test:rl:login:10.0.0.1:" + itoa(slot)
	assert.True(t, mr.Exists(key), "keys: %v", mr.Keys())
	assert.Greater(t, mr.TTL(key), time.Duration(0))
}

func TestWindowResetsInNextSlot(t *testing.T) {
	w, _ := newWindow(t, 1, time.Minute)
	ctx := context.Background()

	_, err := w.Take(ctx, "login", "ip")
	require.NoError(t, err)
	q, err := w.Take(ctx, "login", "ip")
	require.NoError(t, err)
	require.False(t, q.Allowed)

	later := w.now().Add(time.Minute)
	w.now = func() time.Time { return later }
	q, err = w.Take(ctx, "login", "ip")
	require.NoError(t, err)
	assert.True(t, q.Allowed)
}

func TestWindowRedisDownDenies(t *testing.T) {
	w, mr := newWindow(t, 1, time.Second)
	mr.Close()

	q, err := w.Take(context.Background(), "login", "ip")
	assert.Error(t, err)
	assert.False(t, q.Allowed)
}

func TestNewWindowValidation(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { client.Close() })

	_, err := NewWindow(nil, "", 1, time.Second)
	assert.Error(t, err)
	_, err = NewWindow(client, "", 0, time.Second)
	assert.Error(t, err)
	_, err = NewWindow(client, "", 1, time.Microsecond)
	assert.Error(t, err)

	w, err := NewWindow(client, " :app: ", 1, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "app", w.prefix)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
