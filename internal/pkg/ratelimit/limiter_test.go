package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, max int64) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLimiter(client, "payment_submit", max, time.Hour), mr
}

func TestLimiter_AllowsUpToMax(t *testing.T) {
	l, _ := newLimiter(t, 2)
	ctx := context.Background()

	ok, remaining, err := l.Allow(ctx, "10")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), remaining)

	ok, remaining, err = l.Allow(ctx, "10")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(0), remaining)

	ok, _, err = l.Allow(ctx, "10")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _, err = l.Allow(ctx, "11")
	require.NoError(t, err)
	assert.True(t, ok, "subjects are counted separately")
}

func TestLimiter_WindowExpires(t *testing.T) {
	l, mr := newLimiter(t, 1)
	ctx := context.Background()

	_, _, err := l.Allow(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("ratelimit:payment_submit:10"))

	ok, _, _ := l.Allow(ctx, "10")
	assert.False(t, ok)

	mr.FastForward(time.Hour + time.Second)
	ok, _, err = l.Allow(ctx, "10")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiter_RemainingAndReset(t *testing.T) {
	l, _ := newLimiter(t, 3)
	ctx := context.Background()

	remaining, err := l.Remaining(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, int64(3), remaining)

	_, _, _ = l.Allow(ctx, "10")
	remaining, _ = l.Remaining(ctx, "10")
	assert.Equal(t, int64(2), remaining)

	require.NoError(t, l.Reset(ctx, "10"))
	remaining, _ = l.Remaining(ctx, "10")
	assert.Equal(t, int64(3), remaining)
}
