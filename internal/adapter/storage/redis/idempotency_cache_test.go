package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*IdempotencyCache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewIdempotencyCache(client), s
}

func TestIdempotencyCache_SetAndGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	key := "submission:v-12345678:form-1"
	value := []byte(`{"record":{"id":"PAY-ABC123XYZ"}}`)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	require.NoError(t, cache.Set(ctx, key, value, 24*time.Hour))

	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)
}

func TestIdempotencyCache_TTLExpiry(t *testing.T) {
	cache, s := newTestCache(t)
	ctx := context.Background()

	key := "submission:v-1:form-2"
	require.NoError(t, cache.Set(ctx, key, []byte(`{}`), time.Second))

	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestIdempotencyCache_ClaimIsExclusive(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	key := "submission:v-1:form-3"

	ok, err := cache.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second claim must fail")

	result, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, result, "a claim is not an entry")
}

func TestIdempotencyCache_ClaimFailsOnStoredEntry(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	key := "submission:v-1:form-4"

	require.NoError(t, cache.Set(ctx, key, []byte(`{"ok":true}`), time.Minute))

	ok, err := cache.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdempotencyCache_ReleaseOnlyDropsClaims(t *testing.T) {
	cache, s := newTestCache(t)
	ctx := context.Background()

	claimed := "submission:v-1:claimed"
	ok, err := cache.Claim(ctx, claimed, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, cache.Release(ctx, claimed))
	assert.False(t, s.Exists("idempotency:"+claimed))

	done := "submission:v-1:done"
	require.NoError(t, cache.Set(ctx, done, []byte(`{"ok":true}`), time.Minute))
	require.NoError(t, cache.Release(ctx, done))
	assert.True(t, s.Exists("idempotency:"+done))
}

func TestIdempotencyCache_RedisDown(t *testing.T) {
	cache, s := newTestCache(t)
	s.Close()

	_, err := cache.Get(context.Background(), "k")
	assert.Error(t, err)
	_, err = cache.Claim(context.Background(), "k", time.Minute)
	assert.Error(t, err)
}
