package noncestore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStorePutConsume(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "nonce-1", "demo-store.myshopify.com"))

	shop, ok, err := store.Consume(ctx, "nonce-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "demo-store.myshopify.com", shop)

	_, ok, err = store.Consume(ctx, "nonce-1")
	require.NoError(t, err)
	assert.False(t, ok, "nonce is single use")
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "nonce-1", "demo-store.myshopify.com"))

	mr.FastForward(NonceTTL * 2)

	_, ok, err := store.Consume(ctx, "nonce-1")
	require.NoError(t, err)
	assert.False(t, ok, "expired nonce must not verify")
}

func TestRedisStoreUnknownNonce(t *testing.T) {
	store, _ := newTestRedisStore(t)

	_, ok, err := store.Consume(context.Background(), "never-stored")
	require.NoError(t, err)
	assert.False(t, ok)
}
