package noncestore

import (
	"context"
	"fmt"

	"pixelift/internal/ports"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "oauth:nonce:"

// RedisStore keeps nonces in Redis with a TTL, so OAuth state verification
// works across multiple server instances.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a nonce store backed by the given Redis client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

var _ ports.NonceStore = (*RedisStore)(nil)

// Put stores a nonce with the fixed TTL
func (s *RedisStore) Put(ctx context.Context, nonce string, shop string) error {
	if err := s.client.Set(ctx, keyPrefix+nonce, shop, NonceTTL).Err(); err != nil {
		return fmt.Errorf("failed to store nonce: %w", err)
	}
	return nil
}

// Consume atomically reads and deletes a nonce
func (s *RedisStore) Consume(ctx context.Context, nonce string) (string, bool, error) {
	shop, err := s.client.GetDel(ctx, keyPrefix+nonce).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to consume nonce: %w", err)
	}
	return shop, true, nil
}
