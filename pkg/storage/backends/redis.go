package backends

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwcomptech/gofetch/pkg/storage"
)

// RedisBackend caches values in Redis. Expiry is delegated to Redis TTLs.
type RedisBackend struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds connection settings for a Redis backend.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(ctx context.Context, config *RedisConfig) (*RedisBackend, error) {
	if config == nil || config.Addr == "" {
		return nil, storage.ErrInvalidConfig
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, err
	}

	return &RedisBackend{
		client:    client,
		keyPrefix: config.KeyPrefix,
	}, nil
}

func (b *RedisBackend) redisKey(key string) string {
	return b.keyPrefix + key
}

// Get retrieves the cached value for key.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := b.client.Get(ctx, b.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrKeyNotFound
		}

		return nil, err
	}

	return value, nil
}

// Set stores value under key. A zero ttl stores the value without expiry.
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.client.Set(ctx, b.redisKey(key), value, ttl).Err()
}

// Delete removes the entry for key.
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, b.redisKey(key)).Err()
}

// Exists reports whether a live entry exists for key.
func (b *RedisBackend) Exists(ctx context.Context, key string) (bool, error) {
	count, err := b.client.Exists(ctx, b.redisKey(key)).Result()
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// Close closes the Redis connection.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
