// Package cache keeps acknowledged notification keys in Redis so that
// acknowledgements survive restarts and are shared between instances.
package cache

import (
	"context"
	"fmt"
	"time"

	"csrdesk/config"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "csrdesk:ack:"

// RedisAckStore implements notify.AckStore.
type RedisAckStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAckStore(client *redis.Client, ttl time.Duration) *RedisAckStore {
	return &RedisAckStore{client: client, ttl: ttl}
}

// Connect opens a client from configuration and verifies it with PING.
func Connect(ctx context.Context, rc config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", rc.Addr, err)
	}
	return client, nil
}

func (s *RedisAckStore) IsAcked(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check ack %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *RedisAckStore) MarkAcked(ctx context.Context, key string) error {
	if err := s.client.Set(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store ack %s: %w", key, err)
	}
	return nil
}
