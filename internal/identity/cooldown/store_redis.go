package cooldown

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const cooldownKeyPrefix = "ulc:"

// RedisStorage keeps cooldown entries as expiring marker keys. Key existence
// is the entry; Redis expiry is the deadline, so reads never race a sweeper.
// This is the production implementation for multi-instance deployments.
type RedisStorage struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed cooldown storage.
func NewRedis(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client}
}

func (r *RedisStorage) CanUnlink(ctx context.Context, userID string) (bool, error) {
	n, err := r.client.Exists(ctx, cooldownKeyPrefix+userID).Result()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Refresh overwrites any existing entry. SET with EX is a single atomic
// write, so concurrent refreshes resolve last-writer-wins.
func (r *RedisStorage) Refresh(ctx context.Context, userID string, ttl time.Duration) error {
	key := cooldownKeyPrefix + userID
	if ttl <= 0 {
		return r.client.Del(ctx, key).Err()
	}
	// Store "1" as a simple marker; the key existence is what matters.
	return r.client.Set(ctx, key, "1", ttl).Err()
}
