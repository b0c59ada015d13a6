package replay

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "totp:used:"
	defaultRedisTTL    = 6 * time.Minute
)

// Redis is a Guard backed by redis keys that expire after ttl.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption customizes a Redis guard.
type RedisOption func(*Redis)

// WithRedisPrefix overrides the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithRedisTTL sets how long a used-code record is kept. Zero keeps the default.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl != 0 {
			r.ttl = ttl
		}
	}
}

// NewRedis builds a Redis guard.
func NewRedis(client *redis.Client, opts ...RedisOption) (*Redis, error) {
	if client == nil {
		return nil, ErrRedisClientRequired
	}

	r := &Redis{
		client: client,
		prefix: defaultRedisPrefix,
		ttl:    defaultRedisTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.ttl <= 0 {
		return nil, ErrInvalidTTL
	}

	return r, nil
}

func (r *Redis) key(bucket uint64, code, userID string) string {
	return r.prefix + recordKey(bucket, code, userID)
}

// IsUsed reports whether the key exists.
func (r *Redis) IsUsed(ctx context.Context, bucket uint64, code, userID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(bucket, code, userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkUsed writes the key, refreshing its TTL if it already exists.
func (r *Redis) MarkUsed(ctx context.Context, bucket uint64, code, userID string) error {
	return r.client.Set(ctx, r.key(bucket, code, userID), "1", r.ttl).Err()
}

// Use relies on SETNX so only the first writer wins.
func (r *Redis) Use(ctx context.Context, bucket uint64, code, userID string) (bool, error) {
	return r.client.SetNX(ctx, r.key(bucket, code, userID), "1", r.ttl).Result()
}
