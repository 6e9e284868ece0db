package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisSessionRepository struct {
	client    redis.Cmdable
	prefix    string
	retention time.Duration
}

// NewRedisSessionRepository stores each session key as "<prefix>:<scope>:<key>". A non-zero
// retention is applied as key TTL so abandoned scopes are collected by Redis.
func NewRedisSessionRepository(client redis.Cmdable, prefix string, retention time.Duration) SessionRepository {
	return &redisSessionRepository{client: client, prefix: prefix, retention: retention}
}

func (r *redisSessionRepository) key(scope, key string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, scope, key)
}

func (r *redisSessionRepository) Get(ctx context.Context, scope, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.key(scope, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *redisSessionRepository) Set(ctx context.Context, scope, key, value string) error {
	if err := r.client.Set(ctx, r.key(scope, key), value, r.retention).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *redisSessionRepository) Delete(ctx context.Context, scope string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, r.key(scope, key))
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
