package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"worldnews/internal/observability"

	"github.com/redis/go-redis/v9"
)

// GetJSON loads key into dest. It reports false on a miss or when rdb is nil.
func GetJSON(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	raw, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key. A zero ttl keeps the key until it is overwritten.
func SetJSON(ctx context.Context, rdb *redis.Client, key string, v any, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, b, ttl).Err()
}

// Aside serves dest from Redis when present; otherwise fetch fills dest and the
// result is stored with ttl. Cache errors never fail the read.
func Aside(ctx context.Context, rdb *redis.Client, family, key string, dest any, ttl time.Duration, fetch func() error) error {
	if found, err := GetJSON(ctx, rdb, key, dest); err == nil && found {
		observability.CacheLookups.WithLabelValues(family, "hit").Inc()
		return nil
	}
	observability.CacheLookups.WithLabelValues(family, "miss").Inc()

	if err := fetch(); err != nil {
		return err
	}

	_ = SetJSON(ctx, rdb, key, dest, ttl)
	return nil
}

// Invalidate deletes the given keys.
func Invalidate(ctx context.Context, rdb *redis.Client, keys ...string) {
	if rdb == nil || len(keys) == 0 {
		return
	}
	rdb.Del(ctx, keys...)
}
