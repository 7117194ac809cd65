package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	FeedGenerationKey = "feed:gen"
	feedKeyFormat     = "feed:v%d:%s:%s"
	UserKeyFormat     = "user:%d"
	ThemeKey          = "settings:theme"
	BlacklistPrefix   = "blacklist:"
)

const (
	FeedTTL = 30 * time.Second
	UserTTL = 5 * time.Minute
)

// FeedKey returns the cache key for an anonymous feed page under the current generation.
// An empty filter is stored as "*".
func FeedKey(ctx context.Context, rdb *redis.Client, country, category string) string {
	var gen int64
	if rdb != nil {
		gen, _ = rdb.Get(ctx, FeedGenerationKey).Int64()
	}
	return fmt.Sprintf(feedKeyFormat, gen, orAny(country), orAny(category))
}

// InvalidateFeeds retires every cached feed page by bumping the generation.
// Old pages expire on their own TTL.
func InvalidateFeeds(ctx context.Context, rdb *redis.Client) {
	if rdb == nil {
		return
	}
	rdb.Incr(ctx, FeedGenerationKey)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyFormat, userID)
}

func InvalidateUser(ctx context.Context, rdb *redis.Client, userID uint) {
	Invalidate(ctx, rdb, UserKey(userID))
}

// BlacklistKey is the revocation marker for a token ID.
func BlacklistKey(jti string) string {
	return BlacklistPrefix + jti
}

func orAny(s string) string {
	if s == "" {
		return "*"
	}
	return s
}
