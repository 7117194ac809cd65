// Package bootstrap wires the process-wide runtime dependencies shared by
// the server and the maintenance commands.
package bootstrap

import (
	"context"
	"fmt"

	"worldnews/internal/cache"
	"worldnews/internal/config"
	"worldnews/internal/database"
	"worldnews/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo loads the demo accounts and posts after connecting.
	SeedDemo bool
}

// InitRuntime connects to the database and Redis and optionally seeds demo data.
// The returned Redis client is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	if opts.SeedDemo && cfg.IsProduction() {
		return nil, nil, fmt.Errorf("refusing to seed demo data in production")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	rdb := cache.Connect(cfg.RedisURL)

	if opts.SeedDemo {
		if _, err := seed.NewSeeder(db).Demo(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, rdb, nil
}
