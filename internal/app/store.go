package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/odyssey-authz/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-authz/internal/platform/db"
	"github.com/odyssey-erp/odyssey-authz/internal/rbac"
	"github.com/odyssey-erp/odyssey-authz/internal/rbac/pgstore"
	"github.com/odyssey-erp/odyssey-authz/internal/rbac/redisstore"
)

// OpenStore connects the configured role store. The returned close function
// releases the underlying connection.
func OpenStore(ctx context.Context, cfg *Config, logger *slog.Logger) (rbac.Store, func(), error) {
	switch cfg.Store {
	case StorePostgres:
		pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
		if err != nil {
			return nil, nil, err
		}
		store := pgstore.New(pool)
		if cfg.PGMigrate {
			if err := store.Migrate(ctx); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return store, pool.Close, nil
	case StoreRedis:
		client, err := cache.New(ctx, cfg.RedisAddr, cache.Options{Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
		return redisstore.New(client, cfg.RedisPrefix), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("app: unknown store %q", cfg.Store)
	}
}
