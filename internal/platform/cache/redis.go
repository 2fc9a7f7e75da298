package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options carries optional Redis settings.
type Options struct {
	Password string
	DB       int
}

// New creates a new Redis client and pings it. The client is closed when the
// ping fails.
func New(ctx context.Context, addr string, opts ...Options) (*redis.Client, error) {
	options := &redis.Options{Addr: addr}
	for _, o := range opts {
		options.Password = o.Password
		options.DB = o.DB
	}
	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping %s: %w", addr, err)
	}

	return client, nil
}
