package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the Redis connection backing the ledger cache.
type Options struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// New dials Redis and pings it. Callers treat an error as "run without cache".
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping %s: %w", opts.Addr, err)
	}
	return client, nil
}
