package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ledgerVersionKey = "ledger:version"
	// BumpChannel carries ledger version bumps to other instances.
	BumpChannel = "ledger.bump"
)

// Versioned wraps Redis JSON caching behind a global ledger version. Bumping the
// version orphans every key built before it.
type Versioned struct {
	client *redis.Client
	ttl    time.Duration
}

// NewVersioned instantiates the cache helper. A nil client disables caching.
func NewVersioned(client *redis.Client, ttl time.Duration) *Versioned {
	return &Versioned{client: client, ttl: ttl}
}

// Version returns the current ledger version, initialising when missing.
func (c *Versioned) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, ledgerVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, ledgerVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, ledgerVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, ledgerVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Versioned) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", joined, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader. Redis
// failures degrade to a miss: the loaded value is returned and the write-back
// is skipped or ignored.
func (c *Versioned) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return roundTrip(value, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil && json.Unmarshal(payload, dest) == nil {
		return nil
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_ = c.client.Set(ctx, key, raw, c.ttl).Err()
	return json.Unmarshal(raw, dest)
}

// Bump invalidates the cache by incrementing the version and publishing it.
func (c *Versioned) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, ledgerVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, BumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation follows version bumps published by other writers until ctx ends.
func (c *Versioned) ListenForInvalidation(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, BumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ver, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					_ = c.client.Incr(ctx, ledgerVersionKey).Err()
					continue
				}
				current, err := c.client.Get(ctx, ledgerVersionKey).Int64()
				if err == nil && current >= ver {
					continue
				}
				_ = c.client.Set(ctx, ledgerVersionKey, ver, 0).Err()
			}
		}
	}()
	return nil
}

func roundTrip(value, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
