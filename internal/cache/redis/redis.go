// Package redis implements the share cache on Redis tag sets.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// TagCache stores, per tag, a set of cache keys rendered for it.
type TagCache struct {
	client redis.UniversalClient
}

// Options configure the Redis connection.
type Options struct {
	Addr     string
	Password string
	TLS      bool
}

// New connects and pings Redis.
func New(ctx context.Context, o Options) (*TagCache, error) {
	opts := &redis.Options{Addr: o.Addr, Password: o.Password}
	if o.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &TagCache{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.UniversalClient) *TagCache {
	return &TagCache{client: client}
}

// tagKey uses a hash tag so the set and its members can share a cluster slot.
func tagKey(tag string) string {
	return "tag:{" + tag + "}"
}

// InvalidateTag deletes every key recorded under tag together with the tag set.
func (c *TagCache) InvalidateTag(ctx context.Context, tag string) error {
	set := tagKey(tag)
	keys, err := c.client.SMembers(ctx, set).Result()
	if err != nil {
		return fmt.Errorf("read tag %s: %w", tag, err)
	}

	pipe := c.client.Pipeline()
	for _, k := range keys {
		pipe.Del(ctx, k)
	}
	pipe.Del(ctx, set)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("invalidate tag %s: %w", tag, err)
	}
	return nil
}

func (c *TagCache) Close() error { return c.client.Close() }
