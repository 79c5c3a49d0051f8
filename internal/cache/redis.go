// Package cache is a thin cache-aside layer over a package-level Redis
// client.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"wendle/internal/observability"
)

// client is nil whenever Redis is absent; every helper in this package
// degrades to a no-op then.
var client *redis.Client

// InitRedis connects the package-level client. Accepts either a bare
// host:port or a redis:// URL. A bad address or an unreachable server
// leaves the client nil and the app running uncached.
func InitRedis(addr string) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			observability.GlobalLogger.Warn("invalid redis URL, running without cache",
				"addr", addr, "error", err.Error())
			client = nil
			return
		}
		opts = parsed
	}

	c := redis.NewClient(opts)
	c.AddHook(observability.RedisHook{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		observability.GlobalLogger.Warn("redis unreachable, running without cache",
			"addr", opts.Addr, "error", err.Error())
		client = nil
		return
	}

	observability.GlobalLogger.Info("redis connected", "addr", opts.Addr)
	client = c
}

// GetClient returns the current Redis client instance.
func GetClient() *redis.Client {
	return client
}

// SetClient replaces the Redis client. Used by tests with miniredis.
func SetClient(c *redis.Client) {
	client = c
}
