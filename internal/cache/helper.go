package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	feedKey          = "feed:public"
	profileKeyPrefix = "profile:%s"
)

const (
	// FeedTTL is deliberately short: the public feed is refreshed by the
	// change feed anyway, the cache only absorbs read bursts.
	FeedTTL    = 30 * time.Second
	ProfileTTL = 5 * time.Minute
)

// FeedKey returns the cache key for the anonymous public feed.
func FeedKey() string {
	return feedKey
}

// ProfileKey returns the cache key for a profile looked up by username.
func ProfileKey(username string) string {
	return fmt.Sprintf(profileKeyPrefix, username)
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if err != nil {
		// redis.Nil and transport errors are both treated as a miss;
		// the caller falls back to the database either way.
		return false, nil
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first, on miss it calls fetch (which should populate dest),
// then stores the result in Redis with ttl. fetch must write into dest.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	// Store into cache (best-effort)
	_ = SetJSON(ctx, key, dest, ttl)
	return nil
}

// Invalidate removes a key. Best-effort; a failed delete only means a
// stale read until the TTL expires.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateFeed drops the public feed snapshot.
func InvalidateFeed(ctx context.Context) {
	Invalidate(ctx, feedKey)
}

// InvalidateProfile drops the cached profile for a username.
func InvalidateProfile(ctx context.Context, username string) {
	Invalidate(ctx, ProfileKey(username))
}
