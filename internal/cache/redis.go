// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// InitRedis initializes the Redis client with the given address. An empty
// address or an unreachable server leaves the cache disabled; every helper
// degrades to a pass-through in that case.
func InitRedis(addr string) {
	if addr == "" {
		client = nil
		return
	}

	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			log.Printf("Redis connection warning: invalid REDIS_URL %q: %v (continuing without cache)", addr, err)
			client = nil
			return
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client = redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection warning: %v (continuing without cache)", err)
		client = nil
	} else {
		log.Println("Redis connected successfully")
	}
}

// GetClient returns the current Redis client instance.
func GetClient() *redis.Client {
	return client
}

// SetClient replaces the client instance. Intended for tests.
func SetClient(c *redis.Client) {
	client = c
}

const (
	// UserDirectoryKey caches the public user directory listing.
	UserDirectoryKey = "user-directory"
	// UserDirectoryTTL bounds staleness of the directory between mutations.
	UserDirectoryTTL = 2 * time.Minute
)

// Aside implements the cache-aside pattern: on a hit, dest is populated from
// the cached JSON; on a miss, load runs and its result (already written into
// dest by the caller) is stored with the given TTL. Cache failures never
// fail the request.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, load func() error) error {
	if client != nil {
		raw, err := client.Get(ctx, key).Result()
		if err == nil {
			if unmarshalErr := json.Unmarshal([]byte(raw), dest); unmarshalErr == nil {
				return nil
			}
			// Corrupt entry; fall through to reload and overwrite.
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("cache read failed for %q: %v", key, err)
		}
	}

	if err := load(); err != nil {
		return err
	}

	if client != nil {
		if raw, err := json.Marshal(dest); err == nil {
			if setErr := client.Set(ctx, key, raw, ttl).Err(); setErr != nil {
				log.Printf("cache write failed for %q: %v", key, setErr)
			}
		}
	}
	return nil
}

// Invalidate drops a cached entry.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateUserDirectory drops the cached user directory after any user mutation.
func InvalidateUserDirectory(ctx context.Context) {
	Invalidate(ctx, UserDirectoryKey)
}
