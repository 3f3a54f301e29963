// Package redisstore connects the scs session manager to Redis.
package redisstore

import (
	"context"
	"fmt"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces session keys so the portal can share a Redis
// database with other services.
const KeyPrefix = "medportal:session:"

// New returns an scs store keeping sessions under KeyPrefix.
func New(client *redis.Client) *goredisstore.RedisStore {
	return goredisstore.NewWithPrefix(client, KeyPrefix)
}

// Dial parses rawURL, checks the server answers and returns the client with a
// session store over it. The caller closes the client.
func Dial(ctx context.Context, rawURL string) (*redis.Client, *goredisstore.RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis session store: %w", err)
	}
	return client, New(client), nil
}
