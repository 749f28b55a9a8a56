package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	r := redis.NewClient(&redis.Options{Addr: addr})
	_ = r.WithTimeout(2 * time.Second)
	return r
}

// Cache wraps the client with the two operations event consumers need, so
// they can take a small seam instead of the full client.
type Cache struct{ C *redis.Client }

func (c Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.C.Exists(ctx, key).Result()
	return n > 0, err
}

func (c Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.C.Set(ctx, key, value, ttl).Err()
}
