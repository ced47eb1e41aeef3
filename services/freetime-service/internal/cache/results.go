// Package cache holds computed free-time responses in Redis. Each
// group/day pair carries a version counter that calendar writes bump, so
// stale entries fall out of addressing without invalidation scans.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Results struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Results {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Results{rdb: rdb, ttl: ttl}
}

// Version returns the current calendar version for a group/day. A
// group/day never written to is version 0.
func (c *Results) Version(ctx context.Context, groupID, day string) (int64, error) {
	v, err := c.rdb.Get(ctx, versionKey(groupID, day)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// BumpVersion invalidates every cached result for the group/day by
// moving them out of addressing.
func (c *Results) BumpVersion(ctx context.Context, groupID, day string) error {
	return c.rdb.Incr(ctx, versionKey(groupID, day)).Err()
}

func (c *Results) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *Results) Set(ctx context.Context, key string, payload []byte) error {
	return c.rdb.Set(ctx, key, payload, c.ttl).Err()
}

// Key builds the result key for one query shape at one calendar version.
func Key(groupID, day string, version int64, query string) string {
	return fmt.Sprintf("freetime:%s:%s:v%d:%s", groupID, day, version, query)
}

func versionKey(groupID, day string) string {
	return "calv:" + groupID + ":" + day
}
