package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DecisionCache implements ports.DecisionCache using Redis SET NX, so the
// first decision for a gateway/request pair wins under concurrent
// duplicates.
type DecisionCache struct {
	client *goredis.Client
	prefix string
}

// NewDecisionCache creates a new Redis-backed decision cache.
func NewDecisionCache(client *goredis.Client) *DecisionCache {
	return &DecisionCache{
		client: client,
		prefix: "decision:",
	}
}

// Get retrieves a cached scan decision by replay key.
// Returns nil, nil if the key does not exist.
func (c *DecisionCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis decision get: %w", err)
	}
	return val, nil
}

// PutIfAbsent stores the decision only if no decision exists for the key.
// Returns true if this call stored the value, false if a decision was
// already present.
func (c *DecisionCache) PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	result, err := c.client.SetArgs(ctx, c.prefix+key, value, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists, another scan won the race
			return false, nil
		}
		return false, fmt.Errorf("redis decision put: %w", err)
	}
	return result == "OK", nil
}
