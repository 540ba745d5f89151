package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ProfileCache implements ports.ProfileCache using Redis. Profiles are
// immutable once created, so a plain TTL is enough; there is no
// invalidation path.
type ProfileCache struct {
	client *goredis.Client
}

// NewProfileCache creates a new Redis-backed profile cache.
func NewProfileCache(client *goredis.Client) *ProfileCache {
	return &ProfileCache{client: client}
}

// GetRevenue retrieves a cached revenue profile by id.
// Returns nil, nil if the key does not exist.
func (c *ProfileCache) GetRevenue(ctx context.Context, id uuid.UUID) ([]byte, error) {
	return c.get(ctx, "profile:revenue:"+id.String())
}

// SetRevenue stores a serialized revenue profile with TTL.
func (c *ProfileCache) SetRevenue(ctx context.Context, id uuid.UUID, value []byte, ttl time.Duration) error {
	return c.set(ctx, "profile:revenue:"+id.String(), value, ttl)
}

// GetTax retrieves a cached tax profile by id.
// Returns nil, nil if the key does not exist.
func (c *ProfileCache) GetTax(ctx context.Context, id uuid.UUID) ([]byte, error) {
	return c.get(ctx, "profile:tax:"+id.String())
}

// SetTax stores a serialized tax profile with TTL.
func (c *ProfileCache) SetTax(ctx context.Context, id uuid.UUID, value []byte, ttl time.Duration) error {
	return c.set(ctx, "profile:tax:"+id.String(), value, ttl)
}

func (c *ProfileCache) get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis profile get: %w", err)
	}
	return val, nil
}

func (c *ProfileCache) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis profile set: %w", err)
	}
	return nil
}
