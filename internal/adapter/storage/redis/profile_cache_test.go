package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileCache_RevenueRoundTrip(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewProfileCache(client)
	ctx := context.Background()

	id := uuid.New()
	value := []byte(`{"name":"house-standard","valid_pct":30}`)

	result, err := cache.GetRevenue(ctx, id)
	assert.NoError(t, err)
	assert.Nil(t, result)

	err = cache.SetRevenue(ctx, id, value, 5*time.Minute)
	require.NoError(t, err)

	result, err = cache.GetRevenue(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, value, result)
}

func TestProfileCache_TaxAndRevenueKeysAreSeparate(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewProfileCache(client)
	ctx := context.Background()

	id := uuid.New()

	err := cache.SetRevenue(ctx, id, []byte("revenue"), 5*time.Minute)
	require.NoError(t, err)

	result, err := cache.GetTax(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, result, "tax lookup must not see a revenue entry with the same id")
}

func TestProfileCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewProfileCache(client)
	ctx := context.Background()

	id := uuid.New()

	err := cache.SetTax(ctx, id, []byte("tax"), 1*time.Second)
	require.NoError(t, err)

	s.FastForward(2 * time.Second)

	result, err := cache.GetTax(ctx, id)
	assert.NoError(t, err)
	assert.Nil(t, result)
}
