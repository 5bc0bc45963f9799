package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCache(client), mr
}

func testCart(userID string) *domain.Cart {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Cart{
		Base:   domain.Base{ID: "c1", CreatedAt: now, UpdatedAt: now},
		UserID: userID,
		Items: []domain.CartItem{
			{ProductID: "p1", Name: "Laptop", Price: 999.99, Quantity: 1, AddedAt: now},
			{ProductID: "p2", Name: "Mouse", Price: 29.99, Quantity: 2, AddedAt: now},
		},
	}
}

func TestGet_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)
	cart := testCart("user123")

	data, _ := json.Marshal(cart)
	require.NoError(t, mr.Set(cache.key("user123"), string(data)))

	result, err := cache.Get(context.Background(), "user123")
	require.NoError(t, err)
	assert.Equal(t, "user123", result.UserID)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, "p1", result.Items[0].ProductID)
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	result, err := cache.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cache.key("user123"), `{"userId":`))

	_, err := cache.Get(context.Background(), "user123")
	require.ErrorContains(t, err, "unmarshal cart failed")
}

func TestGet_RedisDown(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Close()

	_, err := cache.Get(context.Background(), "user123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_StoresWithJitteredTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)
	cart := testCart("user456")

	require.NoError(t, cache.Set(context.Background(), "user456", cart))

	assert.True(t, mr.Exists("cart:user456"))
	ttl := mr.TTL("cart:user456")
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.Less(t, ttl, 20*time.Minute)

	got, err := cache.Get(context.Background(), "user456")
	require.NoError(t, err)
	assert.Equal(t, cart.Items, got.Items)
}

func TestNewRedisCache_Options(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedisCache(client, RedisOptions{KeyPrefix: "shop:cart:", TTL: time.Minute, MaxJitter: time.Second})
	require.NoError(t, c.Set(context.Background(), "u1", testCart("u1")))

	assert.True(t, mr.Exists("shop:cart:u1"))
	assert.False(t, mr.Exists("cart:u1"))
	ttl := mr.TTL("shop:cart:u1")
	assert.GreaterOrEqual(t, ttl, time.Minute)
	assert.Less(t, ttl, time.Minute+time.Second)

	// zero fields keep the defaults
	d := NewRedisCache(client, RedisOptions{TTL: 2 * time.Minute})
	assert.Equal(t, "cart:", d.opts.KeyPrefix)
	assert.Equal(t, 5*time.Minute, d.opts.MaxJitter)
}

func TestSet_ExpiresAfterTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, cache.Set(context.Background(), "u", testCart("u")))

	mr.FastForward(21 * time.Minute)

	_, err := cache.Get(context.Background(), "u")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDelete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, cache.Set(context.Background(), "u", testCart("u")))

	require.NoError(t, cache.Delete(context.Background(), "u"))
	assert.False(t, mr.Exists("cart:u"))

	// deleting a missing key is not an error
	assert.NoError(t, cache.Delete(context.Background(), "u"))
}

func TestNopCache(t *testing.T) {
	var c CartCache = NopCache{}
	require.NoError(t, c.Set(context.Background(), "u", testCart("u")))

	_, err := c.Get(context.Background(), "u")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, c.Delete(context.Background(), "u"))
}
