package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisOptions controls how carts are keyed and how long they live.
// Zero fields fall back to DefaultRedisOptions.
type RedisOptions struct {
	KeyPrefix string
	TTL       time.Duration
	// MaxJitter is added to TTL at random so carts written together do
	// not all expire together.
	MaxJitter time.Duration
}

func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		KeyPrefix: "cart:",
		TTL:       15 * time.Minute,
		MaxJitter: 5 * time.Minute,
	}
}

type RedisCache struct {
	client redis.Cmdable
	opts   RedisOptions
}

func NewRedisCache(client redis.Cmdable, opts ...RedisOptions) *RedisCache {
	o := DefaultRedisOptions()
	if len(opts) > 0 {
		if opts[0].KeyPrefix != "" {
			o.KeyPrefix = opts[0].KeyPrefix
		}
		if opts[0].TTL > 0 {
			o.TTL = opts[0].TTL
		}
		if opts[0].MaxJitter > 0 {
			o.MaxJitter = opts[0].MaxJitter
		}
	}
	return &RedisCache{client: client, opts: o}
}

func (r *RedisCache) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cart %s: %w", userID, err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

func (r *RedisCache) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := r.client.Set(ctx, r.key(userID), data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set cart %s: %w", userID, err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete cart %s: %w", userID, err)
	}
	return nil
}

func (r *RedisCache) ttl() time.Duration {
	return r.opts.TTL + rand.N(r.opts.MaxJitter)
}

func (r *RedisCache) key(userID string) string {
	return r.opts.KeyPrefix + userID
}
