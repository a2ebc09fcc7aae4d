package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is long because every cart mutation deletes the entry
// explicitly; expiry only matters when an invalidation is lost.
const DefaultTTL = 24 * time.Hour

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (r RedisCache) Get(ctx context.Context, userID string) (*domain.PricedCart, error) {
	key := cacheKey(userID)

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.PricedCart
	if err2 := json.Unmarshal(data, &cart); err2 != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err2)
	}

	return &cart, nil
}

func (r RedisCache) Set(ctx context.Context, userID string, cart *domain.PricedCart) error {
	key := cacheKey(userID)
	jsonCart, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err := r.client.Set(ctx, key, jsonCart, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// purgeGenKey is bumped by Purge and is part of every user's version.
const purgeGenKey = "cart:gen"

type multiGetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func (r RedisCache) Version(ctx context.Context, userID string) (string, error) {
	return version(ctx, r.client, userID)
}

func version(ctx context.Context, c multiGetter, userID string) (string, error) {
	vals, err := c.MGet(ctx, purgeGenKey, genKey(userID)).Result()
	if err != nil {
		return "", fmt.Errorf("redis version failed: %w", err)
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			s = "0"
		}
		parts[i] = s
	}
	return strings.Join(parts, "."), nil
}

// SetIfVersion watches the generation keys so a Delete or Purge landing
// between the version read and the write aborts the write.
func (r RedisCache) SetIfVersion(ctx context.Context, userID, expected string, cart *domain.PricedCart) error {
	key := cacheKey(userID)
	jsonCart, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := version(ctx, tx, userID)
		if err != nil {
			return err
		}
		if current != expected {
			return ErrStaleVersion
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, jsonCart, r.ttl)
			return nil
		})
		return err
	}, purgeGenKey, genKey(userID))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleVersion), errors.Is(err, redis.TxFailedErr):
		return ErrStaleVersion
	default:
		return fmt.Errorf("redis set failed: %w", err)
	}
}

// Delete bumps the user's generation and drops the entry in one transaction.
func (r RedisCache) Delete(ctx context.Context, userID string) error {
	key := cacheKey(userID)
	gen := genKey(userID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, gen)
		pipe.Expire(ctx, gen, r.ttl)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	return nil
}

func cacheKey(userID string) string {
	return fmt.Sprintf("cart:priced:%s", userID)
}

func genKey(userID string) string {
	return fmt.Sprintf("cart:gen:%s", userID)
}

// Purge deletes every cached cart. Offer changes reprice all carts at once.
func (r RedisCache) Purge(ctx context.Context) error {
	if err := r.client.Incr(ctx, purgeGenKey).Err(); err != nil {
		return fmt.Errorf("redis purge failed: %w", err)
	}

	iter := r.client.Scan(ctx, 0, cacheKey("*"), 100).Iterator()
	keys := make([]string, 0, 100)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == 100 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis purge failed: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis purge failed: %w", err)
		}
	}
	return nil
}
