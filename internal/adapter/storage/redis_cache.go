package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oldiebutgoldie/marketplace/internal/core/domain"
)

const (
	stockKeyPrefix       = "stock:"
	itemKeyPrefix        = "item:"
	idempotencyKeyPrefix = "idempotency:"
	idempotencyKeyTTL    = 24 * time.Hour
	itemCacheTTL         = 10 * time.Minute
)

// RedisCache holds idempotency keys and display mirrors. Stock in Redis
// is never authoritative; the transactional store is.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	return r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
}

func (r *RedisCache) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

func (r *RedisCache) SetStock(ctx context.Context, itemID string, stock int) error {
	return r.client.Set(ctx, stockKeyPrefix+itemID, stock, 0).Err()
}

func (r *RedisCache) GetStock(ctx context.Context, itemID string) (int, bool, error) {
	stock, err := r.client.Get(ctx, stockKeyPrefix+itemID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return stock, true, nil
}

func (r *RedisCache) CacheItem(ctx context.Context, item *domain.InventoryItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, itemKeyPrefix+item.ID, payload, itemCacheTTL).Err()
}

func (r *RedisCache) GetItem(ctx context.Context, itemID string) (*domain.InventoryItem, error) {
	payload, err := r.client.Get(ctx, itemKeyPrefix+itemID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var item domain.InventoryItem
	if err := json.Unmarshal(payload, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *RedisCache) InvalidateItem(ctx context.Context, itemID string) error {
	return r.client.Del(ctx, itemKeyPrefix+itemID, stockKeyPrefix+itemID).Err()
}
