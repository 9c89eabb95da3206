package port

import (
	"context"

	"github.com/oldiebutgoldie/marketplace/internal/core/domain"
)

type CacheRepository interface {
	// SetIdempotency claims a request key, returns false if already claimed
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency frees a claimed key so the request may be retried
	ReleaseIdempotency(ctx context.Context, key string) error

	// SetStock mirrors committed stock for display reads (never authoritative)
	SetStock(ctx context.Context, itemID string, stock int) error

	// GetStock reads the mirror; ok is false on a miss
	GetStock(ctx context.Context, itemID string) (stock int, ok bool, err error)

	// CacheItem / GetItem round-trip full items for read paths
	CacheItem(ctx context.Context, item *domain.InventoryItem) error
	GetItem(ctx context.Context, itemID string) (*domain.InventoryItem, error)

	// InvalidateItem drops the item and stock mirrors after a mutation
	InvalidateItem(ctx context.Context, itemID string) error
}
