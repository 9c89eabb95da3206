package port

import (
	"context"

	"github.com/oldiebutgoldie/marketplace/internal/core/domain"
)

type InventoryStore interface {
	// Reserve decrements stock by quantity inside a single transaction,
	// or fails without side effects (ErrNotFound, ErrOutOfStock).
	Reserve(ctx context.Context, itemID string, quantity int) (*domain.Reservation, error)

	// GetItem returns the stored item or ErrNotFound.
	GetItem(ctx context.Context, itemID string) (*domain.InventoryItem, error)

	// CreateItem persists a newly imported item.
	CreateItem(ctx context.Context, item *domain.InventoryItem) error
}

type TradeStore interface {
	CreateTrade(ctx context.Context, t *domain.Trade) error

	GetTrade(ctx context.Context, tradeID string) (*domain.Trade, error)

	ListTradesBySender(ctx context.Context, senderID string) ([]domain.Trade, error)

	// CounterTrade applies a counter-offer with the turn check and the
	// write in the same transaction.
	CounterTrade(ctx context.Context, tradeID, callerID string, m domain.Manifest) (*domain.Trade, error)

	// ResolveTrade accepts the current manifest and decrements one unit
	// of stock per requested item, all inside one transaction. Any item
	// failure aborts the whole operation and surfaces as *StockError.
	ResolveTrade(ctx context.Context, tradeID, callerID string) (*domain.Trade, error)

	CancelTrade(ctx context.Context, tradeID, callerID string) (*domain.Trade, error)
}
