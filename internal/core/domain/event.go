package domain

import "time"

type EventType string

const (
	EventTradeCreated   EventType = "trade.created"
	EventTradeCountered EventType = "trade.countered"
	EventTradeCompleted EventType = "trade.completed"
	EventTradeCancelled EventType = "trade.cancelled"
	EventItemReserved   EventType = "inventory.reserved"
	EventItemImported   EventType = "inventory.imported"
)

// Event is emitted after a mutation commits, for the notification
// sink. Delivery is best effort and never part of the transaction.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	TradeID    string    `json:"trade_id,omitempty"`
	ItemID     string    `json:"item_id,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
