package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrOutOfStock          = errors.New("out of stock")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrNotParticipant      = errors.New("caller is not a trade participant")
	ErrTradeClosed         = errors.New("trade is closed")
	ErrInvalidManifest     = errors.New("invalid manifest")
	ErrInvalidParticipants = errors.New("invalid participants")
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrUnavailable         = errors.New("store temporarily unavailable")
)

// StockError reports which manifest item made a reservation or resolve
// fail. Err is ErrNotFound or ErrOutOfStock.
type StockError struct {
	ItemID string
	Err    error
}

func (e *StockError) Error() string {
	return fmt.Sprintf("item %s: %v", e.ItemID, e.Err)
}

func (e *StockError) Unwrap() error {
	return e.Err
}
