package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemStatus string

const (
	ItemStatusActive   ItemStatus = "active"
	ItemStatusSoldOut  ItemStatus = "sold_out"
	ItemStatusArchived ItemStatus = "archived"
)

// ItemMetadata holds display attributes only. No invariants.
type ItemMetadata struct {
	Title   string   `json:"title"`
	Artist  string   `json:"artist"`
	Year    int      `json:"year,omitempty"`
	Country string   `json:"country,omitempty"`
	Genres  []string `json:"genres,omitempty"`
	Styles  []string `json:"styles,omitempty"`
	Format  string   `json:"format,omitempty"`
}

// CatalogRef points back at the external catalog record an item was
// imported from. Never authoritative for stock or price.
type CatalogRef struct {
	DiscogsReleaseID int64  `json:"discogs_release_id,omitempty"`
	DiscogsURL       string `json:"discogs_url,omitempty"`
}

type InventoryItem struct {
	ID        string          `json:"id"`
	Metadata  ItemMetadata    `json:"metadata"`
	Reference CatalogRef      `json:"reference"`
	Stock     int             `json:"stock"`
	Price     decimal.Decimal `json:"price"`
	Condition string          `json:"condition,omitempty"`
	Status    ItemStatus      `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StatusAfter returns the status the item carries once stock reaches
// newStock. Archived items stay archived; otherwise zero stock means
// sold out and any remaining stock leaves the status unchanged.
func (i *InventoryItem) StatusAfter(newStock int) ItemStatus {
	if i.Status == ItemStatusArchived {
		return ItemStatusArchived
	}
	if newStock == 0 {
		return ItemStatusSoldOut
	}
	return i.Status
}

// Reservation is the durable outcome of a successful stock decrement.
type Reservation struct {
	ItemID    string     `json:"item_id"`
	Quantity  int        `json:"quantity"`
	NewStock  int        `json:"new_stock"`
	NewStatus ItemStatus `json:"new_status"`
}
