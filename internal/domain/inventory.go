package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem is a counted stock item, unique by name.
type InventoryItem struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           *string         `json:"unit"`
	LastEditedBy   *int64          `json:"last_edited_by"`
	LastEditorName *string         `json:"last_edited_by_name"`
	LastEditedAt   *time.Time      `json:"last_edited_at"`
	CreatedAt      time.Time       `json:"created_at"`
}

// InventoryPatch carries the optional fields of an item update.
type InventoryPatch struct {
	Name     *string          `json:"name"`
	Quantity *decimal.Decimal `json:"quantity"`
	Unit     *string          `json:"unit"`
}

// StockDelta adds Quantity to the item called Name, creating it when absent.
type StockDelta struct {
	Name     string
	Quantity decimal.Decimal
}
