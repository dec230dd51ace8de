package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a ledger row. processed, consumed and
// waste are terminal; only the rollback engine moves a row back out of
// processed.
type Status string

const (
	StatusInStock   Status = "in_stock"
	StatusProcessed Status = "processed"
	StatusConsumed  Status = "consumed"
	StatusWaste     Status = "waste"
)

func (s Status) Valid() bool {
	switch s {
	case StatusInStock, StatusProcessed, StatusConsumed, StatusWaste:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusProcessed || s == StatusConsumed || s == StatusWaste
}

// Location is the storage environment of an item.
type Location string

const (
	LocationFridge  Location = "fridge"
	LocationFreezer Location = "freezer"
	LocationPantry  Location = "pantry"
)

func (l Location) Valid() bool {
	switch l {
	case LocationFridge, LocationFreezer, LocationPantry:
		return true
	}
	return false
}

// Epsilon is the tolerance for the conservation invariant: the quantities
// of a split's direct children must sum to the parent's quantity within
// this bound, measured in the parent's unit. It doubles as the degenerate
// split threshold: a child at or below Epsilon is noise, not a portion.
var Epsilon = decimal.RequireFromString("0.01")

// InventoryItem is one row of the inventory ledger.
//
// A root item's quantity is fixed at creation and never changes through
// normal operation; every apparent quantity change is represented by
// child rows pointing back at the parent via ParentID.
type InventoryItem struct {
	ID         int64           `db:"id" json:"id"`
	Name       string          `db:"item_name" json:"item_name"`
	Category   string          `db:"category" json:"category"`
	Location   Location        `db:"location" json:"location"`
	Quantity   decimal.Decimal `db:"quantity" json:"quantity"`
	Unit       string          `db:"unit" json:"unit"`
	ExpiryDate *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
	Status     Status          `db:"status" json:"status"`
	ParentID   *int64          `db:"parent_id" json:"parent_id,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

func (it *InventoryItem) IsRoot() bool {
	return it.ParentID == nil
}

// DateLayout is the wire format for expiry dates.
const DateLayout = "2006-01-02"
