// Package ledger defines the store contract the rest of the system works
// against. The Postgres implementation lives in ledger/postgres; an
// in-memory implementation for tests in ledger/memstore.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/larderhq/inventory-ledger-service/internal/model"
)

var (
	// ErrNotFound: the referenced item does not exist.
	ErrNotFound = errors.New("ledger: item not found")
	// ErrStaleStatus: a guarded status transition matched zero rows,
	// meaning the item left the expected state since it was read.
	ErrStaleStatus = errors.New("ledger: item not in expected status")
)

// FieldPatch is the mutable surface of an UPDATE action. Quantity is
// deliberately absent: it cannot be patched through this type at all.
type FieldPatch struct {
	Location   *model.Location
	Status     *model.Status
	ExpiryDate *time.Time
}

func (p FieldPatch) Empty() bool {
	return p.Location == nil && p.Status == nil && p.ExpiryDate == nil
}

// Candidate is a processed item eligible for rollback, with the activity
// timestamp and direct child count the selection window is computed from.
type Candidate struct {
	Item         model.InventoryItem
	LastActivity time.Time
	ChildCount   int
}

// Store is a handle to the inventory ledger. Reads run outside any
// transaction; every mutating path goes through WithTx so a whole plan
// (or a whole rollback invocation) commits or aborts as one unit.
type Store interface {
	InStockItems(ctx context.Context) ([]model.InventoryItem, error)
	AllItems(ctx context.Context) ([]model.InventoryItem, error)
	GetItem(ctx context.Context, id int64) (*model.InventoryItem, error)

	// ProcessedCandidates lists every processed item with its last
	// activity time (own updated_at vs. newest child created/updated).
	ProcessedCandidates(ctx context.Context) ([]Candidate, error)

	// WithTx runs fn inside one store transaction. A non-nil error from
	// fn aborts the transaction with no partial effect.
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the mutating surface available inside a transaction.
type Tx interface {
	GetItem(ctx context.Context, id int64) (*model.InventoryItem, error)

	// InsertItem creates a row and returns its assigned id. CreatedAt
	// and UpdatedAt are set by the store.
	InsertItem(ctx context.Context, item *model.InventoryItem) (int64, error)

	// PatchItem applies non-quantity fields to an in_stock row and
	// refreshes updated_at. ErrStaleStatus if the row is not in_stock.
	PatchItem(ctx context.Context, id int64, patch FieldPatch) error

	// TransitionStatus moves a row from exactly `from` to `to`,
	// refreshing updated_at. ErrStaleStatus when the row is not in
	// `from`; this is the state-machine guard at the store layer.
	TransitionStatus(ctx context.Context, id int64, from, to model.Status) error

	// DeleteDescendants removes the entire subtree under id (any
	// depth, id itself kept) and reports how many rows went.
	DeleteDescendants(ctx context.Context, id int64) (int64, error)

	// SetQuantity overwrites a row's quantity. Administrative escape
	// hatch only; nothing in plan execution calls this.
	SetQuantity(ctx context.Context, id int64, qty decimal.Decimal) error
}
