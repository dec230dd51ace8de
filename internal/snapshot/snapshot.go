// Package snapshot produces the ordered, consistent view of stocked
// items that both the validator and the external planner work from.
package snapshot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/larderhq/inventory-ledger-service/internal/model"
)

// Source is anything that can list the currently stocked ledger rows.
type Source interface {
	InStockItems(ctx context.Context) ([]model.InventoryItem, error)
}

// Entry is the only shape the external planner ever sees (§6 contract).
// It deliberately omits status, parent_id and updated_at: the planner
// gets read context, never lineage or write access.
type Entry struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `json:"quantity"`
	Unit       string          `json:"unit"`
	Location   model.Location  `json:"location"`
	ExpiryDate string          `json:"expiry_date,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Snapshot is a consistent-at-a-point-in-time list of in_stock items in
// canonical order. It is a plain value: safe to hold, re-read and index
// without touching the store again.
type Snapshot struct {
	Items []model.InventoryItem
}

// Reader reads snapshots from a source. No side effects; every call
// returns a fresh, independently ordered list.
type Reader struct {
	source Source
}

func NewReader(source Source) *Reader {
	return &Reader{source: source}
}

func (r *Reader) Read(ctx context.Context) (*Snapshot, error) {
	items, err := r.source.InStockItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("read in_stock items: %w", err)
	}
	Sort(items)
	return &Snapshot{Items: items}, nil
}

// Sort orders items canonically: creation time ascending (first in,
// first out), ties broken by soonest expiry with undated items last,
// then id for full determinism. This order is the disambiguation rule
// when a request names an item ambiguously: the first match wins.
func Sort(items []model.InventoryItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate == nil:
			return a.ID < b.ID
		case a.ExpiryDate == nil:
			return false
		case b.ExpiryDate == nil:
			return true
		case !a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
		return a.ID < b.ID
	})
}

// Index returns the snapshot keyed by id, the validator's working form.
func (s *Snapshot) Index() map[int64]model.InventoryItem {
	idx := make(map[int64]model.InventoryItem, len(s.Items))
	for _, it := range s.Items {
		idx[it.ID] = it
	}
	return idx
}

// Resolve returns the implicit target for a bare name: the first item in
// canonical order whose name matches. Returns nil when nothing matches.
func (s *Snapshot) Resolve(name string) *model.InventoryItem {
	for i := range s.Items {
		if s.Items[i].Name == name {
			return &s.Items[i]
		}
	}
	return nil
}

// View renders the snapshot as the planner-facing contract.
func (s *Snapshot) View() []Entry {
	entries := make([]Entry, 0, len(s.Items))
	for _, it := range s.Items {
		e := Entry{
			ID:        it.ID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Unit:      it.Unit,
			Location:  it.Location,
			CreatedAt: it.CreatedAt,
		}
		if it.ExpiryDate != nil {
			e.ExpiryDate = it.ExpiryDate.Format(model.DateLayout)
		}
		entries = append(entries, e)
	}
	return entries
}
