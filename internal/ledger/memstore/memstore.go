// Package memstore is an in-memory ledger.Store used by unit tests. It
// keeps real transaction semantics — WithTx mutates a copy and swaps it
// in only on success — so atomicity properties can be tested without a
// database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/larderhq/inventory-ledger-service/internal/ledger"
	"github.com/larderhq/inventory-ledger-service/internal/lineage"
	"github.com/larderhq/inventory-ledger-service/internal/model"
)

type Store struct {
	mu     sync.Mutex
	items  map[int64]model.InventoryItem
	nextID int64

	// Now supplies timestamps; tests override it for determinism.
	Now func() time.Time
}

func New() *Store {
	return &Store{
		items:  make(map[int64]model.InventoryItem),
		nextID: 1,
		Now:    time.Now,
	}
}

// Seed inserts an item as-is, assigning an id when the item has none.
func (s *Store) Seed(item model.InventoryItem) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		item.ID = s.nextID
	}
	if item.ID >= s.nextID {
		s.nextID = item.ID + 1
	}
	s.items[item.ID] = item
	return item.ID
}

func (s *Store) InStockItems(ctx context.Context) ([]model.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.InventoryItem
	for _, it := range s.items {
		if it.Status == model.StatusInStock {
			out = append(out, it)
		}
	}
	sortByID(out)
	return out, nil
}

func (s *Store) AllItems(ctx context.Context) ([]model.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.InventoryItem, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	sortByID(out)
	return out, nil
}

func (s *Store) GetItem(ctx context.Context, id int64) (*model.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &it, nil
}

func (s *Store) ProcessedCandidates(ctx context.Context) ([]ledger.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	forest := lineage.Build(itemSlice(s.items))
	var out []ledger.Candidate
	for _, it := range s.items {
		if it.Status != model.StatusProcessed {
			continue
		}
		out = append(out, ledger.Candidate{
			Item:         it,
			LastActivity: forest.LastActivity(it.ID),
			ChildCount:   len(forest.Children(it.ID)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].LastActivity.After(out[j].LastActivity)
		}
		return out[i].Item.ID > out[j].Item.ID
	})
	return out, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		items:  make(map[int64]model.InventoryItem, len(s.items)),
		nextID: s.nextID,
		now:    s.Now,
	}
	for id, it := range s.items {
		tx.items[id] = it
	}

	if err := fn(tx); err != nil {
		return err
	}
	s.items = tx.items
	s.nextID = tx.nextID
	return nil
}

type memTx struct {
	items  map[int64]model.InventoryItem
	nextID int64
	now    func() time.Time
}

func (t *memTx) GetItem(ctx context.Context, id int64) (*model.InventoryItem, error) {
	it, ok := t.items[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &it, nil
}

func (t *memTx) InsertItem(ctx context.Context, item *model.InventoryItem) (int64, error) {
	stored := *item
	stored.ID = t.nextID
	t.nextID++
	now := t.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	t.items[stored.ID] = stored
	item.ID = stored.ID
	return stored.ID, nil
}

func (t *memTx) PatchItem(ctx context.Context, id int64, patch ledger.FieldPatch) error {
	it, ok := t.items[id]
	if !ok || it.Status != model.StatusInStock {
		return ledger.ErrStaleStatus
	}
	if patch.Location != nil {
		it.Location = *patch.Location
	}
	if patch.Status != nil {
		it.Status = *patch.Status
	}
	if patch.ExpiryDate != nil {
		it.ExpiryDate = patch.ExpiryDate
	}
	it.UpdatedAt = t.now()
	t.items[id] = it
	return nil
}

func (t *memTx) TransitionStatus(ctx context.Context, id int64, from, to model.Status) error {
	it, ok := t.items[id]
	if !ok || it.Status != from {
		return ledger.ErrStaleStatus
	}
	it.Status = to
	it.UpdatedAt = t.now()
	t.items[id] = it
	return nil
}

func (t *memTx) DeleteDescendants(ctx context.Context, id int64) (int64, error) {
	doomed := lineage.Build(itemSlice(t.items)).DescendantIDs(id)
	for _, did := range doomed {
		delete(t.items, did)
	}
	return int64(len(doomed)), nil
}

func (t *memTx) SetQuantity(ctx context.Context, id int64, qty decimal.Decimal) error {
	it, ok := t.items[id]
	if !ok {
		return ledger.ErrNotFound
	}
	it.Quantity = qty
	it.UpdatedAt = t.now()
	t.items[id] = it
	return nil
}

func sortByID(items []model.InventoryItem) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}

func itemSlice(m map[int64]model.InventoryItem) []model.InventoryItem {
	out := make([]model.InventoryItem, 0, len(m))
	for _, it := range m {
		out = append(out, it)
	}
	return out
}
