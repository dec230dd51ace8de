// Package lineage models the parent/child forest of ledger items as an
// arena keyed by id. Parent references are ids, not pointers, so removing
// a subtree is a set operation over ids rather than pointer surgery.
package lineage

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/larderhq/inventory-ledger-service/internal/model"
)

// Forest indexes a set of items by id and by parent id.
type Forest struct {
	items    map[int64]model.InventoryItem
	children map[int64][]int64
}

func Build(items []model.InventoryItem) *Forest {
	f := &Forest{
		items:    make(map[int64]model.InventoryItem, len(items)),
		children: make(map[int64][]int64),
	}
	for _, it := range items {
		f.items[it.ID] = it
		if it.ParentID != nil {
			f.children[*it.ParentID] = append(f.children[*it.ParentID], it.ID)
		}
	}
	return f
}

func (f *Forest) Item(id int64) (model.InventoryItem, bool) {
	it, ok := f.items[id]
	return it, ok
}

// Roots returns every item without a parent.
func (f *Forest) Roots() []model.InventoryItem {
	var roots []model.InventoryItem
	for _, it := range f.items {
		if it.IsRoot() {
			roots = append(roots, it)
		}
	}
	return roots
}

// Children returns the direct children of id, in insertion order.
func (f *Forest) Children(id int64) []model.InventoryItem {
	ids := f.children[id]
	out := make([]model.InventoryItem, 0, len(ids))
	for _, cid := range ids {
		out = append(out, f.items[cid])
	}
	return out
}

// DescendantIDs returns every id below root, any depth, root excluded.
// This is the set a deep rollback deletes.
func (f *Forest) DescendantIDs(root int64) []int64 {
	var out []int64
	queue := append([]int64(nil), f.children[root]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, id)
		queue = append(queue, f.children[id]...)
	}
	return out
}

// LastActivity computes the rollback selection timestamp for id: the
// item's own updated_at, or the newest created_at/updated_at among its
// direct children if later.
func (f *Forest) LastActivity(id int64) time.Time {
	it, ok := f.items[id]
	if !ok {
		return time.Time{}
	}
	last := it.UpdatedAt
	for _, child := range f.Children(id) {
		if child.CreatedAt.After(last) {
			last = child.CreatedAt
		}
		if child.UpdatedAt.After(last) {
			last = child.UpdatedAt
		}
	}
	return last
}

// Conserved reports whether the direct children of id sum to its own
// quantity within Epsilon, in its unit. Items without children trivially
// fail; callers check this only for processed parents.
func (f *Forest) Conserved(id int64) bool {
	it, ok := f.items[id]
	if !ok {
		return false
	}
	children := f.Children(id)
	if len(children) == 0 {
		return false
	}
	sum := decimal.Zero
	for _, c := range children {
		if c.Unit != it.Unit {
			return false
		}
		sum = sum.Add(c.Quantity)
	}
	return sum.Sub(it.Quantity).Abs().LessThanOrEqual(model.Epsilon)
}
