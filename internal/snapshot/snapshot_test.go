package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/larderhq/inventory-ledger-service/internal/model"
)

type stubSource struct {
	items []model.InventoryItem
	err   error
}

func (s *stubSource) InStockItems(ctx context.Context) ([]model.InventoryItem, error) {
	return s.items, s.err
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func item(id int64, name string, created time.Time, expiry *time.Time) model.InventoryItem {
	return model.InventoryItem{
		ID:         id,
		Name:       name,
		Category:   "meat",
		Location:   model.LocationFridge,
		Quantity:   decimal.NewFromInt(1),
		Unit:       "块",
		Status:     model.StatusInStock,
		ExpiryDate: expiry,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func TestSort_CanonicalOrder(t *testing.T) {
	day1 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)

	items := []model.InventoryItem{
		item(5, "豆腐", day2, nil),
		item(4, "豆腐", day2, date(2026, 8, 20)),
		item(3, "豆腐", day2, date(2026, 8, 10)),
		item(2, "豆腐", day1, nil),
		item(1, "豆腐", day2, date(2026, 8, 10)),
	}
	Sort(items)

	want := []int64{2, 1, 3, 4, 5}
	for i, w := range want {
		if items[i].ID != w {
			t.Fatalf("position %d: id %d, want %d (got order %v)", i, items[i].ID, w, ids(items))
		}
	}
}

func TestResolve_FirstMatchWins(t *testing.T) {
	day1 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	src := &stubSource{items: []model.InventoryItem{
		item(7, "鸡蛋", day2, nil),
		item(3, "鸡蛋", day1, nil),
		item(5, "牛奶", day1, nil),
	}}

	snap, err := NewReader(src).Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	got := snap.Resolve("鸡蛋")
	if got == nil || got.ID != 3 {
		t.Fatalf("Resolve(鸡蛋) = %v, want the older item 3", got)
	}
	if snap.Resolve("龙虾") != nil {
		t.Fatal("Resolve of an unknown name should be nil")
	}
}

func TestRead_PropagatesSourceError(t *testing.T) {
	src := &stubSource{err: errors.New("connection refused")}
	if _, err := NewReader(src).Read(context.Background()); err == nil {
		t.Fatal("Read should surface the source error")
	}
}

func TestView_PlannerContract(t *testing.T) {
	day := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	parent := int64(1)
	it := item(2, "猪肉", day, date(2026, 9, 10))
	it.ParentID = &parent

	snap := &Snapshot{Items: []model.InventoryItem{it, item(3, "米", day, nil)}}
	view := snap.View()
	if len(view) != 2 {
		t.Fatalf("got %d entries, want 2", len(view))
	}
	if view[0].ExpiryDate != "2026-09-10" {
		t.Errorf("expiry rendered as %q, want 2026-09-10", view[0].ExpiryDate)
	}
	if view[1].ExpiryDate != "" {
		t.Errorf("undated item rendered expiry %q, want empty", view[1].ExpiryDate)
	}
}

func TestIndex_KeyedByID(t *testing.T) {
	day := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	snap := &Snapshot{Items: []model.InventoryItem{item(2, "猪肉", day, nil), item(9, "米", day, nil)}}
	idx := snap.Index()
	if len(idx) != 2 {
		t.Fatalf("index has %d entries, want 2", len(idx))
	}
	if idx[9].Name != "米" {
		t.Errorf("idx[9].Name = %q, want 米", idx[9].Name)
	}
}

func ids(items []model.InventoryItem) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
