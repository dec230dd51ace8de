package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/larderhq/inventory-ledger-service/internal/ledger"
	"github.com/larderhq/inventory-ledger-service/internal/ledger/memstore"
	"github.com/larderhq/inventory-ledger-service/internal/model"
)

func seeded(status model.Status, qty, unit string) (*memstore.Store, int64) {
	s := memstore.New()
	at := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	id := s.Seed(model.InventoryItem{
		Name:      "鸡蛋",
		Category:  "dairy",
		Location:  model.LocationFridge,
		Quantity:  decimal.RequireFromString(qty),
		Unit:      unit,
		Status:    status,
		CreatedAt: at,
		UpdatedAt: at,
	})
	return s, id
}

func TestRestoreQuantity(t *testing.T) {
	store, id := seeded(model.StatusInStock, "3", "个")
	svc := New(store, zap.NewNop())

	before, err := svc.RestoreQuantity(context.Background(), id, decimal.NewFromInt(12))
	if err != nil {
		t.Fatalf("RestoreQuantity: %v", err)
	}
	if !before.Quantity.Equal(decimal.NewFromInt(3)) {
		t.Errorf("before.Quantity = %s, want the pre-fix 3", before.Quantity)
	}

	after, _ := store.GetItem(context.Background(), id)
	if !after.Quantity.Equal(decimal.NewFromInt(12)) {
		t.Errorf("quantity = %s, want 12", after.Quantity)
	}
	if after.Status != model.StatusInStock || after.Location != model.LocationFridge {
		t.Errorf("fields other than quantity changed: %+v", after)
	}
}

func TestRestoreQuantity_Rejections(t *testing.T) {
	store, id := seeded(model.StatusInStock, "3", "个")
	svc := New(store, zap.NewNop())

	if _, err := svc.RestoreQuantity(context.Background(), id, decimal.NewFromInt(-1)); err == nil {
		t.Error("negative quantity should be rejected")
	}
	if _, err := svc.RestoreQuantity(context.Background(), id, decimal.RequireFromString("2.5")); err == nil {
		t.Error("fractional quantity on a counted unit should be rejected")
	}
	if _, err := svc.RestoreQuantity(context.Background(), 99, decimal.NewFromInt(1)); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("unknown id: err = %v, want ErrNotFound", err)
	}

	after, _ := store.GetItem(context.Background(), id)
	if !after.Quantity.Equal(decimal.NewFromInt(3)) {
		t.Errorf("rejected restores mutated quantity to %s", after.Quantity)
	}
}

func TestListItems_HidesConsumed(t *testing.T) {
	store := memstore.New()
	at := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for _, st := range []model.Status{
		model.StatusInStock, model.StatusProcessed, model.StatusWaste, model.StatusConsumed,
	} {
		store.Seed(model.InventoryItem{
			Name: "猪肉", Category: "meat", Location: model.LocationFridge,
			Quantity: decimal.NewFromInt(1), Unit: "块", Status: st,
			CreatedAt: at, UpdatedAt: at,
		})
	}

	items, err := New(store, zap.NewNop()).ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3 (consumed hidden)", len(items))
	}
	for _, it := range items {
		if it.Status == model.StatusConsumed {
			t.Fatalf("consumed row %d leaked into the listing", it.ID)
		}
	}
}
