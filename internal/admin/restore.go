// Package admin holds the manual escape hatches that deliberately step
// around the plan pipeline. Quantity restore is the one mutation allowed
// to touch a root item's quantity; it exists for emergency data fixes,
// not for normal operation.
package admin

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/larderhq/inventory-ledger-service/internal/ledger"
	"github.com/larderhq/inventory-ledger-service/internal/model"
)

type Service struct {
	store  ledger.Store
	logger *zap.Logger
}

func New(store ledger.Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// RestoreQuantity overwrites an item's quantity. Other fields are left
// alone. Returns the item as it was before the fix.
func (s *Service) RestoreQuantity(ctx context.Context, id int64, qty decimal.Decimal) (*model.InventoryItem, error) {
	if qty.IsNegative() {
		return nil, fmt.Errorf("restore item %d: quantity %s is negative", id, qty)
	}
	before, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if model.DiscreteUnit(before.Unit) && !model.IntegralQuantity(qty) {
		return nil, fmt.Errorf("restore item %d: unit %q is counted, quantity %s must be integral", id, before.Unit, qty)
	}

	err = s.store.WithTx(ctx, func(tx ledger.Tx) error {
		return tx.SetQuantity(ctx, id, qty)
	})
	if err != nil {
		return nil, fmt.Errorf("restore item %d: %w", id, err)
	}

	s.logger.Warn("administrative quantity restore",
		zap.Int64("item_id", id),
		zap.String("name", before.Name),
		zap.String("old_quantity", before.Quantity.String()),
		zap.String("new_quantity", qty.String()))
	return before, nil
}

// ListItems returns every non-consumed ledger row for the operator's
// inspection, id ascending.
func (s *Service) ListItems(ctx context.Context) ([]model.InventoryItem, error) {
	items, err := s.store.AllItems(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.InventoryItem
	for _, it := range items {
		if it.Status != model.StatusConsumed {
			out = append(out, it)
		}
	}
	return out, nil
}
