// Package intake loads externally produced item records — scan output or
// hand-written JSON — into the ledger as fresh in_stock rows. Producers
// are sloppy, so records are validated and defaulted before insert.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/larderhq/inventory-ledger-service/internal/ledger"
	"github.com/larderhq/inventory-ledger-service/internal/model"
)

// Record is one incoming item. Matches the scan producer's output shape.
type Record struct {
	ItemName   string           `json:"item_name" validate:"required"`
	Category   string           `json:"category"`
	Location   string           `json:"location" validate:"required,oneof=fridge freezer pantry"`
	Quantity   *decimal.Decimal `json:"quantity"`
	Unit       string           `json:"unit"`
	ExpiryDate string           `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
	Status     string           `json:"status" validate:"omitempty,oneof=in_stock"`
}

var recordValidate = validator.New()

type Loader struct {
	store  ledger.Store
	logger *zap.Logger
}

func NewLoader(store ledger.Store, logger *zap.Logger) *Loader {
	return &Loader{store: store, logger: logger}
}

// LoadFile reads a JSON array of records from path and inserts them in
// one transaction. Any bad record aborts the whole load.
func (l *Loader) LoadFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	return l.Load(ctx, data)
}

// Load inserts a JSON array of records as in_stock root items.
func (l *Loader) Load(ctx context.Context, data []byte) (int, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("intake file is not a JSON record list: %w", err)
	}

	items := make([]*model.InventoryItem, 0, len(records))
	for i, rec := range records {
		item, err := rec.toItem()
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		items = append(items, item)
	}

	err := l.store.WithTx(ctx, func(tx ledger.Tx) error {
		for _, item := range items {
			if _, err := tx.InsertItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("intake transaction: %w", err)
	}

	l.logger.Info("intake committed", zap.Int("items", len(items)))
	return len(items), nil
}

func (r Record) toItem() (*model.InventoryItem, error) {
	if err := recordValidate.Struct(r); err != nil {
		return nil, err
	}

	item := &model.InventoryItem{
		Name:     r.ItemName,
		Category: r.Category,
		Location: model.Location(r.Location),
		Unit:     r.Unit,
		Status:   model.StatusInStock,
	}
	// Producer defaults, same as the scan pipeline's loader.
	if item.Category == "" {
		item.Category = "uncategorized"
	}
	if item.Unit == "" {
		item.Unit = "个"
	}
	if r.Quantity == nil {
		item.Quantity = decimal.NewFromInt(1)
	} else {
		item.Quantity = *r.Quantity
	}

	if item.Quantity.Sign() <= 0 {
		return nil, fmt.Errorf("quantity %s must be positive", item.Quantity)
	}
	if model.DiscreteUnit(item.Unit) && !model.IntegralQuantity(item.Quantity) {
		return nil, fmt.Errorf("unit %q is counted, quantity %s must be integral", item.Unit, item.Quantity)
	}

	if r.ExpiryDate != "" {
		t, err := time.Parse(model.DateLayout, r.ExpiryDate)
		if err != nil {
			return nil, fmt.Errorf("expiry_date %q: %w", r.ExpiryDate, err)
		}
		item.ExpiryDate = &t
	}
	return item, nil
}
