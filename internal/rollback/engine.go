// Package rollback undoes splits by compensating action: delete a
// processed item's descendants, restore the item to in_stock. There is
// no write-ahead log to replay; the parent's untouched quantity is what
// makes the compensation safe.
package rollback

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/larderhq/inventory-ledger-service/internal/ledger"
	"github.com/larderhq/inventory-ledger-service/internal/lineage"
	"github.com/larderhq/inventory-ledger-service/internal/model"
)

type Engine struct {
	store  ledger.Store
	logger *zap.Logger

	// now is swapped out by tests.
	now func() time.Time
}

func New(store ledger.Store, logger *zap.Logger) *Engine {
	return &Engine{store: store, logger: logger, now: time.Now}
}

// Result reports one rollback invocation.
type Result struct {
	Restored        []int64
	DeletedChildren int64
}

// Preview lists the candidates the window would roll back, most recent
// activity first, without touching anything.
func (e *Engine) Preview(ctx context.Context, w Window) ([]ledger.Candidate, error) {
	candidates, err := e.store.ProcessedCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processed candidates: %w", err)
	}
	return w.Select(candidates, e.now()), nil
}

// Execute rolls back every candidate in the window inside a single
// transaction: the entire descendant subtree of each candidate is
// deleted, not only direct children, so no orphans survive, and the
// candidate returns to in_stock with its quantity untouched. A candidate
// sitting inside another candidate's subtree is not restored on its own;
// the ancestor's cascade deletes it, and restoring it first would leave
// the transition racing that delete.
//
// Idempotent: a restored item is no longer processed, so a repeat
// invocation selects zero candidates and changes nothing.
func (e *Engine) Execute(ctx context.Context, w Window) (*Result, error) {
	selected, err := e.Preview(ctx, w)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return &Result{}, nil
	}

	all, err := e.store.AllItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger lineage: %w", err)
	}
	forest := lineage.Build(all)
	covered := coveredByAncestor(forest, selected)

	result := &Result{}
	err = e.store.WithTx(ctx, func(tx ledger.Tx) error {
		for _, c := range selected {
			if covered[c.Item.ID] {
				e.logger.Info("candidate sits inside another candidate's subtree, ancestor cascade covers it",
					zap.Int64("item_id", c.Item.ID))
				continue
			}
			if !forest.Conserved(c.Item.ID) {
				e.logger.Warn("candidate's children do not conserve its quantity",
					zap.Int64("item_id", c.Item.ID),
					zap.String("quantity", c.Item.Quantity.String()))
			}
			deleted, err := tx.DeleteDescendants(ctx, c.Item.ID)
			if err != nil {
				return err
			}
			if err := tx.TransitionStatus(ctx, c.Item.ID, model.StatusProcessed, model.StatusInStock); err != nil {
				return err
			}
			result.DeletedChildren += deleted
			result.Restored = append(result.Restored, c.Item.ID)
		}
		return nil
	})
	if err != nil {
		// Whole invocation aborts; no candidate is partially restored.
		e.logger.Error("rollback aborted",
			zap.String("window", w.String()),
			zap.Error(err))
		return nil, fmt.Errorf("rollback transaction: %w", err)
	}

	e.logger.Info("rollback committed",
		zap.String("window", w.String()),
		zap.Int64s("restored", result.Restored),
		zap.Int64("deleted_children", result.DeletedChildren))
	return result, nil
}

// coveredByAncestor reports which selected candidates lie inside the
// subtree of another selected candidate. The ancestor rollback subsumes
// them: its cascade deletes the whole subtree, nested candidates
// included.
func coveredByAncestor(forest *lineage.Forest, selected []ledger.Candidate) map[int64]bool {
	chosen := make(map[int64]bool, len(selected))
	for _, c := range selected {
		chosen[c.Item.ID] = true
	}
	covered := make(map[int64]bool)
	for _, c := range selected {
		for _, id := range forest.DescendantIDs(c.Item.ID) {
			if chosen[id] {
				covered[id] = true
			}
		}
	}
	return covered
}
