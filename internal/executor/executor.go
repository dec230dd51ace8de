// Package executor applies accepted plans to the ledger, one store
// transaction per plan: every action commits or none does.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/larderhq/inventory-ledger-service/internal/ledger"
	"github.com/larderhq/inventory-ledger-service/internal/model"
	"github.com/larderhq/inventory-ledger-service/internal/plan"
)

// ErrPlanRejected: a plan whose verdict is reject reached Execute. The
// executor never applies unvalidated or rejected plans.
var ErrPlanRejected = errors.New("executor: plan was not accepted by the validator")

// TransactionError wraps a store-level failure that aborted the plan's
// transaction. Nothing was applied; the operator re-runs after fixing
// the cause. Not retried automatically.
type TransactionError struct {
	PlanID uuid.UUID
	Err    error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("plan %s: store transaction aborted: %v", e.PlanID, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// Report summarizes what a committed plan did.
type Report struct {
	PlanID      uuid.UUID
	InsertedIDs []int64
	Patched     int
	Transitions int
	Warnings    []string
}

type Executor struct {
	store  ledger.Store
	logger *zap.Logger
}

func New(store ledger.Store, logger *zap.Logger) *Executor {
	return &Executor{store: store, logger: logger}
}

// Execute applies every action of an accepted plan, in plan order,
// inside one transaction. The verdict must come from the validator; a
// reject verdict (or a missing one) fails before any store access.
func (e *Executor) Execute(ctx context.Context, p *plan.Plan, verdict plan.Verdict) (*Report, error) {
	if !verdict.Accepted() {
		return nil, ErrPlanRejected
	}

	report := &Report{PlanID: p.ID}
	err := e.store.WithTx(ctx, func(tx ledger.Tx) error {
		for i, a := range p.Actions {
			if err := e.apply(ctx, tx, report, a); err != nil {
				return fmt.Errorf("action %d (%s): %w", i, a.Kind(), err)
			}
		}
		return nil
	})
	if err != nil {
		e.logger.Error("plan aborted, no actions applied",
			zap.String("plan_id", p.ID.String()),
			zap.Error(err))
		return nil, &TransactionError{PlanID: p.ID, Err: err}
	}

	e.logger.Info("plan committed",
		zap.String("plan_id", p.ID.String()),
		zap.Int("actions", len(p.Actions)),
		zap.Int64s("inserted_ids", report.InsertedIDs),
		zap.Int("warnings", len(report.Warnings)))
	return report, nil
}

func (e *Executor) apply(ctx context.Context, tx ledger.Tx, report *Report, a plan.Action) error {
	switch act := a.(type) {
	case plan.Update:
		// Quantity never moves through UPDATE. The validator already
		// warned; dropping it here keeps the invariant even for plans
		// that skipped validation warnings.
		if act.Quantity != nil {
			msg := fmt.Sprintf("item %d: quantity %s on UPDATE dropped", act.ID, act.Quantity)
			report.Warnings = append(report.Warnings, msg)
			e.logger.Warn("dropping quantity field on UPDATE",
				zap.Int64("item_id", act.ID),
				zap.String("quantity", act.Quantity.String()))
		}
		patch := ledger.FieldPatch{
			Location:   act.Location,
			Status:     act.Status,
			ExpiryDate: act.ExpiryDate,
		}
		if patch.Empty() {
			return fmt.Errorf("empty UPDATE for item %d", act.ID)
		}
		if err := tx.PatchItem(ctx, act.ID, patch); err != nil {
			return err
		}
		report.Patched++
		return nil

	case plan.Insert:
		item := &model.InventoryItem{
			Name:       act.Name,
			Category:   act.Category,
			Quantity:   act.Quantity,
			Unit:       act.Unit,
			ExpiryDate: act.ExpiryDate,
			Status:     act.Status,
			ParentID:   act.ParentID,
		}
		if item.Category == "" {
			item.Category = "uncategorized"
		}
		if item.Status == "" {
			item.Status = model.StatusInStock
		}
		if act.Location != nil {
			item.Location = *act.Location
		} else {
			// Consumed split portions legitimately omit location.
			item.Location = model.LocationFridge
		}
		id, err := tx.InsertItem(ctx, item)
		if err != nil {
			return err
		}
		report.InsertedIDs = append(report.InsertedIDs, id)
		return nil

	case plan.MarkProcessed:
		return e.transition(ctx, tx, report, act.ID, model.StatusProcessed)
	case plan.MarkWaste:
		return e.transition(ctx, tx, report, act.ID, model.StatusWaste)
	case plan.ConsumeLog:
		return e.transition(ctx, tx, report, act.ID, model.StatusConsumed)
	}
	return fmt.Errorf("unhandled action kind %T", a)
}

func (e *Executor) transition(ctx context.Context, tx ledger.Tx, report *Report, id int64, to model.Status) error {
	// Guarded at the store: the row must still be in_stock. Quantity is
	// never touched by any status transition.
	if err := tx.TransitionStatus(ctx, id, model.StatusInStock, to); err != nil {
		return err
	}
	report.Transitions++
	return nil
}
