package plan

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/larderhq/inventory-ledger-service/internal/model"
)

// Validate rules on a plan against a snapshot of in_stock items indexed
// by id. It is pure: no store access, no side effects, total over any
// decoded plan. Any error-severity diagnostic rejects the whole plan;
// warnings are recorded and let execution proceed.
//
// Because the snapshot holds only in_stock rows, a reference to an id
// missing from it covers both "item does not exist" and "item is in a
// terminal state": either way the state machine forbids touching it.
func Validate(snap map[int64]model.InventoryItem, p *Plan) Verdict {
	v := &validation{snap: snap}
	v.diags = append(v.diags, p.Malformed...)

	// First pass: per-action checks, and group split children by parent.
	for i, a := range p.Actions {
		switch act := a.(type) {
		case Update:
			v.checkUpdate(i, act)
		case Insert:
			v.checkInsert(i, act)
		case MarkProcessed:
			v.checkRef(i, act.ID)
			v.marked = append(v.marked, act.ID)
			v.touch(i, act.ID)
		case MarkWaste:
			v.checkRef(i, act.ID)
			v.touch(i, act.ID)
		case ConsumeLog:
			v.checkRef(i, act.ID)
			v.touch(i, act.ID)
		}
	}

	// Second pass: aggregate conservation per split parent.
	v.checkConservation()

	verdict := Verdict{Diagnostics: v.diags, Decision: Accept}
	for _, d := range v.diags {
		if d.Severity == SeverityError {
			verdict.Decision = Reject
			return verdict
		}
	}
	if len(v.diags) > 0 {
		verdict.Decision = AcceptWithWarnings
	}
	return verdict
}

type childInsert struct {
	index  int
	action Insert
}

type validation struct {
	snap     map[int64]model.InventoryItem
	diags    []Diagnostic
	marked   []int64
	children map[int64][]childInsert
	touched  map[int64]int // id -> index of first status-changing action
}

func (v *validation) add(sev Severity, code Code, idx int, itemID int64, format string, args ...any) {
	v.diags = append(v.diags, Diagnostic{
		Severity:    sev,
		Code:        code,
		ActionIndex: idx,
		ItemID:      itemID,
		Message:     fmt.Sprintf(format, args...),
	})
}

// checkRef verifies that id names a currently stocked item.
func (v *validation) checkRef(idx int, id int64) bool {
	if _, ok := v.snap[id]; !ok {
		v.add(SeverityError, CodeUnknownItem, idx, id,
			"item %d is not in stock (unknown id or terminal status)", id)
		return false
	}
	return true
}

// touch records a status-changing action against id; a second one in the
// same plan double-counts the item and is rejected.
func (v *validation) touch(idx int, id int64) {
	if v.touched == nil {
		v.touched = make(map[int64]int)
	}
	if first, dup := v.touched[id]; dup {
		v.add(SeverityError, CodeInvalidStatusTransition, idx, id,
			"item %d already transitioned by action %d in this plan", id, first)
		return
	}
	v.touched[id] = idx
}

func (v *validation) checkUpdate(idx int, act Update) {
	if !v.checkRef(idx, act.ID) {
		return
	}
	if act.Location == nil && act.Status == nil && act.ExpiryDate == nil {
		v.add(SeverityError, CodeMissingRequiredField, idx, act.ID,
			"UPDATE carries none of location, status, expiry_date")
	}
	if act.Quantity != nil {
		v.add(SeverityWarning, CodeSuspiciousQuantity, idx, act.ID,
			"quantity on UPDATE is never applied; the executor will drop it")
	}
	if act.Status != nil && *act.Status != model.StatusInStock {
		v.add(SeverityError, CodeInvalidStatusTransition, idx, act.ID,
			"UPDATE may not move status to %q; use MARK_PROCESSED, MARK_WASTE or CONSUME_LOG", *act.Status)
	}
}

func (v *validation) checkInsert(idx int, act Insert) {
	if act.Name == "" {
		v.add(SeverityError, CodeMissingRequiredField, idx, 0, "INSERT requires item_name")
	}
	if act.Category == "" {
		v.add(SeverityError, CodeMissingRequiredField, idx, 0, "INSERT requires category")
	}
	if act.Unit == "" {
		v.add(SeverityError, CodeMissingRequiredField, idx, 0, "INSERT requires unit")
	}
	if act.Quantity.IsNegative() {
		v.add(SeverityError, CodeNegativeQuantity, idx, 0,
			"quantity %s is negative", act.Quantity)
	}
	if model.DiscreteUnit(act.Unit) && !model.IntegralQuantity(act.Quantity) {
		v.add(SeverityError, CodeFractionalDiscreteUnit, idx, 0,
			"unit %q is counted; quantity %s must be integral", act.Unit, act.Quantity)
	}

	if act.ParentID == nil {
		if act.Status != model.StatusInStock {
			v.add(SeverityError, CodeInvalidStatusTransition, idx, 0,
				"new root items start in_stock, got %q", act.Status)
		}
		if act.Quantity.IsZero() {
			v.add(SeverityError, CodeZeroQuantity, idx, 0,
				"new root items need a positive quantity, got %s", act.Quantity)
		}
		return
	}

	// Split child.
	parentID := *act.ParentID
	parent, ok := v.snap[parentID]
	if !ok {
		v.add(SeverityError, CodeUnknownItem, idx, parentID,
			"parent %d is not in stock (unknown id or terminal status)", parentID)
		return
	}
	if act.Status != model.StatusInStock && act.Status != model.StatusConsumed {
		v.add(SeverityError, CodeInvalidStatusTransition, idx, parentID,
			"split children are created in_stock or consumed, got %q", act.Status)
	}
	if act.Unit != parent.Unit {
		v.add(SeverityError, CodeUnitMismatch, idx, parentID,
			"child unit %q does not match parent unit %q; quantities are never reinterpreted across units", act.Unit, parent.Unit)
		return
	}
	if act.Quantity.LessThanOrEqual(model.Epsilon) && !act.Quantity.IsNegative() {
		v.add(SeverityError, CodeDegenerateSplit, idx, parentID,
			"child quantity %s%s is a degenerate split of %s%s; use CONSUME_LOG on item %d instead",
			act.Quantity, act.Unit, parent.Quantity, parent.Unit, parentID)
	}
	if act.Quantity.GreaterThan(parent.Quantity) {
		v.add(SeverityWarning, CodeSuspiciousQuantity, idx, parentID,
			"single child quantity %s exceeds parent total %s", act.Quantity, parent.Quantity)
	}
	if v.children == nil {
		v.children = make(map[int64][]childInsert)
	}
	v.children[parentID] = append(v.children[parentID], childInsert{index: idx, action: act})
}

// checkConservation enforces the split invariant per parent: children
// must exist for every MARK_PROCESSED, must be preceded by one, and must
// sum to the parent's quantity within Epsilon, in the parent's unit.
func (v *validation) checkConservation() {
	markedSet := make(map[int64]bool, len(v.marked))
	for _, id := range v.marked {
		markedSet[id] = true
	}

	for _, parentID := range v.marked {
		parent, ok := v.snap[parentID]
		if !ok {
			continue // already rejected by checkRef
		}
		group := v.children[parentID]
		if len(group) == 0 {
			v.add(SeverityError, CodeConservationViolation, -1, parentID,
				"MARK_PROCESSED on item %d has no child INSERTs; a split must conserve %s%s through children in the same plan",
				parentID, parent.Quantity, parent.Unit)
			continue
		}
		v.checkGroupSum(parentID, parent, group)
	}

	// Children whose parent was never marked in this plan: the parent
	// would stay in_stock next to rows claiming portions of it, which
	// double-counts quantity.
	for parentID, group := range v.children {
		if markedSet[parentID] {
			continue
		}
		parent, ok := v.snap[parentID]
		if !ok {
			continue
		}
		v.add(SeverityError, CodeInvalidStatusTransition, group[0].index, parentID,
			"INSERT children of item %d require MARK_PROCESSED on it in the same plan", parentID)
		v.checkGroupSum(parentID, parent, group)
	}
}

func (v *validation) checkGroupSum(parentID int64, parent model.InventoryItem, group []childInsert) {
	sum := decimal.Zero
	remaining := decimal.Zero
	locationChange := false
	for _, c := range group {
		if c.action.Unit != parent.Unit {
			return // unit mismatch already rejected; the sum is meaningless
		}
		sum = sum.Add(c.action.Quantity)
		if c.action.Status == model.StatusInStock {
			remaining = remaining.Add(c.action.Quantity)
		}
		if c.action.Location != nil && *c.action.Location != parent.Location {
			locationChange = true
		}
	}

	if sum.Sub(parent.Quantity).Abs().GreaterThan(model.Epsilon) {
		v.add(SeverityError, CodeConservationViolation, -1, parentID,
			"children of item %d sum to %s%s, parent holds %s%s (tolerance %s)",
			parentID, sum, parent.Unit, parent.Quantity, parent.Unit, model.Epsilon)
	}

	// A split that leaves more in stock than it started with, without
	// moving anything, is the planner inventing food.
	if remaining.GreaterThan(parent.Quantity) && !locationChange {
		v.add(SeverityWarning, CodeSuspiciousQuantity, -1, parentID,
			"computed remainder %s%s exceeds the original %s%s with no location change",
			remaining, parent.Unit, parent.Quantity, parent.Unit)
	}
}
