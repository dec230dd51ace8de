// Package plan models mutation plans proposed by the external planner and
// validates them against a ledger snapshot. Plans cross a trust boundary:
// the planner hallucinates, double-counts, and mangles fields, so nothing
// in a decoded plan is believed until the validator has ruled on it.
package plan

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/larderhq/inventory-ledger-service/internal/model"
)

// Kind tags the five action variants of the wire format.
type Kind string

const (
	KindUpdate        Kind = "UPDATE"
	KindInsert        Kind = "INSERT"
	KindMarkProcessed Kind = "MARK_PROCESSED"
	KindMarkWaste     Kind = "MARK_WASTE"
	KindConsumeLog    Kind = "CONSUME_LOG"
)

// Action is the closed set of plan actions. Implementations live in this
// package only; a switch over the concrete types is exhaustive.
type Action interface {
	Kind() Kind
}

// Update moves or relabels an item without changing its quantity.
// Quantity is carried only so the validator can flag it and the executor
// can drop it: the field is never applied.
type Update struct {
	ID         int64
	Location   *model.Location
	Status     *model.Status
	ExpiryDate *time.Time
	Quantity   *decimal.Decimal
}

// Insert creates a new ledger row. A non-nil ParentID makes the row a
// split child of that parent; children must carry the parent's unit.
type Insert struct {
	Name       string
	Category   string
	Location   *model.Location
	Quantity   decimal.Decimal
	Unit       string
	ExpiryDate *time.Time
	Status     model.Status
	ParentID   *int64
}

// MarkProcessed marks the source item of a split; its quantity stays
// untouched and the same plan must conserve it through Insert children.
type MarkProcessed struct {
	ID int64
}

// MarkWaste discards an item. Terminal.
type MarkWaste struct {
	ID int64
}

// ConsumeLog records an item as fully consumed. Terminal; quantity
// untouched.
type ConsumeLog struct {
	ID int64
}

func (Update) Kind() Kind        { return KindUpdate }
func (Insert) Kind() Kind        { return KindInsert }
func (MarkProcessed) Kind() Kind { return KindMarkProcessed }
func (MarkWaste) Kind() Kind     { return KindMarkWaste }
func (ConsumeLog) Kind() Kind    { return KindConsumeLog }

// Plan is an ordered sequence of proposed actions. Malformed carries
// wire-level defects found while decoding; a plan with malformed records
// can still be handed to the validator, which turns them into a reject
// verdict instead of panicking on half-built actions.
type Plan struct {
	ID        uuid.UUID
	Actions   []Action
	Malformed []Diagnostic
}
