package plan

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/larderhq/inventory-ledger-service/internal/model"
)

// wireRecord is the planner's wire shape, §6 of the interface contract.
// Everything is optional at this level; per-kind field contracts are
// enforced while building the typed action and by the validator.
type wireRecord struct {
	Action     string           `json:"action" validate:"required,oneof=UPDATE INSERT MARK_PROCESSED MARK_WASTE CONSUME_LOG"`
	ID         *int64           `json:"id,omitempty"`
	ItemName   string           `json:"item_name,omitempty"`
	Category   string           `json:"category,omitempty"`
	Location   string           `json:"location,omitempty" validate:"omitempty,oneof=fridge freezer pantry"`
	Quantity   *decimal.Decimal `json:"quantity,omitempty"`
	Unit       string           `json:"unit,omitempty"`
	ExpiryDate string           `json:"expiry_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status     string           `json:"status,omitempty" validate:"omitempty,oneof=in_stock consumed processed waste"`
	ParentID   *int64           `json:"parent_id,omitempty"`
}

var wireValidate = validator.New()

// Decode parses a JSON plan from the external planner. It fails only on
// JSON that cannot be parsed at all; records that parse but break the
// wire contract are kept as Malformed diagnostics so the validator can
// return a reject verdict instead of this layer throwing the plan away
// half-read.
func Decode(data []byte) (*Plan, error) {
	var records []wireRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("plan is not a JSON action list: %w", err)
	}

	p := &Plan{ID: uuid.New()}
	for i, rec := range records {
		if err := wireValidate.Struct(rec); err != nil {
			p.Malformed = append(p.Malformed, Diagnostic{
				Severity:    SeverityError,
				Code:        CodeMissingRequiredField,
				ActionIndex: i,
				Message:     fmt.Sprintf("malformed record: %v", err),
			})
			continue
		}
		action, diag := buildAction(i, rec)
		if diag != nil {
			p.Malformed = append(p.Malformed, *diag)
			continue
		}
		p.Actions = append(p.Actions, action)
	}
	return p, nil
}

func buildAction(idx int, rec wireRecord) (Action, *Diagnostic) {
	switch Kind(rec.Action) {
	case KindUpdate:
		if rec.ID == nil {
			return nil, missingField(idx, "UPDATE requires id")
		}
		upd := Update{ID: *rec.ID, Quantity: rec.Quantity}
		if rec.Location != "" {
			loc := model.Location(rec.Location)
			upd.Location = &loc
		}
		if rec.Status != "" {
			st := model.Status(rec.Status)
			upd.Status = &st
		}
		if rec.ExpiryDate != "" {
			upd.ExpiryDate = parseDate(rec.ExpiryDate)
		}
		return upd, nil

	case KindInsert:
		if rec.Quantity == nil {
			return nil, missingField(idx, "INSERT requires quantity")
		}
		ins := Insert{
			Name:     rec.ItemName,
			Category: rec.Category,
			Quantity: *rec.Quantity,
			Unit:     rec.Unit,
			Status:   model.Status(rec.Status),
			ParentID: rec.ParentID,
		}
		if ins.Status == "" {
			// New rows default to in_stock when the planner omits status.
			ins.Status = model.StatusInStock
		}
		if rec.Location != "" {
			loc := model.Location(rec.Location)
			ins.Location = &loc
		}
		if rec.ExpiryDate != "" {
			ins.ExpiryDate = parseDate(rec.ExpiryDate)
		}
		return ins, nil

	case KindMarkProcessed:
		if rec.ID == nil {
			return nil, missingField(idx, "MARK_PROCESSED requires id")
		}
		return MarkProcessed{ID: *rec.ID}, nil

	case KindMarkWaste:
		if rec.ID == nil {
			return nil, missingField(idx, "MARK_WASTE requires id")
		}
		return MarkWaste{ID: *rec.ID}, nil

	case KindConsumeLog:
		if rec.ID == nil {
			return nil, missingField(idx, "CONSUME_LOG requires id")
		}
		return ConsumeLog{ID: *rec.ID}, nil
	}

	// Unreachable: the oneof tag rejects unknown actions earlier.
	return nil, missingField(idx, fmt.Sprintf("unknown action %q", rec.Action))
}

func missingField(idx int, msg string) *Diagnostic {
	return &Diagnostic{
		Severity:    SeverityError,
		Code:        CodeMissingRequiredField,
		ActionIndex: idx,
		Message:     msg,
	}
}

func parseDate(s string) *time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return nil // format already checked by the datetime tag
	}
	return &t
}
