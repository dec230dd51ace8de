package plan

import "fmt"

// Severity of a diagnostic. Errors reject the plan outright; warnings are
// recorded for the operator to audit and do not block execution.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Code identifies the class of a diagnostic.
type Code string

const (
	CodeNegativeQuantity        Code = "NegativeQuantity"
	CodeZeroQuantity            Code = "ZeroQuantity"
	CodeUnitMismatch            Code = "UnitMismatch"
	CodeFractionalDiscreteUnit  Code = "FractionalDiscreteUnit"
	CodeConservationViolation   Code = "ConservationViolation"
	CodeDegenerateSplit         Code = "DegenerateSplit"
	CodeMissingRequiredField    Code = "MissingRequiredField"
	CodeUnknownItem             Code = "UnknownItem"
	CodeInvalidStatusTransition Code = "InvalidStatusTransition"
	CodeSuspiciousQuantity      Code = "SuspiciousQuantity"
)

// Diagnostic is one finding against a plan. ActionIndex is the position
// of the offending action in the plan (-1 when the finding spans the
// whole plan, e.g. an aggregate conservation failure keyed to a parent).
type Diagnostic struct {
	Severity    Severity
	Code        Code
	ActionIndex int
	ItemID      int64
	Message     string
}

func (d Diagnostic) String() string {
	if d.ActionIndex >= 0 {
		return fmt.Sprintf("%s %s (action %d): %s", d.Severity, d.Code, d.ActionIndex, d.Message)
	}
	return fmt.Sprintf("%s %s: %s", d.Severity, d.Code, d.Message)
}

// Decision is the validator's overall ruling.
type Decision string

const (
	Accept             Decision = "accept"
	AcceptWithWarnings Decision = "accept_with_warnings"
	Reject             Decision = "reject"
)

// Verdict is the validator's full output: the decision plus every
// diagnostic that produced it.
type Verdict struct {
	Decision    Decision
	Diagnostics []Diagnostic
}

func (v Verdict) Accepted() bool {
	return v.Decision == Accept || v.Decision == AcceptWithWarnings
}

// Errors returns only the error-severity diagnostics.
func (v Verdict) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range v.Diagnostics {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns only the warning-severity diagnostics.
func (v Verdict) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, d := range v.Diagnostics {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}
