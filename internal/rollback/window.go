package rollback

import (
	"errors"
	"fmt"
	"time"

	"github.com/larderhq/inventory-ledger-service/internal/ledger"
)

// ErrWindowConflict: more than one selection mode was requested. Exactly
// one is active per invocation; with none given the window is today.
var ErrWindowConflict = errors.New("rollback: --all, --last and --days are mutually exclusive")

type mode int

const (
	modeToday mode = iota // default: candidates active today
	modeAll               // every processed candidate
	modeLastN             // N most recently active candidates
	modeDays              // candidates active in the trailing N days
)

// Window selects which processed candidates a rollback invocation
// covers. Build one with NewWindow; the zero value means today.
type Window struct {
	mode  mode
	count int
	days  int
}

// NewWindow builds a selection window from operator flags. all, lastN>0
// and days>0 each activate a mode; more than one is a conflict, and
// negative counts are operator errors rather than a silent fallthrough
// to the today default.
func NewWindow(all bool, lastN, days int) (Window, error) {
	if lastN < 0 {
		return Window{}, fmt.Errorf("rollback: --last must be positive, got %d", lastN)
	}
	if days < 0 {
		return Window{}, fmt.Errorf("rollback: --days must be positive, got %d", days)
	}
	active := 0
	w := Window{mode: modeToday}
	if all {
		active++
		w.mode = modeAll
	}
	if lastN > 0 {
		active++
		w.mode = modeLastN
		w.count = lastN
	}
	if days > 0 {
		active++
		w.mode = modeDays
		w.days = days
	}
	if active > 1 {
		return Window{}, ErrWindowConflict
	}
	return w, nil
}

func (w Window) String() string {
	switch w.mode {
	case modeAll:
		return "all"
	case modeLastN:
		return fmt.Sprintf("last %d", w.count)
	case modeDays:
		return fmt.Sprintf("trailing %d days", w.days)
	}
	return "today"
}

// Select filters candidates (already ordered most recent first) down to
// the window. Pure; time-based modes cut at local midnight like the
// operator thinks of "today" and "the last N days".
func (w Window) Select(candidates []ledger.Candidate, now time.Time) []ledger.Candidate {
	switch w.mode {
	case modeAll:
		return candidates
	case modeLastN:
		if len(candidates) > w.count {
			return candidates[:w.count]
		}
		return candidates
	case modeDays:
		return since(candidates, midnight(now).AddDate(0, 0, -w.days))
	default:
		return since(candidates, midnight(now))
	}
}

func since(candidates []ledger.Candidate, cutoff time.Time) []ledger.Candidate {
	var out []ledger.Candidate
	for _, c := range candidates {
		if !c.LastActivity.Before(cutoff) {
			out = append(out, c)
		}
	}
	return out
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
