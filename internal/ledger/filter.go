// Package ledger holds the pure aggregation engine: range filtering,
// summaries, day buckets and pagination over transactions.
//
// Every function here is synchronous, allocation-only and safe to call from
// any goroutine. None of them mutate their input.
package ledger

import (
	"time"

	"ledger/internal/core"
)

// DateRange is an inclusive calendar-day interval. A zero Start or End means
// that side is unbounded.
type DateRange struct {
	Start core.Date
	End   core.Date
}

// NewDateRange builds a range from arbitrary instants, keeping only the
// calendar day of each bound. Zero times leave the bound open.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: core.DateOf(start), End: core.DateOf(end)}
}

// IsUnbounded reports whether neither bound is set.
func (r DateRange) IsUnbounded() bool {
	return r.Start.IsEmpty() && r.End.IsEmpty()
}

// IsInverted reports whether both bounds are set and Start is after End.
// An inverted range matches nothing.
func (r DateRange) IsInverted() bool {
	return !r.Start.IsEmpty() && !r.End.IsEmpty() && r.Start.After(r.End.Time)
}

// Contains reports whether d falls inside the range, both ends inclusive.
func (r DateRange) Contains(d core.Date) bool {
	day := core.DateOf(d.Time)
	if !r.Start.IsEmpty() && day.Before(core.DateOf(r.Start.Time).Time) {
		return false
	}
	if !r.End.IsEmpty() && day.After(core.DateOf(r.End.Time).Time) {
		return false
	}
	return true
}

// Apply returns the transactions whose date lies in r, preserving their
// relative order. The result is never nil.
func Apply(txs []core.Transaction, r DateRange) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	if r.IsInverted() {
		return out
	}
	for _, tx := range txs {
		if r.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	return out
}
