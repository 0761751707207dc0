package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"ledger/internal/ledger"
)

// ErrStaleView is returned when a newer load started before this one finished.
var ErrStaleView = errors.New("view superseded by a newer request")

// ViewSource loads a single view. *LedgerService implements it.
type ViewSource interface {
	LoadView(ctx context.Context, q ViewQuery) (*View, error)
}

// ViewLoader applies last-writer-wins to one caller's view loads. Every call
// draws a sequence number; only the result of the newest call is returned,
// older ones get ErrStaleView. When a load fails the last good view for the
// same range, if any, is returned alongside the error.
type ViewLoader struct {
	src ViewSource
	seq atomic.Uint64

	mu      sync.Mutex
	last    *View
	lastSeq uint64
}

func NewViewLoader(src ViewSource) *ViewLoader {
	return &ViewLoader{src: src}
}

// Load fetches the view for q.
func (l *ViewLoader) Load(ctx context.Context, q ViewQuery) (*View, error) {
	seq := l.seq.Add(1)
	v, err := l.src.LoadView(ctx, q)
	if seq != l.seq.Load() {
		return nil, ErrStaleView
	}
	if err != nil {
		if last := l.LastGood(); last != nil && sameRange(last.Range, q.Range) {
			return last, err
		}
		return nil, err
	}

	l.mu.Lock()
	if seq > l.lastSeq {
		l.last, l.lastSeq = v, seq
	}
	l.mu.Unlock()
	return v, nil
}

// LastGood returns the most recent successfully loaded view, or nil.
func (l *ViewLoader) LastGood() *View {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

func sameRange(a, b ledger.DateRange) bool {
	return a.Start.Equal(b.Start.Time) && a.End.Equal(b.End.Time)
}
