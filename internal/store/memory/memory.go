// Package memory is an in-process transaction store. It backs tests and the
// "memory" data backend.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/store"
)

var _ store.Store = (*Store)(nil)

type entry struct {
	tx  core.Transaction
	seq int64
}

type Store struct {
	mu    sync.Mutex
	items []entry
	seq   int64
	now   func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// NewWithClock is New with an injectable creation-time source.
func NewWithClock(now func() time.Time) *Store {
	return &Store{now: now}
}

// NewFromFile seeds a store from a pipe-separated file with one transaction
// per line: date|type|amount|description|category. Blank lines, comments and
// lines that fail validation are skipped. A missing file gives an empty store.
func NewFromFile(path string) *Store {
	s := New()
	for _, line := range readLines(path) {
		d, err := parseSeedLine(line)
		if err != nil {
			continue
		}
		_, _ = s.Insert(context.Background(), d)
	}
	return s
}

// Insert validates and stores the draft.
func (s *Store) Insert(_ context.Context, d core.TransactionDraft) (core.Transaction, error) {
	d = d.Normalized()
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	tx := core.Transaction{
		ID:          uuid.NewString(),
		Type:        d.Type,
		Amount:      d.Amount,
		Description: d.Description,
		Category:    d.Category,
		Date:        d.Date,
		CreatedAt:   s.now().UTC(),
	}
	s.items = append(s.items, entry{tx: tx, seq: s.seq})
	return tx, nil
}

// List returns matching transactions, newest date first.
func (s *Store) List(_ context.Context, q store.Query) ([]core.Transaction, error) {
	s.mu.Lock()
	matched := make([]entry, 0, len(s.items))
	for _, e := range s.items {
		if q.Matches(e.tx) {
			matched = append(matched, e)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.tx.Date.Equal(b.tx.Date.Time) {
			return a.tx.Date.After(b.tx.Date.Time)
		}
		if !a.tx.CreatedAt.Equal(b.tx.CreatedAt) {
			return a.tx.CreatedAt.After(b.tx.CreatedAt)
		}
		return a.seq > b.seq
	})
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	out := make([]core.Transaction, len(matched))
	for i, e := range matched {
		out[i] = e.tx
	}
	return out, nil
}

// Summary aggregates the transactions in r.
func (s *Store) Summary(ctx context.Context, r ledger.DateRange) (ledger.Summary, error) {
	txs, err := s.List(ctx, store.Query{Range: r})
	if err != nil {
		return ledger.Summary{}, err
	}
	return ledger.Summarize(txs), nil
}

// Delete removes the transaction with the given id.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.items {
		if e.tx.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Len returns the number of stored transactions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func parseSeedLine(line string) (core.TransactionDraft, error) {
	parts := strings.Split(line, "|")
	if len(parts) < 4 {
		return core.TransactionDraft{}, fmt.Errorf("seed line %q: want at least 4 fields", line)
	}
	date, err := core.ParseDate(parts[0])
	if err != nil {
		return core.TransactionDraft{}, err
	}
	typ, err := core.ParseTransactionType(parts[1])
	if err != nil {
		return core.TransactionDraft{}, err
	}
	cents, err := core.ParseDecimalToCents(parts[2])
	if err != nil {
		return core.TransactionDraft{}, err
	}
	d := core.TransactionDraft{
		Type:        typ,
		Amount:      core.Money{Cents: cents},
		Description: parts[3],
		Date:        date,
	}
	if len(parts) > 4 {
		d.Category = parts[4]
	}
	return d, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
