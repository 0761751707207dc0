package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/store"
)

func draft(typ core.TransactionType, cents int64, desc string, y, m, d int) core.TransactionDraft {
	return core.TransactionDraft{Type: typ, Amount: core.Money{Cents: cents}, Description: desc, Date: core.NewDate(y, m, d)}
}

func TestInsertListDelete(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s := NewWithClock(func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Second) })

	first, err := s.Insert(ctx, draft(core.Income, 10000, " sale ", 2024, 1, 1))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first.ID == "" || first.Description != "sale" || first.CreatedAt.IsZero() {
		t.Fatalf("unexpected transaction %+v", first)
	}
	if _, err := s.Insert(ctx, draft(core.Expense, 4000, "rent", 2024, 1, 1)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Insert(ctx, draft(core.Income, 5000, "sale2", 2024, 1, 2)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.List(ctx, store.Query{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"sale2", "rent", "sale"}
	for i, tx := range got {
		if tx.Description != want[i] {
			t.Fatalf("order[%d] = %q, want %q", i, tx.Description, want[i])
		}
	}

	incomes, _ := s.List(ctx, store.Query{Type: core.Income, Limit: 1})
	if len(incomes) != 1 || incomes[0].Description != "sale2" {
		t.Fatalf("type+limit filter = %+v", incomes)
	}

	if err := s.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, first.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("len = %d", s.Len())
	}
}

func TestInsertRejectsInvalidDraft(t *testing.T) {
	s := New()
	_, err := s.Insert(context.Background(), draft(core.Income, 0, "x", 2024, 1, 1))
	if !errors.Is(err, core.ErrValidation) || !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected amount validation error, got %v", err)
	}
	_, err = s.Insert(context.Background(), draft(core.Income, 100, "", 2024, 1, 1))
	if !errors.Is(err, core.ErrEmptyDescription) {
		t.Fatalf("expected empty description error, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("invalid drafts must not be stored")
	}
}

func TestSummaryMatchesEngine(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := 1; i <= 28; i++ {
		typ := core.Income
		if i%3 == 0 {
			typ = core.Expense
		}
		if _, err := s.Insert(ctx, draft(typ, int64(i*137), "t", 2024, 2, i)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	ranges := []ledger.DateRange{
		{},
		{Start: core.NewDate(2024, 2, 10)},
		{End: core.NewDate(2024, 2, 3)},
		{Start: core.NewDate(2024, 2, 5), End: core.NewDate(2024, 2, 5)},
		{Start: core.NewDate(2024, 2, 9), End: core.NewDate(2024, 2, 1)},
	}
	all, _ := s.List(ctx, store.Query{})
	for _, r := range ranges {
		got, err := s.Summary(ctx, r)
		if err != nil {
			t.Fatalf("summary: %v", err)
		}
		if want := ledger.Summarize(ledger.Apply(all, r)); got != want {
			t.Fatalf("range %+v: store %+v, engine %+v", r, got, want)
		}
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	if s := NewFromFile(filepath.Join(dir, "missing.txt")); s.Len() != 0 {
		t.Fatalf("missing file should give empty store")
	}

	content := "# seed\n" +
		"2024-01-01|income|100.00|Sale|Sales\n" +
		"\n" +
		"2024-01-02|expense|40|Rent\n" +
		"2024-01-03|refund|1|bad type\n" +
		"not-a-date|income|1|bad date\n" +
		"2024-01-04|income|0|zero amount\n"
	path := filepath.Join(dir, "seed.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s := NewFromFile(path)
	if s.Len() != 2 {
		t.Fatalf("expected 2 seeded rows, got %d", s.Len())
	}
	sum, _ := s.Summary(context.Background(), ledger.DateRange{})
	if sum.TotalIncome.Cents != 10000 || sum.TotalExpenses.Cents != 4000 {
		t.Fatalf("seed summary = %+v", sum)
	}
}
