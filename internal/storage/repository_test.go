package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/store"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Millisecond) }
	return repo
}

func mustInsert(t *testing.T, repo *SQLiteRepository, typ core.TransactionType, cents int64, desc string, y, m, d int) core.Transaction {
	t.Helper()
	tx, err := repo.Insert(context.Background(), core.TransactionDraft{
		Type:        typ,
		Amount:      core.Money{Cents: cents},
		Description: desc,
		Category:    "cat",
		Date:        core.NewDate(y, m, d),
	})
	if err != nil {
		t.Fatalf("insert %s: %v", desc, err)
	}
	return tx
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := repo.Ping(context.Background()); err != nil {
			t.Fatalf("ping: %v", err)
		}
		repo.Close()
	}
}

func TestInsertAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	sale := mustInsert(t, repo, core.Income, 10000, "sale", 2024, 1, 1)
	mustInsert(t, repo, core.Expense, 4000, "rent", 2024, 1, 1)
	mustInsert(t, repo, core.Income, 5000, "sale2", 2024, 1, 2)

	got, err := repo.List(ctx, store.Query{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"sale2", "rent", "sale"}
	if len(got) != len(want) {
		t.Fatalf("len = %d", len(got))
	}
	for i := range want {
		if got[i].Description != want[i] {
			t.Fatalf("order[%d] = %q, want %q", i, got[i].Description, want[i])
		}
	}

	last := got[2]
	if last.ID != sale.ID || last.Amount.Cents != 10000 || last.Category != "cat" ||
		last.Date.String() != "2024-01-01" || !last.CreatedAt.Equal(sale.CreatedAt) {
		t.Fatalf("round trip mismatch: got %+v, inserted %+v", last, sale)
	}

	filtered, err := repo.List(ctx, store.Query{
		Range: ledger.DateRange{Start: core.NewDate(2024, 1, 2), End: core.NewDate(2024, 1, 2)},
	})
	if err != nil || len(filtered) != 1 || filtered[0].Description != "sale2" {
		t.Fatalf("range filter = %+v, %v", filtered, err)
	}

	expenses, err := repo.List(ctx, store.Query{Type: core.Expense})
	if err != nil || len(expenses) != 1 || expenses[0].Description != "rent" {
		t.Fatalf("type filter = %+v, %v", expenses, err)
	}

	limited, err := repo.List(ctx, store.Query{Limit: 2})
	if err != nil || len(limited) != 2 {
		t.Fatalf("limit = %d, %v", len(limited), err)
	}

	inverted, err := repo.List(ctx, store.Query{
		Range: ledger.DateRange{Start: core.NewDate(2024, 1, 2), End: core.NewDate(2024, 1, 1)},
	})
	if err != nil || inverted == nil || len(inverted) != 0 {
		t.Fatalf("inverted range = %#v, %v", inverted, err)
	}
}

func TestInsertValidation(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Insert(context.Background(), core.TransactionDraft{
		Type: core.Income, Amount: core.Money{Cents: -5}, Description: "x", Date: core.NewDate(2024, 1, 1),
	})
	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Field != "amount" {
		t.Fatalf("expected amount validation error, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tx := mustInsert(t, repo, core.Income, 100, "x", 2024, 1, 1)

	if err := repo.Delete(ctx, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "no-such-id"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSummaryMatchesEngine(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	for i := 1; i <= 30; i++ {
		typ := core.Income
		if i%4 == 0 || i%7 == 0 {
			typ = core.Expense
		}
		mustInsert(t, repo, typ, int64(i*1013%9973+1), fmt.Sprintf("t%d", i), 2024, 4, i)
	}

	all, err := repo.List(ctx, store.Query{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ranges := []ledger.DateRange{
		{},
		{Start: core.NewDate(2024, 4, 15)},
		{End: core.NewDate(2024, 4, 10)},
		{Start: core.NewDate(2024, 4, 7), End: core.NewDate(2024, 4, 21)},
		{Start: core.NewDate(2024, 4, 12), End: core.NewDate(2024, 4, 12)},
		{Start: core.NewDate(2024, 4, 20), End: core.NewDate(2024, 4, 3)},
		{Start: core.NewDate(2025, 1, 1)},
	}
	for _, r := range ranges {
		got, err := repo.Summary(ctx, r)
		if err != nil {
			t.Fatalf("summary: %v", err)
		}
		want := ledger.Summarize(ledger.Apply(all, r))
		if got != want {
			t.Fatalf("range %s..%s: store %+v, engine %+v", r.Start, r.End, got, want)
		}
	}
}

func TestClosedDatabaseIsTransient(t *testing.T) {
	repo := newTestRepo(t)
	repo.Close()
	_, err := repo.List(context.Background(), store.Query{})
	if !core.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	if classify(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	if !core.IsTransient(classify(errors.New("database is locked (5) (SQLITE_BUSY)"))) {
		t.Fatalf("busy should be transient")
	}
	if core.IsTransient(classify(errors.New("UNIQUE constraint failed"))) {
		t.Fatalf("constraint errors are permanent")
	}
}
