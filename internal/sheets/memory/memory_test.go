package memory

import (
	"context"
	"testing"

	"ledger/internal/core"
)

func TestMirror(t *testing.T) {
	m := New()
	ctx := context.Background()
	a := core.Transaction{ID: "a", Type: core.Expense, Amount: core.Money{Cents: 1250}, Description: "ink", Date: core.NewDate(2024, 4, 1)}
	b := core.Transaction{ID: "b", Type: core.Income, Amount: core.Money{Cents: 99}, Description: "tip", Date: core.NewDate(2024, 4, 2)}

	for _, tx := range []core.Transaction{a, b, a} {
		if err := m.Append(ctx, tx); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	rows := m.Rows()
	if len(rows) != 2 {
		t.Fatalf("duplicate append should be ignored, rows = %v", rows)
	}
	if rows[0][5] != "-12.50" || rows[0][2] != "Expense" || rows[1][5] != "0.99" {
		t.Fatalf("rows = %v", rows)
	}

	if err := m.Remove(ctx, "missing"); err != nil {
		t.Fatalf("removing a missing id must succeed: %v", err)
	}
	if err := m.Remove(ctx, "a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	ids, _ := m.IDs(ctx)
	if len(ids) != 1 || ids[0] != "b" {
		t.Fatalf("ids = %v", ids)
	}
}
