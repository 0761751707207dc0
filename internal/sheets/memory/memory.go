// Package memory is an in-process sheets.Mirror, used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"ledger/internal/core"
	"ledger/internal/sheets"
)

var _ sheets.Mirror = (*Mirror)(nil)

type Mirror struct {
	mu   sync.Mutex
	rows [][]any
}

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) Append(_ context.Context, tx core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index(tx.ID) >= 0 {
		return nil
	}
	m.rows = append(m.rows, sheets.Row(tx))
	return nil
}

func (m *Mirror) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(id); i >= 0 {
		m.rows = slices.Delete(m.rows, i, i+1)
	}
	return nil
}

func (m *Mirror) IDs(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.rows))
	for i, r := range m.rows {
		ids[i] = r[0].(string)
	}
	return ids, nil
}

// Rows returns a copy of the mirrored rows in insertion order.
func (m *Mirror) Rows() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]any, len(m.rows))
	for i, r := range m.rows {
		out[i] = slices.Clone(r)
	}
	return out
}

func (m *Mirror) index(id string) int {
	return slices.IndexFunc(m.rows, func(r []any) bool { return r[0] == id })
}
