// Package sheets defines the spreadsheet mirror that ledger events are
// replayed into.
package sheets

import (
	"context"

	"ledger/internal/core"
)

// Header is the first row written to an empty mirror sheet.
var Header = []string{"ID", "Date", "Type", "Description", "Category", "Amount"}

// Ports for outbound adapters.
type (
	// Mirror keeps one row per transaction, keyed by id in the first column.
	Mirror interface {
		// Append adds tx. Appending an id that is already present is a no-op.
		Append(ctx context.Context, tx core.Transaction) error
		// Remove deletes the row for id. A missing row is not an error.
		Remove(ctx context.Context, id string) error
		// IDs lists the ids currently mirrored.
		IDs(ctx context.Context) ([]string, error)
	}
)

// Row renders tx as mirror cells. The amount is signed and has two decimals.
func Row(tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.Date.String(),
		tx.Type.Label(),
		tx.Description,
		tx.Category,
		tx.Signed().Decimal().StringFixed(2),
	}
}
