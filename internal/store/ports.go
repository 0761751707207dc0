package store

import (
	"context"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

// MaxListLimit caps list queries served to API callers.
const MaxListLimit = 1000

// Query selects transactions for List.
type Query struct {
	Range ledger.DateRange
	Type  core.TransactionType // empty matches both types
	Limit int                  // <= 0 means no limit
}

// Matches reports whether tx satisfies the query filters, ignoring Limit.
func (q Query) Matches(tx core.Transaction) bool {
	if q.Type != "" && tx.Type != q.Type {
		return false
	}
	return !q.Range.IsInverted() && q.Range.Contains(tx.Date)
}

// Ports for outbound adapters.
type (
	// Lister returns transactions ordered by date descending, then by
	// creation time descending.
	Lister interface {
		List(ctx context.Context, q Query) ([]core.Transaction, error)
	}

	// Summarizer computes ledger.Summarize over the transactions in r on the
	// store side. The result must equal the in-process computation.
	Summarizer interface {
		Summary(ctx context.Context, r ledger.DateRange) (ledger.Summary, error)
	}

	Inserter interface {
		Insert(ctx context.Context, d core.TransactionDraft) (core.Transaction, error)
	}

	// Deleter removes a transaction, returning core.ErrNotFound when the id
	// does not exist.
	Deleter interface {
		Delete(ctx context.Context, id string) error
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}

	Store interface {
		Lister
		Summarizer
		Inserter
		Deleter
		Pinger
		Close() error
	}
)
