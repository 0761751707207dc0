// Package backend builds the store, event publisher and sheets mirror
// selected by configuration.
package backend

import (
	"context"

	"ledger/internal/services"
	"ledger/internal/sheets"
	"ledger/internal/store"
)

// BackendType names a transaction store implementation.
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (t BackendType) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	}
	return false
}

func (t BackendType) String() string { return string(t) }

// BackendResult is a ready ledger service. Cleanup releases the store and
// the publisher.
type BackendResult struct {
	Service *services.LedgerService
	Store   store.Store
	Cleanup func() error
}

// Factory creates the process's outbound adapters.
type Factory interface {
	CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error)
	CreateStore(ctx context.Context, cfg Config) (store.Store, error)
	CreateMirror(ctx context.Context, cfg Config) (sheets.Mirror, error)
}
