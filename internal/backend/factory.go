package backend

import (
	"context"
	"fmt"

	"ledger/internal/amqp"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/sheets"
	gsheet "ledger/internal/sheets/google"
	sheetsmem "ledger/internal/sheets/memory"
	"ledger/internal/storage"
	"ledger/internal/storage/postgres"
	"ledger/internal/store"
	"ledger/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the store, connects the optional AMQP publisher and
// returns the ledger service built on them. An unreachable broker is logged
// and events are disabled rather than failing start-up.
func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	st, err := f.CreateStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
			publisher = client
		}
	}

	svc := services.NewLedgerService(st, publisher, f.logger)
	return &BackendResult{Service: svc, Store: st, Cleanup: svc.Close}, nil
}

// CreateStore opens the configured transaction store.
func (f *DefaultFactory) CreateStore(_ context.Context, cfg Config) (store.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		pg, err := postgres.Open(cfg.PostgresDSN, cfg.AutoMigrate)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
		}
		f.logger.Info("Initialized Postgres backend", "auto_migrate", cfg.AutoMigrate)
		return pg, nil
	default:
		var st *memory.Store
		if cfg.MemorySeedFile != "" {
			st = memory.NewFromFile(cfg.MemorySeedFile)
		} else {
			st = memory.New()
		}
		f.logger.Info("Initialized memory backend", log.FieldCount, st.Len())
		return st, nil
	}
}

// CreateMirror returns the Google Sheets mirror, or an in-memory one when no
// spreadsheet is configured.
func (f *DefaultFactory) CreateMirror(ctx context.Context, cfg Config) (sheets.Mirror, error) {
	if cfg.SpreadsheetID == "" {
		f.logger.Warn("No spreadsheet configured, mirroring into memory")
		return sheetsmem.New(), nil
	}
	svc, err := gsheet.NewService(ctx, cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets mirror", "sheet", cfg.SheetName)
	return gsheet.NewMirror(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}
