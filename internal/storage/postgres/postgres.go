// Package postgres is the Postgres-backed transaction store, built on gorm.
package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/store"
)

var _ store.Store = (*Store)(nil)

// transactionRow is the persisted shape of core.Transaction.
type transactionRow struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	Type        string    `gorm:"type:varchar(16);not null;index"`
	AmountCents int64     `gorm:"not null"`
	Description string    `gorm:"type:text;not null"`
	Category    string    `gorm:"type:text;not null;default:''"`
	Date        time.Time `gorm:"type:date;not null;index:idx_transactions_date_created,priority:1"`
	CreatedAt   time.Time `gorm:"not null;index:idx_transactions_date_created,priority:2"`
}

func (transactionRow) TableName() string { return "transactions" }

func (r transactionRow) toCore() core.Transaction {
	return core.Transaction{
		ID:          r.ID,
		Type:        core.TransactionType(r.Type),
		Amount:      core.Money{Cents: r.AmountCents},
		Description: r.Description,
		Category:    r.Category,
		Date:        core.DateOf(r.Date),
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to dsn. When autoMigrate is set the transactions table is
// created or updated; migration failures are logged and do not abort.
func Open(dsn string, autoMigrate bool) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", classify(err))
	}
	if autoMigrate {
		if err := db.AutoMigrate(&transactionRow{}); err != nil {
			slog.Warn("Postgres auto-migration failed", "table", "transactions", "error", err)
		}
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", classify(err))
	}
	return nil
}

// Insert implements store.Inserter
func (s *Store) Insert(ctx context.Context, d core.TransactionDraft) (core.Transaction, error) {
	d = d.Normalized()
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}
	row := transactionRow{
		ID:          uuid.NewString(),
		Type:        string(d.Type),
		AmountCents: d.Amount.Cents,
		Description: d.Description,
		Category:    d.Category,
		Date:        d.Date.Time,
		// Postgres keeps microseconds.
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", classify(err))
	}
	return row.toCore(), nil
}

// List implements store.Lister
func (s *Store) List(ctx context.Context, q store.Query) ([]core.Transaction, error) {
	tx := scoped(s.db.WithContext(ctx).Model(&transactionRow{}), q.Range)
	if q.Type != "" {
		tx = tx.Where("type = ?", string(q.Type))
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var rows []transactionRow
	if err := tx.Order("date DESC").Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", classify(err))
	}
	out := make([]core.Transaction, len(rows))
	for i, r := range rows {
		out[i] = r.toCore()
	}
	return out, nil
}

// Summary implements store.Summarizer
func (s *Store) Summary(ctx context.Context, r ledger.DateRange) (ledger.Summary, error) {
	var agg struct {
		Income   int64
		Expenses int64
		Count    int64
	}
	err := scoped(s.db.WithContext(ctx).Model(&transactionRow{}), r).
		Select(`COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END), 0) AS income,
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END), 0) AS expenses,
			COUNT(*) AS count`).
		Scan(&agg).Error
	if err != nil {
		return ledger.Summary{}, fmt.Errorf("summarize transactions: %w", classify(err))
	}
	return ledger.Summary{
		TotalIncome:      core.Money{Cents: agg.Income},
		TotalExpenses:    core.Money{Cents: agg.Expenses},
		NetProfit:        core.Money{Cents: agg.Income - agg.Expenses},
		TransactionCount: int(agg.Count),
	}, nil
}

// Delete implements store.Deleter
func (s *Store) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&transactionRow{})
	if res.Error != nil {
		return fmt.Errorf("delete transaction %s: %w", id, classify(res.Error))
	}
	if res.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scoped(tx *gorm.DB, r ledger.DateRange) *gorm.DB {
	if !r.Start.IsEmpty() {
		tx = tx.Where("date >= ?", core.DateOf(r.Start.Time).String())
	}
	if !r.End.IsEmpty() {
		tx = tx.Where("date <= ?", core.DateOf(r.End.Time).String())
	}
	return tx
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return core.Transient(err)
	}
	return err
}
