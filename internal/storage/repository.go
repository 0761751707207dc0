package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/store"

	_ "modernc.org/sqlite"
)

// timestampLayout is fixed-width so created_at sorts lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

var _ store.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", classify(err))
	}
	return nil
}

// Insert implements store.Inserter
func (r *SQLiteRepository) Insert(ctx context.Context, d core.TransactionDraft) (core.Transaction, error) {
	d = d.Normalized()
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{
		ID:          uuid.NewString(),
		Type:        d.Type,
		Amount:      d.Amount,
		Description: d.Description,
		Category:    d.Category,
		Date:        d.Date,
		CreatedAt:   r.now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, type, amount_cents, description, category, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, string(tx.Type), tx.Amount.Cents, tx.Description, tx.Category,
		tx.Date.String(), tx.CreatedAt.Format(timestampLayout))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", classify(err))
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"type", tx.Type,
		"amount_cents", tx.Amount.Cents,
		"date", tx.Date.String())

	return tx, nil
}

// List implements store.Lister
func (r *SQLiteRepository) List(ctx context.Context, q store.Query) ([]core.Transaction, error) {
	where, args := whereClause(q.Range, q.Type)
	query := `SELECT id, type, amount_cents, description, category, date, created_at
		FROM transactions` + where + ` ORDER BY date DESC, created_at DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", classify(err))
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		var (
			tx               core.Transaction
			typ, date, taken string
		)
		if err := rows.Scan(&tx.ID, &typ, &tx.Amount.Cents, &tx.Description, &tx.Category, &date, &taken); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type = core.TransactionType(typ)
		if tx.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("transaction %s has bad date %q: %w", tx.ID, date, err)
		}
		if tx.CreatedAt, err = time.Parse(timestampLayout, taken); err != nil {
			return nil, fmt.Errorf("transaction %s has bad created_at %q: %w", tx.ID, taken, err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", classify(err))
	}
	return out, nil
}

// Summary implements store.Summarizer
func (r *SQLiteRepository) Summary(ctx context.Context, rng ledger.DateRange) (ledger.Summary, error) {
	where, args := whereClause(rng, "")
	var income, expenses int64
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END), 0),
			COUNT(*)
		FROM transactions`+where, args...).Scan(&income, &expenses, &count)
	if err != nil {
		return ledger.Summary{}, fmt.Errorf("summarize transactions: %w", classify(err))
	}
	return ledger.Summary{
		TotalIncome:      core.Money{Cents: income},
		TotalExpenses:    core.Money{Cents: expenses},
		NetProfit:        core.Money{Cents: income - expenses},
		TransactionCount: count,
	}, nil
}

// Delete implements store.Deleter
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// whereClause renders the shared range and type filter. Dates are stored as
// YYYY-MM-DD text, so string comparison orders them correctly.
func whereClause(rng ledger.DateRange, typ core.TransactionType) (string, []any) {
	var conds []string
	var args []any
	if !rng.Start.IsEmpty() {
		conds = append(conds, "date >= ?")
		args = append(args, core.DateOf(rng.Start.Time).String())
	}
	if !rng.End.IsEmpty() {
		conds = append(conds, "date <= ?")
		args = append(args, core.DateOf(rng.End.Time).String())
	}
	if typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(typ))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// classify marks errors that mean the database is unreachable or busy as
// transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return core.Transient(err)
	}
	msg := err.Error()
	for _, s := range []string{"SQLITE_BUSY", "database is locked", "sql: database is closed", "unable to open database"} {
		if strings.Contains(msg, s) {
			return core.Transient(err)
		}
	}
	return err
}
