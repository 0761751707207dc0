// Package services orchestrates the transaction store, the aggregation
// engine and event publication.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/report"
	"ledger/internal/store"
)

// Publisher sends ledger events. *amqp.Client implements it.
type Publisher interface {
	PublishEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

var _ Publisher = (*amqp.Client)(nil)

// LedgerService is the single entry point used by the HTTP server and the
// report CLI.
type LedgerService struct {
	store     store.Store
	publisher Publisher
	logger    *log.Logger
	events    *log.StructuredLogger

	// outbox feeds the single publishing goroutine, keeping event order.
	outbox  chan *amqp.TransactionEvent
	drained chan struct{}
	mu      sync.RWMutex
	closed  bool
}

const (
	outboxSize     = 256
	publishTimeout = 5 * time.Second
)

// NewLedgerService wires st. publisher may be nil, in which case no events
// are sent. Events are published in the background; Close flushes them.
func NewLedgerService(st store.Store, publisher Publisher, logger *log.Logger) *LedgerService {
	logger = logger.WithComponent(log.ComponentLedger)
	s := &LedgerService{
		store:     st,
		publisher: publisher,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
	}
	if publisher != nil {
		s.outbox = make(chan *amqp.TransactionEvent, outboxSize)
		s.drained = make(chan struct{})
		go s.runOutbox()
	}
	return s
}

// Create validates and stores d, then announces it. Publication failures are
// logged and never fail the call.
func (s *LedgerService) Create(ctx context.Context, d core.TransactionDraft) (core.Transaction, error) {
	d = d.Normalized()
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.store.Insert(ctx, d)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.events.LogTransactionCreated(ctx, tx.ID, string(tx.Type), tx.Amount.Cents, tx.Category)
	s.publish(ctx, amqp.NewCreatedEvent(tx))
	return tx, nil
}

// Delete removes id. Unknown ids yield core.ErrNotFound.
func (s *LedgerService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.events.LogTransactionDeleted(ctx, id)
	s.publish(ctx, amqp.NewDeletedEvent(id))
	return nil
}

// publish queues ev and returns at once. A full outbox drops the event;
// the mirror worker's reconciliation picks the change up later.
func (s *LedgerService) publish(ctx context.Context, ev *amqp.TransactionEvent) {
	if s.publisher == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.outbox <- ev:
	default:
		s.logger.WarnContext(ctx, "Event outbox full, dropping ledger event",
			"kind", ev.Kind,
			log.FieldTransactionID, ev.ID)
	}
}

func (s *LedgerService) runOutbox() {
	defer close(s.drained)
	for ev := range s.outbox {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := s.publisher.PublishEvent(ctx, ev); err != nil {
			s.logger.Warn("Failed to publish ledger event",
				"kind", ev.Kind,
				log.FieldTransactionID, ev.ID,
				log.FieldError, err)
		}
		cancel()
	}
}

// List returns transactions matching q, newest first.
func (s *LedgerService) List(ctx context.Context, q store.Query) ([]core.Transaction, error) {
	txs, err := s.store.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Summary is computed by the store over r.
func (s *LedgerService) Summary(ctx context.Context, r ledger.DateRange) (ledger.Summary, error) {
	sum, err := s.store.Summary(ctx, r)
	if err != nil {
		return ledger.Summary{}, fmt.Errorf("summarize transactions: %w", err)
	}
	return sum, nil
}

// Series buckets the transactions in r by day.
func (s *LedgerService) Series(ctx context.Context, r ledger.DateRange) ([]ledger.ChartPoint, error) {
	txs, err := s.List(ctx, store.Query{Range: r})
	if err != nil {
		return nil, err
	}
	return ledger.BucketByDay(txs), nil
}

// Report exports the transactions in r as a PDF.
func (s *LedgerService) Report(ctx context.Context, r ledger.DateRange, opts report.Options) ([]byte, report.Document, error) {
	txs, sum, err := s.fetch(ctx, r)
	if err != nil {
		return nil, report.Document{}, err
	}
	out, doc, err := report.Export(txs, sum, r, opts)
	if err != nil {
		return nil, report.Document{}, err
	}
	s.logger.InfoContext(ctx, "Report exported",
		log.FieldOperation, log.OpReport,
		log.FieldCount, len(txs),
		"file", doc.FileName,
		"pages", len(doc.Pages))
	return out, doc, nil
}

// ViewQuery selects a dashboard view.
type ViewQuery struct {
	Range    ledger.DateRange
	Page     int
	PageSize int
}

// View is everything the dashboard shows for one filter.
type View struct {
	Range     ledger.DateRange
	Summary   ledger.Summary
	Series    []ledger.ChartPoint
	Chart     ledger.ChartColumns
	Stats     ledger.SeriesStats
	Page      ledger.Page[core.Transaction]
	PageLinks []ledger.PageLink
}

// LoadView fetches the list and summary for q.Range in parallel and derives
// the chart series, statistics and requested page from them.
func (s *LedgerService) LoadView(ctx context.Context, q ViewQuery) (*View, error) {
	txs, sum, err := s.fetch(ctx, q.Range)
	if err != nil {
		return nil, err
	}
	series := ledger.BucketByDay(txs)
	page := ledger.Paginate(txs, q.Page, q.PageSize)
	s.logger.DebugContext(ctx, "View loaded", log.NewFields().
		WithOperation("load_view").
		WithRange(q.Range.Start.String(), q.Range.End.String()).
		ToSlice()...)
	return &View{
		Range:     q.Range,
		Summary:   sum,
		Series:    series,
		Chart:     ledger.Columns(series),
		Stats:     ledger.ComputeStats(series),
		Page:      page,
		PageLinks: ledger.PageNumbers(page.Number, page.TotalPages),
	}, nil
}

// fetch runs List and Summary concurrently; the first error cancels the other.
func (s *LedgerService) fetch(ctx context.Context, r ledger.DateRange) ([]core.Transaction, ledger.Summary, error) {
	var (
		txs []core.Transaction
		sum ledger.Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.List(gctx, store.Query{Range: r})
		return err
	})
	g.Go(func() error {
		var err error
		sum, err = s.Summary(gctx, r)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, ledger.Summary{}, err
	}
	return txs, sum, nil
}

// Ping checks the store.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close flushes queued events, then closes the store and, when it has one,
// the publisher.
func (s *LedgerService) Close() error {
	s.mu.Lock()
	wasClosed := s.closed
	s.closed = true
	if !wasClosed && s.outbox != nil {
		close(s.outbox)
	}
	s.mu.Unlock()
	if s.drained != nil {
		<-s.drained
	}

	var errs []error
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
