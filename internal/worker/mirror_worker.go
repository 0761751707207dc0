// Package worker replays ledger events into the spreadsheet mirror.
package worker

import (
	"context"
	"fmt"
	"slices"

	"ledger/internal/amqp"
	"ledger/internal/log"
	"ledger/internal/sheets"
	"ledger/internal/store"
)

// EventSource delivers ledger events to a handler until ctx ends.
// *amqp.Client implements it.
type EventSource interface {
	ConsumeEvents(ctx context.Context, handler func(context.Context, *amqp.TransactionEvent) error) error
}

var _ EventSource = (*amqp.Client)(nil)

type MirrorWorker struct {
	mirror sheets.Mirror
	logger *log.Logger
}

func NewMirrorWorker(mirror sheets.Mirror, logger *log.Logger) *MirrorWorker {
	return &MirrorWorker{mirror: mirror, logger: logger.WithComponent(log.ComponentWorker)}
}

// Run consumes events from src until ctx is cancelled.
func (w *MirrorWorker) Run(ctx context.Context, src EventSource) error {
	w.logger.InfoContext(ctx, "Mirror worker started")
	return src.ConsumeEvents(ctx, w.HandleEvent)
}

// HandleEvent applies one event to the mirror. Returned errors keep the
// mirror's classification so transient failures are redelivered.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	switch ev.Kind {
	case amqp.EventCreated:
		tx, err := ev.Transaction()
		if err != nil {
			return fmt.Errorf("decode created event %s: %w", ev.ID, err)
		}
		if err := w.mirror.Append(ctx, tx); err != nil {
			return fmt.Errorf("mirror %s: %w", ev.ID, err)
		}
	case amqp.EventDeleted:
		if err := w.mirror.Remove(ctx, ev.ID); err != nil {
			return fmt.Errorf("unmirror %s: %w", ev.ID, err)
		}
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	w.logger.InfoContext(ctx, "Mirrored ledger event",
		log.FieldOperation, log.OpMirror,
		"kind", ev.Kind,
		log.FieldTransactionID, ev.ID)
	return nil
}

// Reconcile brings the mirror in line with the store: stored transactions
// missing from the mirror are appended and mirrored ids no longer stored are
// removed. It covers events lost while the worker was down.
func (w *MirrorWorker) Reconcile(ctx context.Context, lister store.Lister) (added, removed int, err error) {
	txs, err := lister.List(ctx, store.Query{})
	if err != nil {
		return 0, 0, fmt.Errorf("list transactions: %w", err)
	}
	mirrored, err := w.mirror.IDs(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list mirrored ids: %w", err)
	}

	onSheet := make(map[string]struct{}, len(mirrored))
	for _, id := range mirrored {
		onSheet[id] = struct{}{}
	}
	stored := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		stored[tx.ID] = struct{}{}
	}
	// Oldest first so the sheet reads chronologically.
	slices.Reverse(txs)
	for _, tx := range txs {
		if _, ok := onSheet[tx.ID]; ok {
			continue
		}
		if err := w.mirror.Append(ctx, tx); err != nil {
			return added, removed, fmt.Errorf("mirror %s: %w", tx.ID, err)
		}
		added++
	}
	for _, id := range mirrored {
		if _, ok := stored[id]; ok {
			continue
		}
		if err := w.mirror.Remove(ctx, id); err != nil {
			return added, removed, fmt.Errorf("unmirror %s: %w", id, err)
		}
		removed++
	}

	w.logger.InfoContext(ctx, "Mirror reconciled", "added", added, "removed", removed)
	return added, removed, nil
}
