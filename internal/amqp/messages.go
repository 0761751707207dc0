package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"ledger/internal/core"
)

// EventKind names what happened to a transaction.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventDeleted EventKind = "deleted"
)

// TransactionEvent is published after a transaction is stored or removed.
// Deleted events carry only the id.
type TransactionEvent struct {
	Kind        EventKind `json:"kind"`
	ID          string    `json:"id"`
	Type        string    `json:"type,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Date        string    `json:"date,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewCreatedEvent describes a freshly stored transaction.
func NewCreatedEvent(tx core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Kind:        EventCreated,
		ID:          tx.ID,
		Type:        string(tx.Type),
		AmountCents: tx.Amount.Cents,
		Description: tx.Description,
		Category:    tx.Category,
		Date:        tx.Date.String(),
		Timestamp:   time.Now().UTC(),
	}
}

func NewDeletedEvent(id string) *TransactionEvent {
	return &TransactionEvent{Kind: EventDeleted, ID: id, Timestamp: time.Now().UTC()}
}

// Transaction rebuilds the stored transaction carried by a created event.
func (e *TransactionEvent) Transaction() (core.Transaction, error) {
	if e.Kind != EventCreated {
		return core.Transaction{}, fmt.Errorf("event %s carries no transaction", e.Kind)
	}
	d, err := core.ParseDate(e.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          e.ID,
		Type:        core.TransactionType(e.Type),
		Amount:      core.Money{Cents: e.AmountCents},
		Description: e.Description,
		Category:    e.Category,
		Date:        d,
	}, nil
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and sanity-checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.ID == "" {
		return nil, fmt.Errorf("event without id")
	}
	if ev.Kind != EventCreated && ev.Kind != EventDeleted {
		return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	return &ev, nil
}
