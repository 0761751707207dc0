package core

import (
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DateLayout is the wire and display format for calendar dates.
const DateLayout = "2006-01-02"


type (
	TransactionType string

	// Date is a calendar day held at UTC midnight. The zero value means
	// "no date" and is used for absent range bounds.
	Date struct {
		time.Time
	}

	// Money is an amount in minor units (cents). Arithmetic on Money never
	// goes through floating point.
	Money struct {
		Cents int64
	}

	// Transaction is a single recorded income or expense event. The sign of
	// the event is carried by Type; Amount is never negative.
	Transaction struct {
		ID          string
		Type        TransactionType
		Amount      Money
		Description string
		Category    string // optional
		Date        Date
		CreatedAt   time.Time
	}

	// TransactionDraft is the user-supplied part of a Transaction, before the
	// store assigns an ID and creation time.
	TransactionDraft struct {
		Type        TransactionType
		Amount      Money
		Description string
		Category    string
		Date        Date
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf strips the time of day from t, keeping the calendar day as seen in
// t's own location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Err: ErrInvalidDate}
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (an absent bound)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String renders the date as YYYY-MM-DD, or "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

// Label is the capitalised form used in reports.
func (t TransactionType) Label() string {
	switch t {
	case Income:
		return "Income"
	case Expense:
		return "Expense"
	default:
		return string(t)
	}
}

// ParseTransactionType accepts the lower-case wire names. An empty string is
// returned as the empty type so callers can treat it as "any".
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if t == "" || t.Valid() {
		return t, nil
	}
	return "", &ValidationError{Field: "type", Err: ErrInvalidType}
}

// Validate checks the draft and returns a *ValidationError naming the first
// offending field.
func (d TransactionDraft) Validate() error {
	if !d.Type.Valid() {
		return &ValidationError{Field: "type", Err: ErrInvalidType}
	}
	if err := d.Amount.Validate(); err != nil {
		return &ValidationError{Field: "amount", Err: err}
	}
	desc := strings.TrimSpace(d.Description)
	if desc == "" {
		return &ValidationError{Field: "description", Err: ErrEmptyDescription}
	}
	if err := d.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	return nil
}

// Normalized trims text fields and strips any time of day from Date.
func (d TransactionDraft) Normalized() TransactionDraft {
	d.Description = strings.TrimSpace(d.Description)
	d.Category = strings.TrimSpace(d.Category)
	d.Date = DateOf(d.Date.Time)
	return d
}

// Signed returns the amount with the sign implied by the transaction type.
func (t Transaction) Signed() Money {
	if t.Type == Expense {
		return Money{Cents: -t.Amount.Cents}
	}
	return t.Amount
}
