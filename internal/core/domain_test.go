package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateOfStripsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	got := DateOf(time.Date(2024, 3, 10, 23, 30, 0, 0, loc))
	if !got.Equal(NewDate(2024, 3, 10).Time) {
		t.Fatalf("DateOf = %v", got)
	}
	if !DateOf(time.Time{}).IsEmpty() {
		t.Fatalf("zero time should give empty date")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil || d.String() != "2024-02-29" {
		t.Fatalf("ParseDate = %v, %v", d, err)
	}
	d, err = ParseDate("  ")
	if err != nil || !d.IsEmpty() {
		t.Fatalf("blank should be absent, got %v, %v", d, err)
	}
	if _, err := ParseDate("2024/02/29"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestTransactionDraftValidate(t *testing.T) {
	good := TransactionDraft{
		Type:        Income,
		Amount:      Money{Cents: 100},
		Description: "ok",
		Date:        NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	long := good
	long.Description = strings.Repeat("x", 1000)
	if err := long.Validate(); err != nil {
		t.Fatalf("long descriptions are valid, got %v", err)
	}

	bads := []struct {
		field string
		want  error
		draft TransactionDraft
	}{
		{"type", ErrInvalidType, TransactionDraft{Type: "refund", Amount: Money{Cents: 1}, Description: "a", Date: NewDate(2025, 1, 1)}},
		{"amount", ErrInvalidAmount, TransactionDraft{Type: Expense, Amount: Money{Cents: 0}, Description: "a", Date: NewDate(2025, 1, 1)}},
		{"description", ErrEmptyDescription, TransactionDraft{Type: Expense, Amount: Money{Cents: 1}, Description: "   ", Date: NewDate(2025, 1, 1)}},
		{"date", ErrInvalidDate, TransactionDraft{Type: Expense, Amount: Money{Cents: 1}, Description: "a"}},
	}
	for i, tc := range bads {
		err := tc.draft.Validate()
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("case %d expected *ValidationError, got %v", i, err)
		}
		if ve.Field != tc.field {
			t.Fatalf("case %d field = %q, want %q", i, ve.Field, tc.field)
		}
		if !errors.Is(err, tc.want) || !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d error chain wrong: %v", i, err)
		}
	}
}

func TestParseTransactionType(t *testing.T) {
	for in, want := range map[string]TransactionType{"": "", "income": Income, " Expense ": Expense} {
		got, err := ParseTransactionType(in)
		if err != nil || got != want {
			t.Fatalf("ParseTransactionType(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseTransactionType("transfer"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestTransient(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("list transactions: %w", Transient(cause))
	if !IsTransient(err) || !errors.Is(err, cause) {
		t.Fatalf("transient chain broken: %v", err)
	}
	if Transient(nil) != nil {
		t.Fatalf("Transient(nil) should be nil")
	}
	if IsTransient(ErrNotFound) {
		t.Fatalf("not found is not transient")
	}
}

func TestTransactionSigned(t *testing.T) {
	in := Transaction{Type: Income, Amount: Money{Cents: 500}}
	out := Transaction{Type: Expense, Amount: Money{Cents: 500}}
	if in.Signed().Cents != 500 || out.Signed().Cents != -500 {
		t.Fatalf("Signed: %d %d", in.Signed().Cents, out.Signed().Cents)
	}
}
