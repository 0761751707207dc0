package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

// maxBodyBytes bounds a transaction request body.
const maxBodyBytes = 64 << 10

// requestError is a malformed request: unparsable query or body.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// parseRange reads start_date and end_date. Both are optional; a present but
// unparsable value is a bad request.
func parseRange(q url.Values) (ledger.DateRange, error) {
	var r ledger.DateRange
	for _, p := range []struct {
		name string
		dst  *core.Date
	}{{"start_date", &r.Start}, {"end_date", &r.End}} {
		d, err := core.ParseDate(q.Get(p.name))
		if err != nil {
			return ledger.DateRange{}, badRequest("invalid %s %q: want YYYY-MM-DD", p.name, q.Get(p.name))
		}
		*p.dst = d
	}
	return r, nil
}

// parseType reads transaction_type; empty means both types.
func parseType(q url.Values) (core.TransactionType, error) {
	t, err := core.ParseTransactionType(q.Get("transaction_type"))
	if err != nil {
		return "", badRequest("invalid transaction_type %q: want income or expense", q.Get("transaction_type"))
	}
	return t, nil
}

// parsePositive returns the integer query value name, or def when it is
// absent or not a positive number.
func parsePositive(q url.Values, name string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(q.Get(name)))
	if err != nil || v < 1 {
		return def
	}
	return v
}

// transactionRequest is the POST /api/transactions body. Amount accepts a
// JSON number or a numeric string.
type transactionRequest struct {
	Type        string          `json:"type"`
	Amount      json.RawMessage `json:"amount"`
	Description string          `json:"description"`
	Category    *string         `json:"category"`
	Date        string          `json:"date"`
}

// decodeDraft reads a transaction draft. Broken JSON is a bad request;
// well-formed JSON with bad values is a validation error.
func decodeDraft(r *http.Request) (core.TransactionDraft, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return core.TransactionDraft{}, badRequest("read body: %v", err)
	}
	if len(body) > maxBodyBytes {
		return core.TransactionDraft{}, badRequest("request body too large")
	}

	var req transactionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return core.TransactionDraft{}, badRequest("malformed JSON body: %v", err)
	}

	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return core.TransactionDraft{}, err
	}
	cents, err := core.ParseDecimalToCents(rawNumber(req.Amount))
	if err != nil {
		return core.TransactionDraft{}, &core.ValidationError{Field: "amount", Err: err}
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.TransactionDraft{}, err
	}

	d := core.TransactionDraft{
		Type:        typ,
		Amount:      core.Money{Cents: cents},
		Description: sanitizeInput(req.Description),
		Date:        date,
	}
	if req.Category != nil {
		d.Category = sanitizeInput(*req.Category)
	}
	return d, nil
}

// rawNumber unquotes a JSON string amount and passes numbers through.
func rawNumber(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if bytes.Equal(raw, []byte("null")) {
		return ""
	}
	return string(raw)
}

// sanitizeInput strips control characters except tab, newline and carriage
// return, and trims surrounding space.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

func isRequestError(err error) bool {
	var re *requestError
	return errors.As(err, &re)
}
