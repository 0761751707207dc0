// Package google mirrors ledger transactions into a Google Sheet, one row per
// transaction keyed by the id in column A.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"google.golang.org/api/googleapi"
	gsheet "google.golang.org/api/sheets/v4"

	"ledger/internal/core"
	"ledger/internal/sheets"
)

var _ sheets.Mirror = (*Mirror)(nil)

type Mirror struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// mu serialises row-index lookups with the writes that depend on them.
	mu      sync.Mutex
	sheetID *int64
}

func NewMirror(svc *gsheet.Service, spreadsheetID, sheetName string) *Mirror {
	return &Mirror{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

// Append adds a row for tx unless its id is already mirrored. An empty sheet
// gets the header row first.
func (m *Mirror) Append(ctx context.Context, tx core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids, err := m.column(ctx)
	if err != nil {
		return err
	}
	if indexOf(ids, tx.ID) >= 0 {
		return nil
	}

	values := [][]any{sheets.Row(tx)}
	if len(ids) == 0 {
		header := make([]any, len(sheets.Header))
		for i, h := range sheets.Header {
			header[i] = h
		}
		values = append([][]any{header}, values...)
	}

	_, err = m.svc.Spreadsheets.Values.
		Append(m.spreadsheetID, m.rangeOf("A:F"), &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row for %s: %w", tx.ID, classify(err))
	}
	return nil
}

// Remove deletes the row whose column A equals id.
func (m *Mirror) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids, err := m.column(ctx)
	if err != nil {
		return err
	}
	row := indexOf(ids, id)
	if row < 0 {
		return nil
	}
	sheetID, err := m.lookupSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:         sheetID,
			Dimension:       "ROWS",
			StartIndex:      int64(row),
			EndIndex:        int64(row + 1),
			ForceSendFields: []string{"SheetId", "StartIndex"},
		}},
	}}}
	if _, err := m.svc.Spreadsheets.BatchUpdate(m.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row for %s: %w", id, classify(err))
	}
	return nil
}

// IDs lists the mirrored ids, skipping the header.
func (m *Mirror) IDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	col, err := m.column(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(col))
	for i, v := range col {
		if v == "" || (i == 0 && v == sheets.Header[0]) {
			continue
		}
		ids = append(ids, v)
	}
	return ids, nil
}

// column reads column A. Index i of the result is sheet row i (0-based).
func (m *Mirror) column(ctx context.Context) ([]string, error) {
	resp, err := m.svc.Spreadsheets.Values.Get(m.spreadsheetID, m.rangeOf("A:A")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read ids: %w", classify(err))
	}
	out := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			out[i] = fmt.Sprint(row[0])
		}
	}
	return out, nil
}

func (m *Mirror) lookupSheetID(ctx context.Context) (int64, error) {
	if m.sheetID != nil {
		return *m.sheetID, nil
	}
	ss, err := m.svc.Spreadsheets.Get(m.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet: %w", classify(err))
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == m.sheetName {
			id := s.Properties.SheetId
			m.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", m.sheetName)
}

func (m *Mirror) rangeOf(cols string) string {
	return fmt.Sprintf("'%s'!%s", m.sheetName, cols)
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// classify marks rate limiting, server errors and network failures as
// transient so the event is retried.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return core.Transient(err)
		}
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return core.Transient(err)
	}
	return err
}
