// Package report lays out a printable balance sheet from an already filtered
// transaction list and its summary.
//
// Render builds a Document, a fully paginated text model with every label,
// amount and footer resolved. ExportPDF draws a Document with fpdf. Keeping
// the two apart lets tests check layout without decoding PDF bytes.
package report

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

const (
	DefaultTitle          = "Business Balance Sheet Report"
	DefaultCurrencySymbol = "$"
	DefaultFirstPageRows  = 26
	DefaultPageRows       = 40

	SummaryHeading = "Financial Summary"
	DetailHeading  = "Transaction Details"
)

// DetailColumns are the transaction table headings, in order.
var DetailColumns = []string{"Date", "Type", "Description", "Category", "Amount"}

// SummaryColumns are the summary table headings.
var SummaryColumns = []string{"Metric", "Amount"}

// Options tune a rendering. Zero values select the defaults.
type Options struct {
	Title          string
	CurrencySymbol string
	// Now is the generation time. It is the only input that varies between
	// otherwise identical renderings.
	Now time.Time
	// FirstPageRows is the number of detail rows that fit below the header
	// blocks on page one; PageRows is the capacity of continuation pages.
	FirstPageRows int
	PageRows      int
	// Character limits for the free-text columns.
	DescriptionWidth int
	CategoryWidth    int
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	if o.CurrencySymbol == "" {
		o.CurrencySymbol = DefaultCurrencySymbol
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.FirstPageRows <= 0 {
		o.FirstPageRows = DefaultFirstPageRows
	}
	if o.PageRows <= 0 {
		o.PageRows = DefaultPageRows
	}
	if o.DescriptionWidth <= 0 {
		o.DescriptionWidth = 40
	}
	if o.CategoryWidth <= 0 {
		o.CategoryWidth = 20
	}
	return o
}

// SummaryRow is one metric line of the summary table.
type SummaryRow struct {
	Metric string
	Value  string
}

// DetailRow is one formatted transaction line.
type DetailRow struct {
	Date        string
	Type        string
	Description string
	Category    string
	Amount      string
	Income      bool
}

// Cells returns the row in DetailColumns order.
func (r DetailRow) Cells() []string {
	return []string{r.Date, r.Type, r.Description, r.Category, r.Amount}
}

// Page is one physical page. Only the first page carries the title, range
// and summary blocks.
type Page struct {
	Number int
	Rows   []DetailRow
	Footer string
}

type Document struct {
	Title       string
	RangeLabel  string
	FileName    string
	GeneratedAt time.Time
	Summary     []SummaryRow
	// HasDetails is false for an empty transaction set, in which case the
	// detail section is left out entirely.
	HasDetails bool
	Pages      []Page
}

// Render lays out txs and s. It does not filter: r only feeds the range
// label and file name.
func Render(txs []core.Transaction, s ledger.Summary, r ledger.DateRange, opts Options) Document {
	opts = opts.withDefaults()

	doc := Document{
		Title:       opts.Title,
		RangeLabel:  RangeLabel(r, opts.Now),
		FileName:    FileName(r, opts.Now),
		GeneratedAt: opts.Now,
		Summary: []SummaryRow{
			{Metric: "Total Income", Value: s.TotalIncome.Format(opts.CurrencySymbol)},
			{Metric: "Total Expenses", Value: s.TotalExpenses.Format(opts.CurrencySymbol)},
			{Metric: "Net Profit/Loss", Value: s.NetProfit.Format(opts.CurrencySymbol)},
			{Metric: "Total Transactions", Value: strconv.Itoa(s.TransactionCount)},
		},
		HasDetails: len(txs) > 0,
	}

	rows := make([]DetailRow, len(txs))
	for i, tx := range txs {
		rows[i] = detailRow(tx, opts)
	}

	pages := [][]DetailRow{rows[:min(len(rows), opts.FirstPageRows)]}
	if rest := rows[len(pages[0]):]; len(rest) > 0 {
		first := ledger.Paginate(rest, 1, opts.PageRows)
		pages = append(pages, first.Items)
		for n := 2; n <= first.TotalPages; n++ {
			pages = append(pages, ledger.Paginate(rest, n, opts.PageRows).Items)
		}
	}

	stamp := opts.Now.Format("2006-01-02 15:04")
	for i, p := range pages {
		doc.Pages = append(doc.Pages, Page{
			Number: i + 1,
			Rows:   p,
			Footer: fmt.Sprintf("Page %d of %d | Generated on %s", i+1, len(pages), stamp),
		})
	}
	return doc
}

// RangeLabel describes the effective date range.
func RangeLabel(r ledger.DateRange, now time.Time) string {
	switch {
	case !r.Start.IsEmpty() && !r.End.IsEmpty():
		return fmt.Sprintf("Period: %s to %s", r.Start, r.End)
	case !r.Start.IsEmpty():
		return "From: " + r.Start.String()
	case !r.End.IsEmpty():
		return "Until: " + r.End.String()
	default:
		return fmt.Sprintf("All Transactions (Generated: %s)", now.Format(core.DateLayout))
	}
}

// FileName is balance-sheet-<start|all>-<end|today>.pdf.
func FileName(r ledger.DateRange, now time.Time) string {
	start := "all"
	if !r.Start.IsEmpty() {
		start = r.Start.String()
	}
	end := now.Format(core.DateLayout)
	if !r.End.IsEmpty() {
		end = r.End.String()
	}
	return fmt.Sprintf("balance-sheet-%s-%s.pdf", start, end)
}

// SignedAmount prefixes the amount with + for income and - for expense.
func SignedAmount(tx core.Transaction, symbol string) string {
	if tx.Type == core.Expense {
		return "-" + tx.Amount.Format(symbol)
	}
	return "+" + tx.Amount.Format(symbol)
}

func detailRow(tx core.Transaction, opts Options) DetailRow {
	category := tx.Category
	if category == "" {
		category = "N/A"
	}
	return DetailRow{
		Date:        tx.Date.String(),
		Type:        tx.Type.Label(),
		Description: truncate(tx.Description, opts.DescriptionWidth),
		Category:    truncate(category, opts.CategoryWidth),
		Amount:      SignedAmount(tx, opts.CurrencySymbol),
		Income:      tx.Type == core.Income,
	}
}

// truncate shortens s to at most n characters, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 3 {
		return string([]rune(s)[:n])
	}
	return string([]rune(s)[:n-3]) + "..."
}
