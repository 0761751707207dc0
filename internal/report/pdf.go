package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

// A4 portrait, millimetres.
const (
	pageMargin   = 15.0
	topMargin    = 20.0
	footerY      = -12.0
	rowHeight    = 6.0
	headerHeight = 8.0
)

var (
	detailWidths  = []float64{25, 22, 70, 35, 28}
	summaryWidths = []float64{90, 60}
	detailAligns  = []string{"L", "L", "L", "L", "R"}
)

// Export renders txs and writes the PDF into a byte slice.
func Export(txs []core.Transaction, s ledger.Summary, r ledger.DateRange, opts Options) ([]byte, Document, error) {
	doc := Render(txs, s, r, opts)
	var buf bytes.Buffer
	if err := ExportPDF(&buf, doc); err != nil {
		return nil, doc, err
	}
	return buf.Bytes(), doc, nil
}

// ExportPDF draws doc. The output depends only on doc: creation and
// modification dates come from doc.GeneratedAt and the catalog is sorted.
func ExportPDF(w io.Writer, doc Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetModificationDate(doc.GeneratedAt)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(pageMargin, topMargin, pageMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("ledger", true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, page := range doc.Pages {
		pdf.AddPage()
		if page.Number == 1 {
			drawHeader(pdf, tr, doc)
		}
		if doc.HasDetails {
			if page.Number == 1 {
				pdf.Ln(8)
				pdf.SetFont("Helvetica", "B", 14)
				pdf.CellFormat(0, headerHeight, DetailHeading, "", 1, "L", false, 0, "")
			}
			drawDetailTable(pdf, tr, page.Rows)
		}

		pdf.SetY(footerY)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 5, tr(page.Footer), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func drawHeader(pdf *fpdf.Fpdf, tr func(string) string, doc Document) {
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 8, tr(doc.RangeLabel), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, headerHeight, SummaryHeading, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(66, 139, 202)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range SummaryColumns {
		pdf.CellFormat(summaryWidths[i], headerHeight, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for _, row := range doc.Summary {
		pdf.CellFormat(summaryWidths[0], headerHeight, tr(row.Metric), "1", 0, "L", false, 0, "")
		pdf.CellFormat(summaryWidths[1], headerHeight, tr(row.Value), "1", 1, "R", false, 0, "")
	}
}

func drawDetailTable(pdf *fpdf.Fpdf, tr func(string) string, rows []DetailRow) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(66, 139, 202)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range DetailColumns {
		pdf.CellFormat(detailWidths[i], headerHeight, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	last := len(DetailColumns) - 1
	for _, row := range rows {
		for i, cell := range row.Cells() {
			if i == last {
				if row.Income {
					pdf.SetTextColor(22, 128, 61)
				} else {
					pdf.SetTextColor(185, 28, 28)
				}
			}
			pdf.CellFormat(detailWidths[i], rowHeight, tr(cell), "1", 0, detailAligns[i], false, 0, "")
		}
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(-1)
	}
}
