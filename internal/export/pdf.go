package export

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/DukeRupert/guichet/internal/domain"
)

// =============================================================================
// PDF Generator
// =============================================================================

// PDFGenerator renders a table on landscape A4 pages.
type PDFGenerator struct {
	// Page dimensions (A4 landscape in mm)
	pageWidth  float64
	pageHeight float64
	margin     float64

	// Content area
	contentWidth float64
	rowHeight    float64
}

// NewPDFGenerator creates a new PDF generator with default settings.
func NewPDFGenerator() *PDFGenerator {
	margin := 12.0
	pageWidth := 297.0
	return &PDFGenerator{
		pageWidth:    pageWidth,
		pageHeight:   210.0,
		margin:       margin,
		contentWidth: pageWidth - (2 * margin),
		rowHeight:    7,
	}
}

// Format returns the output format of this generator.
func (g *PDFGenerator) Format() domain.ExportFormat {
	return domain.ExportFormatPDF
}

// Generate creates the PDF and writes it to w.
func (g *PDFGenerator) Generate(ctx context.Context, table *Table, w io.Writer) (int64, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(g.margin, g.margin, g.margin)

	// Core fonts are cp1252; accented labels need translating.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(table.Title, true)
	pdf.SetAuthor(table.GeneratedBy, true)
	pdf.SetCreator("Guichet", true)
	pdf.SetAutoPageBreak(false, 15)

	pdf.SetFooterFunc(func() {
		g.addFooter(pdf, tr, table)
	})

	widths := g.columnWidths(pdf, table)

	pdf.AddPage()
	g.addTitle(pdf, tr, table)
	g.addHeaderRow(pdf, tr, table, widths)

	for i, row := range table.Rows {
		if i%200 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if pdf.GetY()+g.rowHeight > g.pageHeight-20 {
			pdf.AddPage()
			g.addHeaderRow(pdf, tr, table, widths)
		}
		g.addRow(pdf, tr, table, widths, row, i%2 == 1)
	}

	if len(table.Rows) == 0 {
		r, gr, b := HexToRGB(BrandColors.TextMuted)
		pdf.SetTextColor(r, gr, b)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(g.contentWidth, 10, tr("Aucun enregistrement."), "", 1, "C", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return 0, fmt.Errorf("pdf generation error: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("pdf output error: %w", err)
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// =============================================================================
// Helper Methods
// =============================================================================

func (g *PDFGenerator) addTitle(pdf *fpdf.Fpdf, tr func(string) string, table *Table) {
	r, gr, b := HexToRGB(BrandColors.Primary)
	pdf.SetTextColor(r, gr, b)
	pdf.SetDrawColor(r, gr, b)
	pdf.SetLineWidth(0.5)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 9, tr(table.Title))
	pdf.Ln(9)

	r, gr, b = HexToRGB(BrandColors.TextMuted)
	pdf.SetTextColor(r, gr, b)
	pdf.SetFont("Helvetica", "", 9)
	sub := fmt.Sprintf("Généré le %s", FormatDateTime(table.GeneratedAt))
	if table.Subtitle != "" {
		sub = table.Subtitle + " - " + sub
	}
	pdf.Cell(0, 6, tr(sub))
	pdf.Ln(8)

	pdf.Line(g.margin, pdf.GetY(), g.pageWidth-g.margin, pdf.GetY())
	pdf.Ln(4)
}

func (g *PDFGenerator) addHeaderRow(pdf *fpdf.Fpdf, tr func(string) string, table *Table, widths []float64) {
	r, gr, b := HexToRGB(BrandColors.Primary)
	pdf.SetFillColor(r, gr, b)
	pdf.SetTextColor(255, 255, 255)
	r, gr, b = HexToRGB(BrandColors.Border)
	pdf.SetDrawColor(r, gr, b)
	pdf.SetLineWidth(0.2)
	pdf.SetFont("Helvetica", "B", 9)

	for i, h := range table.Headers {
		pdf.CellFormat(widths[i], g.rowHeight+1, fit(pdf, tr(h), widths[i]), "1", 0, align(table, i), true, 0, "")
	}
	pdf.Ln(-1)
}

func (g *PDFGenerator) addRow(pdf *fpdf.Fpdf, tr func(string) string, table *Table, widths []float64, row []string, shaded bool) {
	r, gr, b := HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)
	r, gr, b = HexToRGB(BrandColors.Background)
	pdf.SetFillColor(r, gr, b)
	pdf.SetFont("Helvetica", "", 9)

	for i := range table.Headers {
		var cell string
		if i < len(row) {
			cell = tr(row[i])
		}
		pdf.CellFormat(widths[i], g.rowHeight, fit(pdf, cell, widths[i]), "1", 0, align(table, i), shaded, 0, "")
	}
	pdf.Ln(-1)
}

func (g *PDFGenerator) addFooter(pdf *fpdf.Fpdf, tr func(string) string, table *Table) {
	pdf.SetY(-12)

	r, gr, b := HexToRGB(BrandColors.TextMuted)
	pdf.SetTextColor(r, gr, b)
	pdf.SetFont("Helvetica", "", 8)

	pdf.Cell(0, 8, tr(fmt.Sprintf("%s - %d enregistrement(s)", table.Title, len(table.Rows))))

	pdf.SetX(-g.margin - 30)
	pdf.CellFormat(30, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
}

// columnWidths shares the content width by the longest text of each column,
// with a floor so short columns stay readable.
func (g *PDFGenerator) columnWidths(pdf *fpdf.Fpdf, table *Table) []float64 {
	n := len(table.Headers)
	if n == 0 {
		return nil
	}
	pdf.SetFont("Helvetica", "", 9)
	const minWidth = 15.0
	natural := make([]float64, n)
	for i, h := range table.Headers {
		natural[i] = pdf.GetStringWidth(h) + 4
	}
	for _, row := range table.Rows {
		for i := 0; i < n && i < len(row); i++ {
			if w := pdf.GetStringWidth(row[i]) + 4; w > natural[i] {
				natural[i] = w
			}
		}
	}
	var total float64
	for i := range natural {
		if natural[i] < minWidth {
			natural[i] = minWidth
		}
		total += natural[i]
	}
	widths := make([]float64, n)
	for i := range natural {
		widths[i] = natural[i] / total * g.contentWidth
	}
	return widths
}

func align(table *Table, col int) string {
	if col < len(table.Numeric) && table.Numeric[col] {
		return "R"
	}
	return "L"
}

// fit truncates text so it fits in a cell of the given width.
func fit(pdf *fpdf.Fpdf, text string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(text) <= limit {
		return text
	}
	for len(text) > 0 && pdf.GetStringWidth(text+"...") > limit {
		text = text[:len(text)-1]
	}
	return text + "..."
}
