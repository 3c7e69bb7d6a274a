// Package export renders a screen's result set as CSV, PDF or printable HTML.
//
// Every generator works on a Table, built from a schema's columns, so the
// exports always match what the list screen shows.
package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/DukeRupert/guichet/internal/domain"
	"github.com/DukeRupert/guichet/internal/screen"
	"github.com/DukeRupert/guichet/internal/session"
)

// =============================================================================
// Generator Interface
// =============================================================================

// Generator writes a table in one format.
type Generator interface {
	// Generate writes the table to w and returns the number of bytes written.
	Generate(ctx context.Context, table *Table, w io.Writer) (int64, error)

	// Format returns the output format of this generator.
	Format() domain.ExportFormat
}

// New returns the generator for format.
func New(format domain.ExportFormat) (Generator, error) {
	switch format {
	case domain.ExportFormatCSV:
		return NewCSVGenerator(), nil
	case domain.ExportFormatPDF:
		return NewPDFGenerator(), nil
	case domain.ExportFormatHTML:
		return NewHTMLGenerator(), nil
	default:
		return nil, domain.Invalid("export", fmt.Sprintf("unsupported export format %q", format))
	}
}

// =============================================================================
// Table
// =============================================================================

// Table is the format-independent content of an export.
type Table struct {
	Entity      string // route path, used for file names
	Title       string
	Subtitle    string // e.g. the current exercice
	Headers     []string
	Numeric     []bool // right-aligned columns
	Rows        [][]string
	GeneratedAt time.Time
	GeneratedBy string
}

// TableOf builds a table from records using the schema's columns.
func TableOf[T any](schema *screen.Schema[T], records []T, sess session.Context) *Table {
	t := &Table{
		Entity:      schema.Path,
		Title:       schema.Title,
		Headers:     schema.Headers(),
		Numeric:     make([]bool, len(schema.Columns)),
		Rows:        make([][]string, 0, len(records)),
		GeneratedAt: time.Now(),
		GeneratedBy: sess.User,
	}
	if sess.Exercice != nil {
		t.Subtitle = "Exercice " + sess.Exercice.Label()
	}
	for i, c := range schema.Columns {
		t.Numeric[i] = c.Numeric
	}
	for _, r := range records {
		t.Rows = append(t.Rows, schema.Row(r))
	}
	return t
}

// Filename returns the download name of an export, e.g. "engins-20240315.csv".
func Filename(entity string, format domain.ExportFormat, at time.Time) string {
	entity = strings.Trim(entity, "/ ")
	if entity == "" {
		entity = "export"
	}
	return fmt.Sprintf("%s-%s.%s", entity, at.Format("20060102"), format.FileExtension())
}

// =============================================================================
// Brand Colors
// =============================================================================

// BrandColors is the palette shared by the PDF and HTML exports.
var BrandColors = struct {
	Primary    string
	TextDark   string
	TextMuted  string
	Border     string
	Background string
}{
	Primary:    "#1E3A5F",
	TextDark:   "#1F2937",
	TextMuted:  "#6B7280",
	Border:     "#E5E7EB",
	Background: "#F3F4F6",
}

// HexToRGB converts a hex color string to RGB values.
// Input format: "#RRGGBB" or "RRGGBB"
func HexToRGB(hex string) (r, g, b int) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return 0, 0, 0
	}

	r = hexToDec(hex[0:2])
	g = hexToDec(hex[2:4])
	b = hexToDec(hex[4:6])
	return
}

func hexToDec(hex string) int {
	val := 0
	for _, c := range hex {
		val *= 16
		switch {
		case c >= '0' && c <= '9':
			val += int(c - '0')
		case c >= 'a' && c <= 'f':
			val += int(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			val += int(c - 'A' + 10)
		}
	}
	return val
}

// FormatDateTime formats the generation stamp of an export.
func FormatDateTime(t time.Time) string {
	return t.Format("02/01/2006 à 15:04")
}
