package export

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/DukeRupert/guichet/internal/domain"
)

// utf8BOM lets spreadsheet software detect the encoding.
const utf8BOM = "\uFEFF"

// CSVGenerator writes semicolon-separated files in which every field is
// quoted and inner quotes are doubled.
type CSVGenerator struct {
	Delimiter string
}

// NewCSVGenerator creates a CSV generator with the ";" delimiter.
func NewCSVGenerator() *CSVGenerator {
	return &CSVGenerator{Delimiter: ";"}
}

// Format returns the output format of this generator.
func (g *CSVGenerator) Format() domain.ExportFormat {
	return domain.ExportFormatCSV
}

// Generate writes the BOM, the header line and one line per row.
func (g *CSVGenerator) Generate(ctx context.Context, table *Table, w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	if _, err := bw.WriteString(utf8BOM); err != nil {
		return cw.n, err
	}
	if err := g.writeLine(bw, table.Headers); err != nil {
		return cw.n, err
	}
	for i, row := range table.Rows {
		if i%500 == 0 {
			if err := ctx.Err(); err != nil {
				return cw.n, err
			}
		}
		if err := g.writeLine(bw, row); err != nil {
			return cw.n, err
		}
	}
	err := bw.Flush()
	return cw.n, err
}

func (g *CSVGenerator) writeLine(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if _, err := w.WriteString(g.Delimiter); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(Quote(f)); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}

// Quote wraps a field in double quotes, doubling the quotes it contains.
func Quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
