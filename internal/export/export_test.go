package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/guichet/internal/catalog"
	"github.com/DukeRupert/guichet/internal/domain"
	"github.com/DukeRupert/guichet/internal/session"
)

func sampleTable() *Table {
	return &Table{
		Entity:      "engins",
		Title:       "Engins",
		Subtitle:    "Exercice 2024",
		Headers:     []string{"Nom", "Prix", "Description"},
		Numeric:     []bool{false, true, false},
		Rows:        [][]string{{"Pelle", "1 000,00", `Dit "la grosse"`}, {"Grue", "25,50", "a;b"}},
		GeneratedAt: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		GeneratedBy: "alice",
	}
}

func TestNew(t *testing.T) {
	for _, f := range []domain.ExportFormat{domain.ExportFormatCSV, domain.ExportFormatPDF, domain.ExportFormatHTML} {
		g, err := New(f)
		require.NoError(t, err)
		assert.Equal(t, f, g.Format())
	}

	_, err := New("docx")
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestTableOf(t *testing.T) {
	schema := catalog.Engins()
	sess := session.Context{
		User:     "alice",
		Exercice: &domain.Exercice{ID: 3, Libelle: "2024"},
	}
	records := []domain.Engin{{ID: 1, Nom: "Pelle", Prix: 1000, Description: "jaune"}}

	table := TableOf(schema, records, sess)

	assert.Equal(t, "engins", table.Entity)
	assert.Equal(t, "Engins", table.Title)
	assert.Equal(t, "Exercice 2024", table.Subtitle)
	assert.Equal(t, "alice", table.GeneratedBy)
	if diff := cmp.Diff([]string{"Nom", "Prix", "Description"}, table.Headers); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []bool{false, true, false}, table.Numeric)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Pelle", table.Rows[0][0])
	assert.Equal(t, "jaune", table.Rows[0][2])
}

func TestTableOf_NoExercice(t *testing.T) {
	table := TableOf(catalog.Engins(), nil, session.Context{})
	assert.Empty(t, table.Subtitle)
	assert.Empty(t, table.Rows)
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "engins-20240315.csv", Filename("engins", domain.ExportFormatCSV, at))
	assert.Equal(t, "banques-20240315.pdf", Filename("/banques/", domain.ExportFormatPDF, at))
	assert.Equal(t, "export-20240315.html", Filename("", domain.ExportFormatHTML, at))
}

func TestHexToRGB(t *testing.T) {
	r, g, b := HexToRGB("#1E3A5F")
	assert.Equal(t, []int{30, 58, 95}, []int{r, g, b})

	r, g, b = HexToRGB("bad")
	assert.Equal(t, []int{0, 0, 0}, []int{r, g, b})
}

func TestCSVGenerator(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewCSVGenerator().Generate(context.Background(), sampleTable(), &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\uFEFF"), "missing BOM")

	lines := strings.Split(strings.TrimSuffix(strings.TrimPrefix(out, "\uFEFF"), "\r\n"), "\r\n")
	want := []string{
		`"Nom";"Prix";"Description"`,
		`"Pelle";"1 000,00";"Dit ""la grosse"""`,
		`"Grue";"25,50";"a;b"`,
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVGenerator_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	_, err := NewCSVGenerator().Generate(ctx, sampleTable(), &buf)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `""`, Quote(""))
	assert.Equal(t, `"a""b"`, Quote(`a"b`))
}

func TestPDFGenerator(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewPDFGenerator().Generate(context.Background(), sampleTable(), &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestPDFGenerator_ManyRowsAndEmpty(t *testing.T) {
	table := sampleTable()
	for i := 0; i < 120; i++ {
		table.Rows = append(table.Rows, []string{"Engin très long " + strings.Repeat("x", 80), "1,00", ""})
	}
	var buf bytes.Buffer
	_, err := NewPDFGenerator().Generate(context.Background(), table, &buf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	empty := sampleTable()
	empty.Rows = nil
	buf.Reset()
	_, err = NewPDFGenerator().Generate(context.Background(), empty, &buf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestHTMLGenerator(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewHTMLGenerator().Generate(context.Background(), sampleTable(), &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "<h1>Engins</h1>")
	assert.Contains(t, out, "Exercice 2024 - Généré le 15/03/2024 à 10:30")
	assert.Contains(t, out, "window.print()")
	assert.Contains(t, out, `<td class="num">1 000,00</td>`)
	assert.Contains(t, out, "Dit &#34;la grosse&#34;")
	assert.NotContains(t, out, "Aucun enregistrement.")
}

func TestHTMLGenerator_Empty(t *testing.T) {
	table := sampleTable()
	table.Rows = nil

	var buf bytes.Buffer
	_, err := NewHTMLGenerator().Generate(context.Background(), table, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `<td colspan="3">Aucun enregistrement.</td>`)
}
