package export

import (
	"context"
	"fmt"
	"html/template"
	"io"

	"github.com/DukeRupert/guichet/internal/domain"
)

// HTMLGenerator renders a printable page that opens the print dialog on load.
type HTMLGenerator struct {
	tmpl *template.Template
}

// NewHTMLGenerator creates a new HTML generator.
func NewHTMLGenerator() *HTMLGenerator {
	funcs := template.FuncMap{
		"align": func(t *Table, i int) string {
			if align(t, i) == "R" {
				return "num"
			}
			return ""
		},
		"when": FormatDateTime,
	}
	return &HTMLGenerator{
		tmpl: template.Must(template.New("print").Funcs(funcs).Parse(printTemplate)),
	}
}

// Format returns the output format of this generator.
func (g *HTMLGenerator) Format() domain.ExportFormat {
	return domain.ExportFormatHTML
}

// Generate writes the printable page to w.
func (g *HTMLGenerator) Generate(ctx context.Context, table *Table, w io.Writer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cw := &countingWriter{w: w}
	data := struct {
		*Table
		Colors any
	}{table, BrandColors}
	if err := g.tmpl.Execute(cw, data); err != nil {
		return cw.n, fmt.Errorf("html generation error: %w", err)
	}
	return cw.n, nil
}

const printTemplate = `<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; color: {{.Colors.TextDark}}; margin: 24px; }
h1 { color: {{.Colors.Primary}}; font-size: 20px; margin: 0 0 4px; }
p.meta { color: {{.Colors.TextMuted}}; font-size: 12px; margin: 0 0 16px; }
table { border-collapse: collapse; width: 100%; font-size: 12px; }
th { background: {{.Colors.Primary}}; color: #fff; text-align: left; }
th, td { border: 1px solid {{.Colors.Border}}; padding: 4px 6px; }
tr:nth-child(even) td { background: {{.Colors.Background}}; }
.num { text-align: right; }
@media print { body { margin: 0; } }
</style>
</head>
<body onload="window.print()">
<h1>{{.Title}}</h1>
<p class="meta">{{with .Subtitle}}{{.}} - {{end}}Généré le {{when .GeneratedAt}}</p>
<table>
<thead><tr>{{range $i, $h := .Headers}}<th class="{{align $.Table $i}}">{{$h}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr>{{range $i, $c := .}}<td class="{{align $.Table $i}}">{{$c}}</td>{{end}}</tr>
{{- else}}
<tr><td colspan="{{len .Headers}}">Aucun enregistrement.</td></tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`
