package handler

import (
	"errors"
	"net/http"

	"github.com/DukeRupert/guichet/internal/catalog"
	"github.com/DukeRupert/guichet/internal/csrf"
	"github.com/DukeRupert/guichet/internal/domain"
	"github.com/DukeRupert/guichet/internal/screen"
	"github.com/DukeRupert/guichet/internal/session"
)

// =============================================================================
// Template Data Types
// =============================================================================

// LayoutData is shared by every full page.
type LayoutData struct {
	CurrentPath string
	Title       string
	Nav         []catalog.Entry
	User        string
	Exercice    string
	CSRFToken   string
	Toasts      []ToastData
}

// FieldView is one form input.
type FieldView struct {
	Name     string
	Label    string
	Kind     string
	Value    string
	Required bool
	Options  []screen.Option
	Error    string
}

// InputType returns the HTML input type of the field.
func (f FieldView) InputType() string {
	switch screen.Kind(f.Kind) {
	case screen.KindDate:
		return "date"
	case screen.KindInteger:
		return "number"
	case screen.KindBool:
		return "checkbox"
	default:
		// Decimals stay text inputs so "1 234,50" can be typed.
		return "text"
	}
}

// Checked reports whether a checkbox is ticked.
func (f FieldView) Checked() bool {
	return f.Value == "true"
}

// RowView is one row of the result table.
type RowView struct {
	Key   string
	Cells []string
}

// ListView is the result table of a screen.
type ListView struct {
	Path        string
	Entity      string
	Headers     []string
	Numeric     []bool
	Rows        []RowView
	Query       string
	AllowDelete bool
	// CloseDialog empties the edit dialog out of band.
	CloseDialog bool
}

// FormView is the create form or the edit dialog.
type FormView struct {
	Path      string
	Entity    string
	Key       string // edited record, "" for the create form
	Fields    []FieldView
	CSRFToken string
}

// ScreenPageData contains data for an entity screen page.
type ScreenPageData struct {
	LayoutData
	Path             string
	Entity           string
	Tab              string // "create" or "list"
	Create           FormView
	List             ListView
	Reports          []screen.Report
	SearchDebounce   int // milliseconds
	BackgroundExport bool
}

// HomePageData contains data for the landing page.
type HomePageData struct {
	LayoutData
}

// =============================================================================
// Builders
// =============================================================================

func layoutFor(r *http.Request, title string, nav []catalog.Entry) LayoutData {
	sess := session.FromRequestContext(r)
	data := LayoutData{
		CurrentPath: r.URL.Path,
		Title:       title,
		Nav:         nav,
		User:        sess.User,
		CSRFToken:   csrf.Token(r.Context()),
	}
	if sess.Exercice != nil {
		data.Exercice = sess.Exercice.Label()
	}
	return data
}

// fieldsOf renders record through the schema's fields. Field errors come
// from err when it is a validation error.
func fieldsOf[T any](s *screen.Screen[T], record T, err error) []FieldView {
	var ve *domain.ValidationError
	errors.As(err, &ve)

	schema := s.Schema()
	fields := make([]FieldView, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		fv := FieldView{
			Name:     f.Name,
			Label:    f.Label,
			Kind:     string(f.Kind),
			Value:    f.Get(record),
			Required: f.Required,
			Options:  f.Options,
		}
		if f.Reference != "" {
			fv.Options = s.References(f.Reference)
		}
		if ve != nil {
			fv.Error = ve.Fields[f.Name]
		}
		// Zero numbers render blank so the placeholder shows.
		if (f.Kind == screen.KindNumber || f.Kind == screen.KindInteger) && fv.Value == "0" && fv.Error == "" {
			fv.Value = ""
		}
		fields = append(fields, fv)
	}
	return fields
}

func createFormOf[T any](s *screen.Screen[T], r *http.Request, err error) FormView {
	schema := s.Schema()
	return FormView{
		Path:      schema.Path,
		Entity:    schema.Entity,
		Fields:    fieldsOf(s, s.CreateDraft(), err),
		CSRFToken: csrf.Token(r.Context()),
	}
}

func editFormOf[T any](s *screen.Screen[T], r *http.Request, err error) FormView {
	schema := s.Schema()
	return FormView{
		Path:      schema.Path,
		Entity:    schema.Entity,
		Key:       s.EditKey(),
		Fields:    fieldsOf(s, s.EditDraft(), err),
		CSRFToken: csrf.Token(r.Context()),
	}
}

func listOf[T any](s *screen.Screen[T]) ListView {
	schema := s.Schema()
	results := s.Results()

	numeric := make([]bool, len(schema.Columns))
	for i, c := range schema.Columns {
		numeric[i] = c.Numeric
	}
	rows := make([]RowView, len(results))
	for i, rec := range results {
		rows[i] = RowView{Key: schema.Key(rec), Cells: schema.Row(rec)}
	}
	return ListView{
		Path:        schema.Path,
		Entity:      schema.Entity,
		Headers:     schema.Headers(),
		Numeric:     numeric,
		Rows:        rows,
		Query:       s.Query(),
		AllowDelete: schema.AllowDelete,
	}
}

// toastsOf drains the notices a screen emitted while serving the request.
func toastsOf[T any](s *screen.Screen[T]) []ToastData {
	outbox, ok := s.Notifier().(*screen.Outbox)
	if !ok {
		return nil
	}
	notices := outbox.Drain()
	toasts := make([]ToastData, 0, len(notices))
	for _, n := range notices {
		toasts = append(toasts, toastOf(n))
	}
	return toasts
}

func toastOf(n screen.Notice) ToastData {
	t := ToastData{Type: string(n.Level), Message: n.Message, AutoDismiss: 5}
	if n.Level == screen.LevelError || n.Level == screen.LevelWarning {
		t.AutoDismiss = 8
	}
	return t
}
