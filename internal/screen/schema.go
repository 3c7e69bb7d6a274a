package screen

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/DukeRupert/guichet/internal/display"
	"github.com/DukeRupert/guichet/internal/domain"
	"github.com/DukeRupert/guichet/internal/session"
)

// Kind is the input kind of a field.
type Kind string

const (
	KindText     Kind = "text"
	KindTextArea Kind = "textarea"
	KindNumber   Kind = "number"
	KindInteger  Kind = "integer"
	KindDate     Kind = "date"
	KindBool     Kind = "bool"
	KindSelect   Kind = "select"
)

// Option is one choice of a select field.
type Option struct {
	Value string
	Label string
}

// Field is a typed accessor for one property of T. Get renders the value for
// a form input; Set parses form input into the record.
type Field[T any] struct {
	Name      string // wire name, e.g. "poids1"
	Label     string
	Kind      Kind
	Required  bool
	Options   []Option // static choices of a select
	Reference string   // tag of the reference list feeding a select
	Get       func(T) string
	Set       func(*T, string) error
}

// Require marks the field as mandatory in forms.
func (f Field[T]) Require() Field[T] {
	f.Required = true
	return f
}

// Multiline renders a text field as a textarea.
func (f Field[T]) Multiline() Field[T] {
	f.Kind = KindTextArea
	return f
}

// Text builds a free text field.
func Text[T any](name, label string, get func(T) string, set func(*T, string)) Field[T] {
	return Field[T]{
		Name:  name,
		Label: label,
		Kind:  KindText,
		Get:   get,
		Set: func(t *T, v string) error {
			set(t, strings.TrimSpace(v))
			return nil
		},
	}
}

// Number builds a decimal field. Both "1234.5" and "1 234,5" are accepted.
func Number[T any](name, label string, get func(T) float64, set func(*T, float64)) Field[T] {
	return Field[T]{
		Name:  name,
		Label: label,
		Kind:  KindNumber,
		Get: func(t T) string {
			return strconv.FormatFloat(get(t), 'f', -1, 64)
		},
		Set: func(t *T, v string) error {
			n, err := ParseNumber(v)
			if err != nil {
				return fmt.Errorf("%s doit être un nombre.", label)
			}
			set(t, n)
			return nil
		},
	}
}

// Integer builds a whole number field.
func Integer[T any](name, label string, get func(T) int, set func(*T, int)) Field[T] {
	return Field[T]{
		Name:  name,
		Label: label,
		Kind:  KindInteger,
		Get: func(t T) string {
			return strconv.Itoa(get(t))
		},
		Set: func(t *T, v string) error {
			v = strings.TrimSpace(v)
			if v == "" {
				set(t, 0)
				return nil
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s doit être un nombre entier.", label)
			}
			set(t, n)
			return nil
		},
	}
}

// Date builds a calendar date field. Input may be dd/mm/yyyy or ISO.
func Date[T any](name, label string, get func(T) domain.Date, set func(*T, domain.Date)) Field[T] {
	return Field[T]{
		Name:  name,
		Label: label,
		Kind:  KindDate,
		Get: func(t T) string {
			return get(t).ISO()
		},
		Set: func(t *T, v string) error {
			d, err := domain.ParseDisplayDate(v)
			if err != nil {
				return fmt.Errorf("%s n'est pas une date valide (jj/mm/aaaa).", label)
			}
			set(t, d)
			return nil
		},
	}
}

// Bool builds a checkbox field.
func Bool[T any](name, label string, get func(T) bool, set func(*T, bool)) Field[T] {
	return Field[T]{
		Name:  name,
		Label: label,
		Kind:  KindBool,
		Get: func(t T) string {
			return strconv.FormatBool(get(t))
		},
		Set: func(t *T, v string) error {
			b, err := ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s : valeur invalide.", label)
			}
			set(t, b)
			return nil
		},
	}
}

// Select builds a choice field. Choices come from options, or from the
// reference list named by reference when options is nil.
func Select[T any](name, label string, options []Option, reference string, get func(T) string, set func(*T, string)) Field[T] {
	f := Text(name, label, get, set)
	f.Kind = KindSelect
	f.Options = options
	f.Reference = reference
	return f
}

// Column is one column of the result table and of exports.
type Column[T any] struct {
	Header  string
	Numeric bool
	Value   func(T) string
}

// TextColumn builds a left-aligned column.
func TextColumn[T any](header string, value func(T) string) Column[T] {
	return Column[T]{Header: header, Value: value}
}

// AmountColumn builds a right-aligned monetary column.
func AmountColumn[T any](header string, value func(T) float64) Column[T] {
	return Column[T]{Header: header, Numeric: true, Value: func(t T) string {
		return display.Amount(value(t))
	}}
}

// NumberColumn builds a right-aligned quantity column.
func NumberColumn[T any](header string, value func(T) float64) Column[T] {
	return Column[T]{Header: header, Numeric: true, Value: func(t T) string {
		return display.Number(value(t))
	}}
}

// DateColumn builds a dd/mm/yyyy column.
func DateColumn[T any](header string, value func(T) domain.Date) Column[T] {
	return Column[T]{Header: header, Value: func(t T) string {
		return value(t).Display()
	}}
}

// Reference is a list loaded from the backend to feed select fields.
type Reference struct {
	Tag        string // e.g. "loadDevises"
	Path       string // collection root, e.g. "devises"
	ValueField string
	LabelField string
}

// Options turns raw backend records into select options.
func (r Reference) Options(records []map[string]any) []Option {
	opts := make([]Option, 0, len(records))
	for _, rec := range records {
		value := scalarString(rec[r.ValueField])
		if value == "" {
			continue
		}
		label := scalarString(rec[r.LabelField])
		if label == "" {
			label = value
		}
		opts = append(opts, Option{Value: value, Label: label})
	}
	return opts
}

// Report is a backend report offered on the screen.
type Report struct {
	Name  string // endpoint segment, e.g. "inventaire"
	Label string
}

// Schema describes one entity for the generic screen.
type Schema[T any] struct {
	Entity string // singular, used in operation tags: "Banque"
	Plural string // plural, used in operation tags: "Banques"
	Path   string // backend collection root and route prefix: "banques"
	Title  string // page heading

	Fields  []Field[T]
	Columns []Column[T]

	// Key returns the backend id of a record, "" or "0" for unsaved records.
	Key func(T) string
	// Validate checks a draft before any network call.
	Validate func(op string, record T) *domain.ValidationError
	// Stamp fills audit fields from the session before a create.
	Stamp func(record *T, sess session.Context)

	AllowDelete bool
	References  []Reference
	Reports     []Report
}

// New returns a fresh draft: the zero value of T, with every field present.
func (s *Schema[T]) New() T {
	var zero T
	return zero
}

func (s *Schema[T]) LoadTag() string   { return "load" + s.Plural }
func (s *Schema[T]) SearchTag() string { return "search" + s.Plural }
func (s *Schema[T]) CreateTag() string { return "create" + s.Entity }
func (s *Schema[T]) UpdateTag() string { return "update" + s.Entity }
func (s *Schema[T]) DeleteTag() string { return "delete" + s.Entity }
func (s *Schema[T]) ReportTag() string { return "report" + s.Plural }

// Field returns the field with the given wire name.
func (s *Schema[T]) Field(name string) (Field[T], bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field[T]{}, false
}

// Label returns the label of a field, falling back to a humanized name.
func (s *Schema[T]) Label(name string) string {
	if f, ok := s.Field(name); ok && f.Label != "" {
		return f.Label
	}
	return display.Humanize(name)
}

// Headers returns the column headers.
func (s *Schema[T]) Headers() []string {
	headers := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		headers[i] = c.Header
	}
	return headers
}

// Row renders a record as table cells.
func (s *Schema[T]) Row(record T) []string {
	cells := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		cells[i] = c.Value(record)
	}
	return cells
}

// Set parses value into the named field of record.
func (s *Schema[T]) Set(op string, record *T, name, value string) error {
	f, ok := s.Field(name)
	if !ok {
		return domain.Invalid(op, fmt.Sprintf("unknown field %q", name))
	}
	if err := f.Set(record, value); err != nil {
		return domain.NewValidationError(op, name, err.Error())
	}
	return nil
}

// Apply sets every schema field from form values. Unchecked checkboxes are
// absent from forms, so a missing bool field is set to false. All parse errors
// are collected; fields that fail keep their previous value.
func (s *Schema[T]) Apply(op string, record *T, values url.Values) *domain.ValidationError {
	ve := &domain.ValidationError{Op: op}
	for _, f := range s.Fields {
		raw, present := values[f.Name]
		var value string
		switch {
		case present && len(raw) > 0:
			value = raw[len(raw)-1]
		case f.Kind == KindBool:
			value = "false"
		default:
			continue
		}
		if err := f.Set(record, value); err != nil {
			ve.Add(f.Name, err.Error())
		}
	}
	return ve
}

// ValidateDraft runs the entity rules on record, after checking that every
// number field holds a finite value.
func (s *Schema[T]) ValidateDraft(op string, record T) *domain.ValidationError {
	ve := &domain.ValidationError{Op: op}
	for _, f := range s.Fields {
		if f.Kind != KindNumber {
			continue
		}
		if _, err := ParseNumber(f.Get(record)); err != nil {
			ve.Add(f.Name, fmt.Sprintf("%s doit être un nombre.", f.Label))
		}
	}
	if !ve.Empty() {
		return ve
	}
	return s.Validate(op, record)
}

// Check reports schema construction mistakes.
func (s *Schema[T]) Check() error {
	if s.Entity == "" || s.Plural == "" || s.Path == "" {
		return fmt.Errorf("schema: entity, plural and path are required")
	}
	if s.Key == nil || s.Validate == nil {
		return fmt.Errorf("schema %s: Key and Validate are required", s.Path)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" || f.Get == nil || f.Set == nil {
			return fmt.Errorf("schema %s: incomplete field %q", s.Path, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema %s: duplicate field %q", s.Path, f.Name)
		}
		seen[f.Name] = true
		if f.Reference != "" && !s.hasReference(f.Reference) {
			return fmt.Errorf("schema %s: field %q uses unknown reference %q", s.Path, f.Name, f.Reference)
		}
	}
	for _, c := range s.Columns {
		if c.Value == nil {
			return fmt.Errorf("schema %s: column %q has no value", s.Path, c.Header)
		}
	}
	return nil
}

func (s *Schema[T]) hasReference(tag string) bool {
	for _, r := range s.References {
		if r.Tag == tag {
			return true
		}
	}
	return false
}

// groupedDigits matches an integer part written with dots between groups of
// three digits, as in "1.234.567".
var groupedDigits = regexp.MustCompile(`^[0-9]{1,3}(\.[0-9]{3})+$`)

// ParseNumber parses a decimal typed either the programmer's way ("1234.5")
// or the French way ("1 234,5" or "1.234,5"). Blank input is 0.
//
// Only digits, one leading sign, dots and commas are accepted. With a comma,
// dots may only separate thousands before it; mixed input such as "1,234.56"
// is rejected rather than guessed. The result is always finite.
func ParseNumber(s string) (float64, error) {
	raw := s
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, nil
	}
	invalid := fmt.Errorf("invalid number %q", raw)

	sign := ""
	if s[0] == '+' || s[0] == '-' {
		sign, s = s[:1], s[1:]
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return 0, invalid
		}
	}

	whole, frac, hasComma := strings.Cut(s, ",")
	switch {
	case hasComma:
		if strings.ContainsAny(frac, ".,") {
			return 0, invalid
		}
		if strings.Contains(whole, ".") {
			if !groupedDigits.MatchString(whole) {
				return 0, invalid
			}
			whole = strings.ReplaceAll(whole, ".", "")
		}
		s = whole + "." + frac
	case strings.Count(s, ".") > 1:
		if !groupedDigits.MatchString(s) {
			return 0, invalid
		}
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := strconv.ParseFloat(sign+s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, invalid
	}
	return v, nil
}

// ParseBool accepts checkbox and select spellings of a flag.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "off", "non", "no":
		return false, nil
	case "1", "true", "on", "oui", "yes":
		return true, nil
	}
	return false, fmt.Errorf("invalid flag %q", s)
}

func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
