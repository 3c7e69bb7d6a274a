package handler

import (
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/DukeRupert/guichet/internal/display"
	"github.com/DukeRupert/guichet/internal/domain"
	"github.com/DukeRupert/guichet/internal/export"
)

// TemplateFuncs returns a FuncMap with custom template functions
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},

		// Date/Time functions
		"year": func() int {
			return time.Now().Year()
		},
		"formatDate": func(d domain.Date) string {
			return d.Display()
		},
		"formatDateTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return export.FormatDateTime(t)
		},
		"timeAgo": timeAgo,

		// String functions
		"upper": display.Upper,
		"title": func(v any) string {
			return display.Title(fmt.Sprint(v))
		},
		"truncate": func(s string, length int) string {
			if utf8.RuneCountInString(s) <= length {
				return s
			}
			return string([]rune(s)[:length]) + "..."
		},
		"json": func(v any) template.JS {
			b, err := json.Marshal(v)
			if err != nil {
				return template.JS(`""`)
			}
			return template.JS(b)
		},
		"hasPrefix": strings.HasPrefix,

		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			dict := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil
				}
				dict[key] = values[i+1]
			}
			return dict
		},

		// Form helpers
		"csrfField": func(token string) template.HTML {
			return template.HTML(fmt.Sprintf(`<input type="hidden" name="csrf_token" value="%s">`, template.HTMLEscapeString(token)))
		},
		"csrfHeaders": func(token string) string {
			b, _ := json.Marshal(map[string]string{"X-CSRF-Token": token})
			return string(b)
		},

		"toastClass": func(level string) string {
			switch level {
			case "success":
				return "toast toast-success"
			case "warning":
				return "toast toast-warning"
			case "error":
				return "toast toast-error"
			default:
				return "toast toast-info"
			}
		},
		"jobStatusLabel": jobStatusLabel,
	}
}

// timeAgo renders a past instant relative to now, in French.
func timeAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "à l'instant"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "il y a 1 minute"
		}
		return fmt.Sprintf("il y a %d minutes", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "il y a 1 heure"
		}
		return fmt.Sprintf("il y a %d heures", hours)
	case diff < 48*time.Hour:
		return "hier"
	default:
		return t.Format(domain.DisplayDateLayout)
	}
}
