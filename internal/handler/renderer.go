package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
)

//go:embed templates
var embeddedTemplates embed.FS

// Renderer manages template parsing and rendering with isolated template sets.
//
// Templates are organized as:
//   - layouts/app.html - the page layout
//   - components/*.html - reusable components, shared by pages and partials
//   - partials/*.html - standalone fragments for htmx responses
//   - pages/*.html - full pages, rendered inside the layout
type Renderer struct {
	templates map[string]*template.Template
	logger    *slog.Logger
	isDev     bool
	mu        sync.RWMutex

	fsys fs.FS
}

// RendererConfig holds configuration for the renderer.
type RendererConfig struct {
	// TemplatesDir reads templates from disk instead of the embedded copy.
	TemplatesDir string
	Logger       *slog.Logger
	// IsDev reloads templates on every render. It only makes sense with TemplatesDir.
	IsDev bool
}

// NewRenderer creates a new template renderer.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	if cfg.TemplatesDir == "" {
		return NewRendererFromFS(embeddedTemplates, cfg.Logger)
	}
	r := &Renderer{
		templates: make(map[string]*template.Template),
		logger:    cfg.Logger,
		isDev:     cfg.IsDev,
		fsys:      os.DirFS(cfg.TemplatesDir),
	}
	if err := r.loadTemplates(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewRendererFromFS creates a renderer from a filesystem laid out like the
// embedded templates directory. A top-level "templates" directory is entered
// when present.
func NewRendererFromFS(fsys fs.FS, logger *slog.Logger) (*Renderer, error) {
	if sub, err := fs.Sub(fsys, "templates"); err == nil {
		if _, statErr := fs.Stat(sub, "layouts"); statErr == nil {
			fsys = sub
		}
	}
	r := &Renderer{
		templates: make(map[string]*template.Template),
		logger:    logger,
		fsys:      fsys,
	}
	if err := r.loadTemplates(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) loadTemplates() error {
	templates := make(map[string]*template.Template)

	componentFiles, err := fs.Glob(r.fsys, "components/*.html")
	if err != nil {
		return fmt.Errorf("failed to glob components: %w", err)
	}
	partialFiles, err := fs.Glob(r.fsys, "partials/*.html")
	if err != nil {
		return fmt.Errorf("failed to glob partials: %w", err)
	}
	shared := append(append([]string{}, componentFiles...), partialFiles...)

	// Each partial is executable on its own and may use components.
	for _, partial := range partialFiles {
		files := append([]string{partial}, componentFiles...)
		tmpl, err := template.New("").Funcs(TemplateFuncs()).ParseFS(r.fsys, files...)
		if err != nil {
			return fmt.Errorf("failed to parse partial %s: %w", partial, err)
		}
		templates["partial/"+baseName(partial)] = tmpl
	}

	appBase, err := template.New("app").Funcs(TemplateFuncs()).ParseFS(r.fsys, "layouts/app.html")
	if err != nil {
		return fmt.Errorf("failed to parse app layout: %w", err)
	}
	if len(shared) > 0 {
		if appBase, err = appBase.ParseFS(r.fsys, shared...); err != nil {
			return fmt.Errorf("failed to parse components into app layout: %w", err)
		}
	}

	pages, err := fs.Glob(r.fsys, "pages/*.html")
	if err != nil {
		return fmt.Errorf("failed to glob pages: %w", err)
	}
	for _, page := range pages {
		tmpl, err := appBase.Clone()
		if err != nil {
			return fmt.Errorf("failed to clone app template for %s: %w", page, err)
		}
		if tmpl, err = tmpl.ParseFS(r.fsys, page); err != nil {
			return fmt.Errorf("failed to parse page %s: %w", page, err)
		}
		templates[baseName(page)] = tmpl
	}

	r.mu.Lock()
	r.templates = templates
	r.mu.Unlock()

	r.logger.Debug("templates loaded", "count", len(templates))
	return nil
}

func baseName(file string) string {
	return strings.TrimSuffix(path.Base(file), path.Ext(file))
}

// Reload reloads all templates. Useful for development.
func (r *Renderer) Reload() error {
	return r.loadTemplates()
}

func (r *Renderer) lookup(name string) (*template.Template, error) {
	if r.isDev {
		if err := r.Reload(); err != nil {
			return nil, fmt.Errorf("template reload failed: %w", err)
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tmpl, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	return tmpl, nil
}

// Render renders a page inside the layout, or a partial when name starts
// with "partial/".
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	tmpl, err := r.lookup(name)
	if err != nil {
		return err
	}
	execName := "app"
	if strings.HasPrefix(name, "partial/") {
		execName = strings.TrimPrefix(name, "partial/")
	}
	return tmpl.ExecuteTemplate(w, execName, data)
}

// RenderHTML renders a template and returns the HTML as a string.
func (r *Renderer) RenderHTML(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderHTTP renders a full page to w.
func (r *Renderer) RenderHTTP(w http.ResponseWriter, name string, data any) {
	r.write(w, http.StatusOK, []fragment{{name: name, data: data}})
}

// RenderPartial renders a partial template (for htmx responses).
// The partial file must define a template with the same name as the file.
func (r *Renderer) RenderPartial(w http.ResponseWriter, name string, data any) {
	r.write(w, http.StatusOK, []fragment{{name: "partial/" + name, data: data}})
}

// RenderPartialWithToasts renders a partial followed by out-of-band toasts.
func (r *Renderer) RenderPartialWithToasts(w http.ResponseWriter, name string, data any, toasts []ToastData) {
	frags := []fragment{{name: "partial/" + name, data: data}}
	if len(toasts) > 0 {
		frags = append(frags, fragment{name: "partial/toasts", data: toastsData{Toasts: toasts, OOB: true}})
	}
	r.write(w, http.StatusOK, frags)
}

// RenderToasts answers an htmx request with toasts only; nothing is swapped
// into the request's target.
func (r *Renderer) RenderToasts(w http.ResponseWriter, toasts []ToastData) {
	w.Header().Set("HX-Reswap", "none")
	r.write(w, http.StatusOK, []fragment{{name: "partial/toasts", data: toastsData{Toasts: toasts, OOB: true}}})
}

type fragment struct {
	name string
	data any
}

// write renders every fragment to a buffer first so template errors never
// produce half a response.
func (r *Renderer) write(w http.ResponseWriter, status int, frags []fragment) {
	var buf bytes.Buffer
	for _, f := range frags {
		if err := r.Render(&buf, f.name, f.data); err != nil {
			r.logger.Error("template execution failed", "name", f.name, "error", err)
			http.Error(w, "Template execution failed", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// ListTemplates returns the names of all loaded templates.
func (r *Renderer) ListTemplates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	return names
}

// ToastData holds data for rendering a toast notification.
type ToastData struct {
	Type        string // success, error, warning, info
	Message     string
	AutoDismiss int // seconds
}

type toastsData struct {
	Toasts []ToastData
	OOB    bool
}
