// Package handler contains the HTTP handlers of the guichet back-office.
//
// Every entity screen is served by one generic EntityHandler parameterized
// by the entity's schema. Handlers answer htmx requests with partials and
// turn screen notices into toasts.
package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/DukeRupert/guichet/internal/backend"
	"github.com/DukeRupert/guichet/internal/catalog"
	"github.com/DukeRupert/guichet/internal/domain"
	"github.com/DukeRupert/guichet/internal/export"
	"github.com/DukeRupert/guichet/internal/jobs"
	"github.com/DukeRupert/guichet/internal/metrics"
	"github.com/DukeRupert/guichet/internal/screen"
	"github.com/DukeRupert/guichet/internal/session"
	"github.com/DukeRupert/guichet/internal/storage"
	"github.com/DukeRupert/guichet/internal/worker"
)

// =============================================================================
// Handler Configuration
// =============================================================================

// API is the backend surface of one entity: the screen operations plus
// binary reports. *backend.Resource[T] implements it.
type API[T any] interface {
	screen.Backend[T]
	Report(ctx context.Context, call backend.Call, name string, query url.Values) (*backend.Blob, error)
}

// Deps are shared by every entity handler.
type Deps struct {
	Renderer *Renderer
	Logger   *slog.Logger
	Nav      []catalog.Entry

	// References loads select options. Nil disables reference lists.
	References backend.Doer
	// Queue receives background exports. Nil disables them.
	Queue worker.Queue
	// Storage archives backend reports. Nil disables archiving.
	Storage storage.Storage
}

// ScreenConfig tunes the screens built by a handler.
type ScreenConfig struct {
	PageSize      int
	Debounce      time.Duration
	SearchTimeout time.Duration
	IdleTTL       time.Duration
}

// EntityHandler serves the CRUD screen of one entity.
type EntityHandler[T any] struct {
	schema   *screen.Schema[T]
	api      API[T]
	registry *screen.Registry[T]
	deps     Deps
	config   ScreenConfig
	logger   *slog.Logger
}

// NewEntityHandler creates the handler of schema. Each session gets its own
// screen, kept in a registry until it has been idle for config.IdleTTL.
func NewEntityHandler[T any](schema *screen.Schema[T], api API[T], deps Deps, config ScreenConfig) *EntityHandler[T] {
	if config.Debounce <= 0 {
		config.Debounce = screen.DefaultDebounce
	}
	logger := deps.Logger.With("entity", schema.Path)
	h := &EntityHandler[T]{
		schema: schema,
		api:    api,
		deps:   deps,
		config: config,
		logger: logger,
	}
	h.registry = screen.NewRegistry(schema.Path, func(sess session.Context) *screen.Screen[T] {
		return screen.New(schema, api, sess, screen.Options{
			PageSize:      config.PageSize,
			Debounce:      config.Debounce,
			SearchTimeout: config.SearchTimeout,
			Notifier:      &screen.Outbox{},
			Logger:        logger,
			References:    deps.References,
		})
	}, config.IdleTTL)
	return h
}

// Path returns the route prefix of the entity.
func (h *EntityHandler[T]) Path() string {
	return h.schema.Path
}

// ExportSource exposes the entity to background export jobs.
func (h *EntityHandler[T]) ExportSource() jobs.Source {
	return jobs.Collection(h.schema, h.api, h.config.PageSize)
}

// Run evicts idle screens every interval until ctx is done.
func (h *EntityHandler[T]) Run(ctx context.Context, interval time.Duration) {
	h.registry.Run(ctx, interval)
}

// RegisterRoutes registers the entity routes on mux. page wraps every route;
// limit additionally wraps export and report routes.
func (h *EntityHandler[T]) RegisterRoutes(mux *http.ServeMux, page, limit func(http.Handler) http.Handler) {
	p := "/" + h.schema.Path
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, page(fn))
	}
	handleLimited := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, page(limit(fn)))
	}

	handle("GET "+p, h.Page)
	handle("GET "+p+"/list", h.List)
	handle("GET "+p+"/search", h.Search)
	handle("POST "+p, h.Create)
	handle("GET "+p+"/edit/{id}", h.Edit)
	handle("PUT "+p+"/{id}", h.Update)
	handle("POST "+p+"/edit/cancel", h.CancelEdit)
	handle("DELETE "+p+"/{id}", h.Delete)

	handleLimited("GET "+p+"/export.csv", h.exportInline(domain.ExportFormatCSV))
	handleLimited("GET "+p+"/export.pdf", h.exportInline(domain.ExportFormatPDF))
	handleLimited("GET "+p+"/print", h.exportInline(domain.ExportFormatHTML))
	handleLimited("POST "+p+"/exports", h.EnqueueExport)
	handleLimited("GET "+p+"/reports/{name}", h.Report)
}

func (h *EntityHandler[T]) screenFor(r *http.Request) *screen.Screen[T] {
	return h.registry.Get(session.FromRequestContext(r))
}

// =============================================================================
// GET /{p} - Screen Page
// =============================================================================

// Page renders the full screen. The create tab is shown first; ?tab=list
// opens the list tab, which loads the collection.
func (h *EntityHandler[T]) Page(w http.ResponseWriter, r *http.Request) {
	s := h.screenFor(r)
	ctx := r.Context()

	if err := s.LoadReferences(ctx); err != nil {
		h.logger.Warn("reference lists not loaded", "error", err)
	}

	tab := "create"
	if r.URL.Query().Get("tab") == "list" {
		tab = "list"
		if err := s.ActivateList(ctx); err != nil && !errors.Is(err, screen.ErrStale) {
			h.logger.Debug("list activation failed", "error", err)
		}
	}

	data := ScreenPageData{
		LayoutData:       layoutFor(r, h.schema.Title, h.deps.Nav),
		Path:             h.schema.Path,
		Entity:           h.schema.Entity,
		Tab:              tab,
		Create:           createFormOf(s, r, nil),
		List:             listOf(s),
		Reports:          h.schema.Reports,
		SearchDebounce:   int(h.config.Debounce.Milliseconds()),
		BackgroundExport: h.deps.Queue != nil,
	}
	data.Toasts = toastsOf(s)
	h.deps.Renderer.RenderHTTP(w, "screen", data)
}

// =============================================================================
// GET /{p}/list - List Tab
// =============================================================================

// List activates the list tab: the filter is cleared and everything reloaded.
func (h *EntityHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	s := h.screenFor(r)
	if err := s.ActivateList(r.Context()); errors.Is(err, screen.ErrStale) {
		noSwap(w)
		return
	}
	h.deps.Renderer.RenderPartialWithToasts(w, "list", listOf(s), toastsOf(s))
}

// =============================================================================
// GET /{p}/search - Debounced Search
// =============================================================================

// Search queues a debounced search. Requests replaced by a newer keystroke
// get 204 and swap nothing; the last one renders the results. With ?now=1
// (the search form submitted with Enter) the quiet period is skipped.
func (h *EntityHandler[T]) Search(w http.ResponseWriter, r *http.Request) {
	s := h.screenFor(r)
	query := r.URL.Query().Get("query")

	var done <-chan error
	if r.URL.Query().Get("now") != "" {
		done = s.SearchNow(query)
	} else {
		done = s.QueueSearch(query)
	}

	var err error
	select {
	case err = <-done:
	case <-r.Context().Done():
		return
	}

	switch {
	case errors.Is(err, screen.ErrSuperseded), errors.Is(err, screen.ErrStale), errors.Is(err, screen.ErrClosed):
		noSwap(w)
		return
	}
	h.deps.Renderer.RenderPartialWithToasts(w, "list", listOf(s), toastsOf(s))
}

// =============================================================================
// POST /{p} - Create
// =============================================================================

// Create applies the submitted form to the create draft and submits it. The
// form is rendered back: reset on success, with field errors otherwise.
func (h *EntityHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	s := h.screenFor(r)

	if err := r.ParseForm(); err != nil {
		h.renderBadForm(w, err)
		return
	}

	var toasts []ToastData
	err := s.FillCreate(r.PostForm)
	if err != nil {
		toasts = append(toasts, invalidToast(err))
	} else {
		_, err = s.SubmitCreate(r.Context())
	}

	h.deps.Renderer.RenderPartialWithToasts(w, "form", createFormOf(s, r, err), append(toasts, toastsOf(s)...))
}

// =============================================================================
// GET /{p}/edit/{id} - Edit Dialog
// =============================================================================

// Edit opens the edit dialog on a row of the result set.
func (h *EntityHandler[T]) Edit(w http.ResponseWriter, r *http.Request) {
	s := h.screenFor(r)
	id := r.PathValue("id")

	if err := s.SelectForEdit(id); err != nil {
		h.deps.Renderer.RenderToasts(w, []ToastData{{Type: "warning", Message: "Cet élément n'est plus dans la liste. Rechargez-la.", AutoDismiss: 8}})
		return
	}
	if err := s.LoadReferences(r.Context()); err != nil {
		h.logger.Warn("reference lists not loaded", "error", err)
	}
	h.deps.Renderer.RenderPartialWithToasts(w, "dialog", editFormOf(s, r, nil), toastsOf(s))
}

// =============================================================================
// PUT /{p}/{id} - Update
// =============================================================================

// Update saves the edit dialog. On success the list is rendered and the
// dialog closed; otherwise the dialog is rendered again with its errors.
func (h *EntityHandler[T]) Update(w http.ResponseWriter, r *http.Request) {
	s := h.screenFor(r)
	id := r.PathValue("id")

	if err := r.ParseForm(); err != nil {
		h.renderBadForm(w, err)
		return
	}
	if !s.DialogOpen() || s.EditKey() != id {
		if err := s.SelectForEdit(id); err != nil {
			h.deps.Renderer.RenderToasts(w, []ToastData{{Type: "warning", Message: "Cet élément n'est plus dans la liste. Rechargez-la.", AutoDismiss: 8}})
			return
		}
	}

	var toasts []ToastData
	err := s.FillEdit(r.PostForm)
	if err != nil {
		toasts = append(toasts, invalidToast(err))
	} else {
		_, err = s.SubmitUpdate(r.Context())
	}

	if err != nil {
		w.Header().Set("HX-Retarget", "#edit-dialog")
		w.Header().Set("HX-Reswap", "innerHTML")
		h.deps.Renderer.RenderPartialWithToasts(w, "dialog", editFormOf(s, r, err), append(toasts, toastsOf(s)...))
		return
	}

	list := listOf(s)
	list.CloseDialog = true
	h.deps.Renderer.RenderPartialWithToasts(w, "list", list, toastsOf(s))
}

// =============================================================================
// POST /{p}/edit/cancel - Cancel Edit
// =============================================================================

// CancelEdit closes the dialog and discards the edit draft.
func (h *EntityHandler[T]) CancelEdit(w http.ResponseWriter, r *http.Request) {
	h.screenFor(r).CancelEdit()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
}

// =============================================================================
// DELETE /{p}/{id} - Delete
// =============================================================================

// Delete removes a record and renders the list without it.
func (h *EntityHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	s := h.screenFor(r)
	id := r.PathValue("id")
	wasEditing := s.DialogOpen() && s.EditKey() == id

	err := s.Delete(r.Context(), id)
	if domain.ErrorCode(err) == domain.EFORBIDDEN {
		h.deps.Renderer.RenderToasts(w, []ToastData{{Type: "warning", Message: domain.ErrorMessage(err), AutoDismiss: 8}})
		return
	}

	list := listOf(s)
	list.CloseDialog = err == nil && wasEditing
	h.deps.Renderer.RenderPartialWithToasts(w, "list", list, toastsOf(s))
}

// =============================================================================
// Exports
// =============================================================================

// exportInline renders the current result set in format. CSV and PDF are
// downloaded; the HTML view opens the print dialog.
func (h *EntityHandler[T]) exportInline(format domain.ExportFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := h.screenFor(r)
		gen, err := export.New(format)
		if err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}

		table := export.TableOf(h.schema, s.Results(), s.Session())

		var buf bytes.Buffer
		if _, err := gen.Generate(r.Context(), table, &buf); err != nil {
			InternalErrorResponse(w, r, h.logger, err)
			return
		}
		metrics.ExportGenerated(h.schema.Path, format.String(), metrics.ExportInline)
		h.logger.Info("export generated", "format", format, "rows", len(table.Rows))

		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		if format != domain.ExportFormatHTML {
			setAttachment(w, export.Filename(h.schema.Path, format, table.GeneratedAt))
		}
		_, _ = buf.WriteTo(w)
	}
}

// EnqueueExport starts a background export of the whole collection,
// filtered by the active search query.
func (h *EntityHandler[T]) EnqueueExport(w http.ResponseWriter, r *http.Request) {
	s := h.screenFor(r)
	if h.deps.Queue == nil {
		h.deps.Renderer.RenderToasts(w, []ToastData{{Type: "warning", Message: "Les exports en arrière-plan ne sont pas disponibles.", AutoDismiss: 8}})
		return
	}

	format := domain.ExportFormat(r.URL.Query().Get("format"))
	if !format.IsValid() {
		h.deps.Renderer.RenderToasts(w, []ToastData{{Type: "warning", Message: "Format d'export inconnu.", AutoDismiss: 8}})
		return
	}

	payload := jobs.PayloadFor(h.schema.Path, format, s.Query(), s.Session())
	job, err := jobs.EnqueueExport(r.Context(), h.deps.Queue, payload)
	if err != nil {
		h.logger.Error("failed to enqueue export", "error", err)
		h.deps.Renderer.RenderToasts(w, []ToastData{{Type: "error", Message: "L'export n'a pas pu être lancé. Réessayez.", AutoDismiss: 8}})
		return
	}

	h.logger.Info("export enqueued", "job_id", job.ID, "format", format)
	h.deps.Renderer.RenderPartialWithToasts(w, "export_status", jobViewOf(job), []ToastData{
		{Type: "info", Message: "Export en préparation.", AutoDismiss: 5},
	})
}

// =============================================================================
// GET /{p}/reports/{name} - Backend Report
// =============================================================================

// Report proxies a backend PDF report as a download and archives a copy.
func (h *EntityHandler[T]) Report(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !slices.ContainsFunc(h.schema.Reports, func(rep screen.Report) bool { return rep.Name == name }) {
		NotFoundResponse(w, r, h.logger)
		return
	}

	sess := session.FromRequestContext(r)
	query := r.URL.Query()
	if id := sess.ExerciceID(); id != 0 && query.Get("exerciceId") == "" {
		query.Set("exerciceId", strconv.FormatInt(id, 10))
	}

	blob, err := h.api.Report(r.Context(), backend.Call{Token: sess.Token, Tag: h.schema.ReportTag()}, name, query)
	if err != nil {
		metrics.ReportDownloaded(h.schema.Path, metrics.OutcomeError)
		ErrorResponse(w, r, h.logger, err)
		return
	}
	metrics.ReportDownloaded(h.schema.Path, metrics.OutcomeSuccess)

	if h.deps.Storage != nil {
		key := storage.ReportKey(h.schema.Path, name, time.Now())
		err := h.deps.Storage.Put(r.Context(), key, bytes.NewReader(blob.Data), storage.PutOptions{
			ContentType: blob.ContentType,
			Filename:    blob.Filename,
		})
		if err != nil {
			h.logger.Warn("report not archived", "key", key, "error", err)
		}
	}

	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	setAttachment(w, blob.Filename)
	_, _ = w.Write(blob.Data)
}

// =============================================================================
// Helpers
// =============================================================================

func (h *EntityHandler[T]) renderBadForm(w http.ResponseWriter, err error) {
	h.logger.Warn("failed to parse form", "error", err)
	h.deps.Renderer.RenderToasts(w, []ToastData{{Type: "error", Message: "Formulaire illisible.", AutoDismiss: 8}})
}

// invalidToast turns a form parsing error into a warning naming the field.
func invalidToast(err error) ToastData {
	return ToastData{Type: "warning", Message: domain.ErrorMessage(err), AutoDismiss: 8}
}

// noSwap answers an htmx request without changing the page.
func noSwap(w http.ResponseWriter) {
	w.Header().Set("HX-Reswap", "none")
	w.WriteHeader(http.StatusNoContent)
}

func setAttachment(w http.ResponseWriter, filename string) {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if disposition == "" {
		disposition = "attachment"
	}
	w.Header().Set("Content-Disposition", disposition)
}
