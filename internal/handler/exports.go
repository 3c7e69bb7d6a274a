package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/guichet/internal/jobs"
	"github.com/DukeRupert/guichet/internal/session"
	"github.com/DukeRupert/guichet/internal/storage"
	"github.com/DukeRupert/guichet/internal/worker"
)

// JobView is the status of a background export.
type JobView struct {
	ID          string
	Status      string
	Done        bool
	Failed      bool
	Error       string
	DownloadURL string
	CreatedAt   time.Time
}

func jobViewOf(job worker.Job) JobView {
	v := JobView{
		ID:        job.ID.String(),
		Status:    job.Status,
		Done:      job.Done(),
		Failed:    job.Status == worker.StatusFailed,
		CreatedAt: job.CreatedAt,
	}
	if job.Status == worker.StatusCompleted {
		v.DownloadURL = "/exports/" + v.ID + "?download=1"
	}
	if v.Failed {
		v.Error = "L'export a échoué."
	}
	return v
}

func jobStatusLabel(status string) string {
	switch status {
	case worker.StatusPending:
		return "En attente"
	case worker.StatusRunning:
		return "En cours"
	case worker.StatusCompleted:
		return "Terminé"
	case worker.StatusFailed:
		return "Échec"
	default:
		return status
	}
}

// ExportHandler serves the status and the files of background exports.
type ExportHandler struct {
	queue    worker.Queue
	store    storage.Storage
	renderer *Renderer
	logger   *slog.Logger
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(queue worker.Queue, store storage.Storage, renderer *Renderer, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		queue:    queue,
		store:    store,
		renderer: renderer,
		logger:   logger,
	}
}

// RegisterRoutes registers the export routes on mux behind page.
func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux, page func(http.Handler) http.Handler) {
	mux.Handle("GET /exports/{id}", page(http.HandlerFunc(h.Show)))
}

// =============================================================================
// GET /exports/{id} - Export Status / Download
// =============================================================================

// Show renders the status partial of an export, which polls until the job
// is done. With ?download=1 it streams the finished file instead.
func (h *ExportHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	job, err := h.queue.Get(r.Context(), id)
	if errors.Is(err, worker.ErrJobNotFound) {
		NotFoundResponse(w, r, h.logger)
		return
	}
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}
	if job.Type != jobs.JobTypeExport || !h.owns(r, job) {
		NotFoundResponse(w, r, h.logger)
		return
	}

	if r.URL.Query().Get("download") == "" {
		if acceptsJSON(r) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":           job.ID,
				"status":       job.Status,
				"error":        job.Error,
				"download_url": jobViewOf(job).DownloadURL,
			})
			return
		}
		h.renderer.RenderPartial(w, "export_status", jobViewOf(job))
		return
	}

	if job.Status != worker.StatusCompleted {
		NotFoundResponse(w, r, h.logger)
		return
	}
	h.download(w, r, job)
}

func (h *ExportHandler) download(w http.ResponseWriter, r *http.Request, job worker.Job) {
	key, filename, err := jobs.ExportLocation(job)
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	rc, info, err := h.store.Get(r.Context(), key)
	if err != nil {
		ErrorResponse(w, r, h.logger, storage.DomainError("downloadExport", err))
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", info.ContentType)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	setAttachment(w, filename)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("export download interrupted", "job_id", job.ID, "error", err)
	}
}

// owns reports whether the export was requested with the session's token.
func (h *ExportHandler) owns(r *http.Request, job worker.Job) bool {
	var p jobs.ExportPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return false
	}
	return p.Owner != "" && p.Owner == session.FromRequestContext(r).Owner()
}
