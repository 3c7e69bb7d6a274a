// Package jobs holds the background job handlers run by the worker.
package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DukeRupert/guichet/internal/backend"
	"github.com/DukeRupert/guichet/internal/domain"
	"github.com/DukeRupert/guichet/internal/export"
	"github.com/DukeRupert/guichet/internal/metrics"
	"github.com/DukeRupert/guichet/internal/screen"
	"github.com/DukeRupert/guichet/internal/session"
	"github.com/DukeRupert/guichet/internal/storage"
	"github.com/DukeRupert/guichet/internal/worker"
)

// JobTypeExport renders a whole collection to storage.
const JobTypeExport = "export_collection"

// maxSearchPages bounds how many pages a filtered export walks.
const maxSearchPages = 200

// ExportPayload is the payload of an export job.
type ExportPayload struct {
	Entity     string `json:"entity"` // route path, e.g. "engins"
	Format     string `json:"format"`
	Query      string `json:"query,omitempty"`
	Token      string `json:"token"`          // bearer of the requesting user
	Owner      string `json:"owner"`          // session.Context.Owner of the requester
	User       string `json:"user,omitempty"` // name printed on the export
	ExerciceID int64  `json:"exercice_id,omitempty"`
	Exercice   string `json:"exercice,omitempty"` // label shown in the export header
}

// Session rebuilds the session of the user who requested the export.
func (p ExportPayload) Session() session.Context {
	sess := session.Context{Token: p.Token, User: p.User}
	if p.ExerciceID != 0 || p.Exercice != "" {
		sess.Exercice = &domain.Exercice{ID: p.ExerciceID, Libelle: p.Exercice}
	}
	return sess
}

// PayloadFor captures what an export needs from the requesting session.
func PayloadFor(entity string, format domain.ExportFormat, query string, sess session.Context) ExportPayload {
	p := ExportPayload{
		Entity: entity,
		Format: format.String(),
		Query:  strings.TrimSpace(query),
		Token:  sess.Token,
		Owner:  sess.Owner(),
		User:   sess.User,
	}
	if sess.Exercice != nil {
		p.ExerciceID = sess.Exercice.ID
		p.Exercice = sess.Exercice.Label()
	}
	return p
}

// EnqueueExport adds an export job to q.
func EnqueueExport(ctx context.Context, q worker.Queue, p ExportPayload, opts ...worker.EnqueueOption) (worker.Job, error) {
	return worker.EnqueueJob(ctx, q, JobTypeExport, p, opts...)
}

// ExportLocation returns the storage key and download name of a finished
// export job.
func ExportLocation(job worker.Job) (key, filename string, err error) {
	var p ExportPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return "", "", fmt.Errorf("invalid payload: %w", err)
	}
	format := domain.ExportFormat(p.Format)
	at := job.FinishedAt
	if at.IsZero() {
		at = job.CreatedAt
	}
	return storage.ExportKey(p.Entity, job.ID, format.FileExtension()), export.Filename(p.Entity, format, at), nil
}

// =============================================================================
// Sources
// =============================================================================

// Source fetches an entity's collection as an export table.
type Source interface {
	Entity() string
	Table(ctx context.Context, call backend.Call, query string, sess session.Context) (*export.Table, error)
}

type collectionSource[T any] struct {
	schema   *screen.Schema[T]
	api      screen.Backend[T]
	pageSize int
}

// Collection exports records of schema read through api. A blank query
// exports findall; otherwise search is paged until a short page.
func Collection[T any](schema *screen.Schema[T], api screen.Backend[T], pageSize int) Source {
	if pageSize < 1 {
		pageSize = 100
	}
	return &collectionSource[T]{schema: schema, api: api, pageSize: pageSize}
}

func (s *collectionSource[T]) Entity() string { return s.schema.Path }

func (s *collectionSource[T]) Table(ctx context.Context, call backend.Call, query string, sess session.Context) (*export.Table, error) {
	call.Tag = "export" + s.schema.Plural

	var records []T
	if strings.TrimSpace(query) == "" {
		all, err := s.api.FindAll(ctx, call)
		if err != nil {
			return nil, err
		}
		records = all
	} else {
		for page := 0; page < maxSearchPages; page++ {
			batch, err := s.api.Search(ctx, call, query, page, s.pageSize)
			if err != nil {
				return nil, err
			}
			records = append(records, batch...)
			if len(batch) < s.pageSize {
				break
			}
		}
	}
	return export.TableOf(s.schema, records, sess), nil
}

// =============================================================================
// Handler
// =============================================================================

// ExportHandler renders export jobs and stores the files.
type ExportHandler struct {
	sources map[string]Source
	storage storage.Storage
	logger  *slog.Logger
}

// NewExportHandler creates the export job handler. Each job calls the
// backend with the token of the user who requested it.
func NewExportHandler(sources []Source, store storage.Storage, logger *slog.Logger) *ExportHandler {
	h := &ExportHandler{
		sources: make(map[string]Source, len(sources)),
		storage: store,
		logger:  logger,
	}
	for _, s := range sources {
		h.sources[s.Entity()] = s
	}
	return h
}

// Type returns the job type identifier.
func (h *ExportHandler) Type() string {
	return JobTypeExport
}

// Handle executes the export job.
func (h *ExportHandler) Handle(ctx context.Context, job worker.Job) error {
	var p ExportPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	format := domain.ExportFormat(p.Format)
	gen, err := export.New(format)
	if err != nil {
		return worker.NewPermanentError(err)
	}
	src, ok := h.sources[p.Entity]
	if !ok {
		return worker.NewPermanentError(fmt.Errorf("unknown entity: %s", p.Entity))
	}
	if p.Token == "" {
		return worker.NewPermanentError(fmt.Errorf("export of %s carries no token", p.Entity))
	}

	logger := h.logger.With("job_id", job.ID, "entity", p.Entity, "format", p.Format)
	logger.Info("Generating export", "query", p.Query)

	sess := p.Session()
	table, err := src.Table(ctx, backend.Call{Token: p.Token}, p.Query, sess)
	if err != nil {
		if retryable(err) {
			return fmt.Errorf("fetch %s: %w", p.Entity, err)
		}
		return worker.NewPermanentError(fmt.Errorf("fetch %s: %w", p.Entity, err))
	}
	table.GeneratedAt = time.Now()

	var buf bytes.Buffer
	size, err := gen.Generate(ctx, table, &buf)
	if err != nil {
		return fmt.Errorf("generate %s: %w", format, err)
	}

	key := storage.ExportKey(p.Entity, job.ID, format.FileExtension())
	err = h.storage.Put(ctx, key, &buf, storage.PutOptions{
		ContentType: format.ContentType(),
		Overwrite:   true,
		Filename:    export.Filename(p.Entity, format, table.GeneratedAt),
	})
	if err != nil {
		return fmt.Errorf("upload export to storage: %w", err)
	}

	metrics.ExportGenerated(p.Entity, p.Format, metrics.ExportJob)
	logger.Info("Export completed", "rows", len(table.Rows), "size_bytes", size, "storage_key", key)
	return nil
}

// retryable reports whether a backend failure may pass on a later attempt.
func retryable(err error) bool {
	switch domain.ErrorCode(err) {
	case domain.EINVALID, domain.EUNAUTHORIZED, domain.EFORBIDDEN, domain.ENOTFOUND:
		return false
	}
	return true
}
