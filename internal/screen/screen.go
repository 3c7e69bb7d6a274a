package screen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DukeRupert/guichet/internal/backend"
	"github.com/DukeRupert/guichet/internal/domain"
	"github.com/DukeRupert/guichet/internal/metrics"
	"github.com/DukeRupert/guichet/internal/session"
)

var (
	// ErrSuperseded is returned to a queued search replaced by a newer one.
	ErrSuperseded = errors.New("search superseded by a newer query")

	// ErrStale is returned when a list response arrives after a newer load
	// was started. The response is dropped.
	ErrStale = errors.New("response superseded by a newer load")

	// ErrClosed is returned to queued searches when the screen is closed.
	ErrClosed = errors.New("screen closed")
)

// Backend is the typed API surface a screen needs. *backend.Resource[T]
// implements it.
type Backend[T any] interface {
	FindAll(ctx context.Context, call backend.Call) ([]T, error)
	Search(ctx context.Context, call backend.Call, query string, page, size int) ([]T, error)
	Create(ctx context.Context, call backend.Call, record T) (T, error)
	Update(ctx context.Context, call backend.Call, id string, record T) (T, error)
	Delete(ctx context.Context, call backend.Call, id string) error
}

// Options tune a screen.
type Options struct {
	PageSize      int           // search page size
	Debounce      time.Duration // quiet period of QueueSearch
	SearchTimeout time.Duration // bound of a debounced search
	Notifier      Notifier
	Logger        *slog.Logger
	// References loads the schema's reference lists. Nil disables LoadReferences.
	References backend.Doer
}

const (
	DefaultPageSize      = 20
	DefaultSearchTimeout = 30 * time.Second
)

type pendingSearch struct {
	query string
	done  chan error
}

// Screen is the state of one entity screen for one session. It is safe for
// concurrent use; the lock is never held across a backend call.
type Screen[T any] struct {
	schema    *Schema[T]
	api       Backend[T]
	sess      session.Context
	opts      Options
	logger    *slog.Logger
	notifier  Notifier
	debouncer *Debouncer
	refs      *backend.Hook

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	createDraft T
	editDraft   T
	editKey     string
	dialogOpen  bool
	results     []T
	query       string
	creating    bool
	updating    bool
	loading     bool
	loadKind    State
	loadGen     uint64
	pending     *pendingSearch
	references  map[string][]Option
	closed      bool
}

// New creates a screen for one session. The session is fixed for the
// lifetime of the screen.
func New[T any](schema *Schema[T], api Backend[T], sess session.Context, opts Options) *Screen[T] {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultSearchTimeout
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = discard{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Screen[T]{
		schema:      schema,
		api:         api,
		sess:        sess,
		opts:        opts,
		logger:      logger.With("entity", schema.Path),
		notifier:    notifier,
		debouncer:   NewDebouncer(opts.Debounce),
		ctx:         ctx,
		cancel:      cancel,
		createDraft: schema.New(),
		editDraft:   schema.New(),
		results:     []T{},
		references:  make(map[string][]Option),
	}
	if opts.References != nil && len(schema.References) > 0 {
		s.refs = backend.NewHook(opts.References)
	}
	return s
}

// Schema returns the screen's schema.
func (s *Screen[T]) Schema() *Schema[T] { return s.schema }

// Session returns the session the screen was built for.
func (s *Screen[T]) Session() session.Context { return s.sess }

// Notifier returns where the screen sends its notices.
func (s *Screen[T]) Notifier() Notifier { return s.notifier }

func (s *Screen[T]) call(tag string) backend.Call {
	return backend.Call{Token: s.sess.Token, Tag: tag}
}

// ---------------------------------------------------------------------------
// Accessors. Records are returned by value; slices are copied.
// ---------------------------------------------------------------------------

// CreateDraft returns a copy of the create draft.
func (s *Screen[T]) CreateDraft() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createDraft
}

// EditDraft returns a copy of the edit draft.
func (s *Screen[T]) EditDraft() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editDraft
}

// EditKey returns the id of the row being edited, "" when the dialog is closed.
func (s *Screen[T]) EditKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editKey
}

// DialogOpen reports whether the edit dialog is visible.
func (s *Screen[T]) DialogOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialogOpen
}

// Results returns a copy of the result set.
func (s *Screen[T]) Results() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.results)
}

// Query returns the active search query, "" when listing everything.
func (s *Screen[T]) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// References returns the options loaded for a reference tag.
func (s *Screen[T]) References(tag string) []Option {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.references[tag])
}

// State returns the current busy state. Submissions take precedence over loads.
func (s *Screen[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.creating:
		return SubmittingCreate
	case s.updating:
		return SubmittingUpdate
	case s.loading:
		return s.loadKind
	default:
		return Idle
	}
}

// ---------------------------------------------------------------------------
// Draft editing
// ---------------------------------------------------------------------------

// PatchCreate sets one field of the create draft.
func (s *Screen[T]) PatchCreate(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema.Set(s.schema.CreateTag(), &s.createDraft, field, value)
}

// PatchEdit sets one field of the edit draft.
func (s *Screen[T]) PatchEdit(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema.Set(s.schema.UpdateTag(), &s.editDraft, field, value)
}

// FillCreate applies a submitted form to the create draft.
func (s *Screen[T]) FillCreate(values url.Values) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema.Apply(s.schema.CreateTag(), &s.createDraft, values).Err()
}

// FillEdit applies a submitted form to the edit draft.
func (s *Screen[T]) FillEdit(values url.Values) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema.Apply(s.schema.UpdateTag(), &s.editDraft, values).Err()
}

// ResetCreate discards the create draft.
func (s *Screen[T]) ResetCreate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createDraft = s.schema.New()
}

// SelectRowForEdit copies row into the edit draft and opens the dialog.
func (s *Screen[T]) SelectRowForEdit(row T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editDraft = row
	s.editKey = s.schema.Key(row)
	s.dialogOpen = true
}

// SelectForEdit selects the result row with the given id.
func (s *Screen[T]) SelectForEdit(id string) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return domain.NotFound(s.schema.UpdateTag(), s.schema.Entity, id)
	}
	row := s.results[idx]
	s.mu.Unlock()

	s.SelectRowForEdit(row)
	return nil
}

// CancelEdit closes the dialog and discards the edit draft.
func (s *Screen[T]) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeDialog()
}

func (s *Screen[T]) closeDialog() {
	s.dialogOpen = false
	s.editDraft = s.schema.New()
	s.editKey = ""
}

func (s *Screen[T]) indexOf(id string) int {
	for i, r := range s.results {
		if s.schema.Key(r) == id {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Submissions
// ---------------------------------------------------------------------------

// SubmitCreate stamps, validates and creates the create draft. A draft that
// fails validation is never sent. On success the create draft is reset; the
// result set is left as is.
func (s *Screen[T]) SubmitCreate(ctx context.Context) (T, error) {
	tag := s.schema.CreateTag()

	s.mu.Lock()
	if s.creating {
		s.mu.Unlock()
		return s.schema.New(), domain.Conflict(tag, "Une création est déjà en cours.")
	}
	if s.schema.Stamp != nil {
		s.schema.Stamp(&s.createDraft, s.sess)
	}
	draft := s.createDraft
	if ve := s.schema.ValidateDraft(tag, draft); !ve.Empty() {
		s.mu.Unlock()
		s.rejectInvalid(tag, ve)
		return draft, ve
	}
	s.creating = true
	s.mu.Unlock()

	created, err := s.api.Create(ctx, s.call(tag), draft)

	s.mu.Lock()
	s.creating = false
	if err == nil {
		s.createDraft = s.schema.New()
	}
	s.mu.Unlock()

	if err != nil {
		s.fail(tag, "create", err)
		return draft, err
	}

	s.logger.Info("record created", "tag", tag, "id", s.schema.Key(created))
	metrics.ScreenOperation(s.schema.Path, "create", metrics.OutcomeSuccess)
	s.notify(LevelSuccess, tag, fmt.Sprintf("%s enregistré avec succès.", s.schema.Entity))
	return created, nil
}

// SubmitUpdate validates and saves the edit draft. On success the dialog is
// closed, the edit draft is reset and the list is reloaded once.
func (s *Screen[T]) SubmitUpdate(ctx context.Context) (T, error) {
	tag := s.schema.UpdateTag()

	s.mu.Lock()
	if s.updating {
		s.mu.Unlock()
		return s.schema.New(), domain.Conflict(tag, "Une modification est déjà en cours.")
	}
	if !s.dialogOpen || s.editKey == "" {
		s.mu.Unlock()
		return s.schema.New(), domain.Invalid(tag, "Aucun élément sélectionné.")
	}
	draft := s.editDraft
	id := s.editKey
	if ve := s.schema.ValidateDraft(tag, draft); !ve.Empty() {
		s.mu.Unlock()
		s.rejectInvalid(tag, ve)
		return draft, ve
	}
	s.updating = true
	s.mu.Unlock()

	updated, err := s.api.Update(ctx, s.call(tag), id, draft)

	s.mu.Lock()
	s.updating = false
	if err == nil {
		s.closeDialog()
	}
	s.mu.Unlock()

	if err != nil {
		s.fail(tag, "update", err)
		return draft, err
	}

	s.logger.Info("record updated", "tag", tag, "id", id)
	metrics.ScreenOperation(s.schema.Path, "update", metrics.OutcomeSuccess)
	s.notify(LevelSuccess, tag, fmt.Sprintf("%s modifié avec succès.", s.schema.Entity))

	// A failed refresh has its own notice; the update itself succeeded.
	if err := s.LoadAll(ctx); err != nil && !errors.Is(err, ErrStale) {
		s.logger.Warn("refresh after update failed", "error", err)
	}
	return updated, nil
}

// Delete removes a record. Only schemas that allow deletion accept it.
func (s *Screen[T]) Delete(ctx context.Context, id string) error {
	tag := s.schema.DeleteTag()
	if !s.schema.AllowDelete {
		return domain.Forbidden(tag, "La suppression n'est pas autorisée sur cet écran.")
	}

	if err := s.api.Delete(ctx, s.call(tag), id); err != nil {
		s.fail(tag, "delete", err)
		return err
	}

	s.mu.Lock()
	if idx := s.indexOf(id); idx >= 0 {
		s.results = slices.Delete(s.results, idx, idx+1)
	}
	if s.editKey == id {
		s.closeDialog()
	}
	s.mu.Unlock()

	s.logger.Info("record deleted", "tag", tag, "id", id)
	metrics.ScreenOperation(s.schema.Path, "delete", metrics.OutcomeSuccess)
	s.notify(LevelSuccess, tag, fmt.Sprintf("%s supprimé.", s.schema.Entity))
	return nil
}

// rejectInvalid reports a draft that failed validation, naming the first
// failing field.
func (s *Screen[T]) rejectInvalid(tag string, ve *domain.ValidationError) {
	field := ve.FirstField()
	metrics.ScreenOperation(s.schema.Path, metrics.OperationKind(tag), metrics.OutcomeInvalid)
	s.notify(LevelWarning, tag, fmt.Sprintf("%s : %s", s.schema.Label(field), ve.Fields[field]))
}

// ---------------------------------------------------------------------------
// Loading and search
// ---------------------------------------------------------------------------

// ActivateList clears the search filter and reloads everything, as when the
// list tab is opened.
func (s *Screen[T]) ActivateList(ctx context.Context) error {
	s.mu.Lock()
	s.query = ""
	s.mu.Unlock()
	return s.LoadAll(ctx)
}

// LoadAll replaces the result set with the whole collection. On failure the
// result set is left untouched.
func (s *Screen[T]) LoadAll(ctx context.Context) error {
	tag := s.schema.LoadTag()
	gen := s.beginLoad(LoadingList)
	items, err := s.api.FindAll(ctx, s.call(tag))
	return s.finishLoad(tag, "load", gen, items, err)
}

// Search runs a server-side search. A blank query behaves as LoadAll.
func (s *Screen[T]) Search(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	s.query = query
	s.mu.Unlock()

	if query == "" {
		return s.LoadAll(ctx)
	}

	tag := s.schema.SearchTag()
	gen := s.beginLoad(Searching)
	items, err := s.api.Search(ctx, s.call(tag), query, 0, s.opts.PageSize)
	return s.finishLoad(tag, "search", gen, items, err)
}

// QueueSearch debounces query. The returned channel receives the outcome of
// the search once it ran, or ErrSuperseded if a newer query replaced it
// before the quiet period elapsed.
func (s *Screen[T]) QueueSearch(query string) <-chan error {
	return s.enqueueSearch(query, false)
}

// SearchNow runs query without waiting for the quiet period. A query still
// waiting in the debouncer is superseded.
func (s *Screen[T]) SearchNow(query string) <-chan error {
	return s.enqueueSearch(query, true)
}

func (s *Screen[T]) enqueueSearch(query string, now bool) <-chan error {
	done := make(chan error, 1)
	p := &pendingSearch{query: query, done: done}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		done <- ErrClosed
		return done
	}
	if s.pending != nil {
		s.pending.done <- ErrSuperseded
		metrics.SearchesSuperseded.WithLabelValues(s.schema.Path).Inc()
	}
	s.pending = p
	s.mu.Unlock()

	run := func() {
		s.mu.Lock()
		if s.pending != p {
			s.mu.Unlock()
			return
		}
		s.pending = nil
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(s.ctx, s.opts.SearchTimeout)
		defer cancel()
		p.done <- s.Search(ctx, p.query)
	}
	if now {
		s.debouncer.Flush(run)
	} else {
		s.debouncer.Trigger(run)
	}
	return done
}

func (s *Screen[T]) beginLoad(kind State) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadGen++
	s.loading = true
	s.loadKind = kind
	return s.loadGen
}

func (s *Screen[T]) finishLoad(tag, op string, gen uint64, items []T, err error) error {
	s.mu.Lock()
	if gen != s.loadGen {
		s.mu.Unlock()
		metrics.ScreenOperation(s.schema.Path, op, metrics.OutcomeStale)
		s.logger.Debug("stale list response dropped", "tag", tag, "generation", gen)
		return ErrStale
	}
	s.loading = false
	if err == nil {
		if items == nil {
			items = []T{}
		}
		s.results = items
	}
	s.mu.Unlock()

	if err != nil {
		s.fail(tag, op, err)
		return err
	}
	metrics.ScreenOperation(s.schema.Path, op, metrics.OutcomeSuccess)
	return nil
}

// ---------------------------------------------------------------------------
// Reference data
// ---------------------------------------------------------------------------

// LoadReferences loads every reference list of the schema concurrently. Each
// list has its own tag, so they never mix with each other or with the main
// list. A failed list keeps its previous options.
func (s *Screen[T]) LoadReferences(ctx context.Context) error {
	if s.refs == nil {
		return nil
	}

	for _, ref := range s.schema.References {
		s.refs.Fire(ctx, backend.Request{
			Method: http.MethodGet,
			Path:   "/" + strings.Trim(ref.Path, "/") + "/findall",
			Tag:    ref.Tag,
			Token:  s.sess.Token,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, ref := range s.schema.References {
		g.Go(func() error {
			res, err := s.refs.Wait(gctx, ref.Tag)
			if err != nil {
				return err
			}
			records, err := backend.ListOf[map[string]any](res)
			if err != nil {
				s.fail(ref.Tag, "load", err)
				return err
			}
			opts := ref.Options(records)

			s.mu.Lock()
			s.references[ref.Tag] = opts
			s.mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Close cancels any queued search and in-flight debounced call.
func (s *Screen[T]) Close() {
	s.debouncer.Stop()
	s.cancel()

	s.mu.Lock()
	s.closed = true
	if s.pending != nil {
		s.pending.done <- ErrClosed
		s.pending = nil
	}
	s.mu.Unlock()

	if s.refs != nil {
		s.refs.Drain()
	}
}

func (s *Screen[T]) fail(tag, op string, err error) {
	metrics.ScreenOperation(s.schema.Path, op, metrics.OutcomeError)
	s.logger.Warn("screen operation failed",
		"tag", tag,
		"code", domain.ErrorCode(err),
		"error", err,
	)
	level := LevelWarning
	if domain.ErrorCode(err) == domain.EINTERNAL {
		level = LevelError
	}
	s.notify(level, tag, domain.ErrorMessage(err))
}

func (s *Screen[T]) notify(level Level, op, message string) {
	s.notifier.Notify(Notice{Level: level, Op: op, Message: message})
}
