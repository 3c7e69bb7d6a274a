package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/guichet/internal/backend"
	"github.com/DukeRupert/guichet/internal/catalog"
	"github.com/DukeRupert/guichet/internal/domain"
	"github.com/DukeRupert/guichet/internal/session"
	"github.com/DukeRupert/guichet/internal/storage"
	"github.com/DukeRupert/guichet/internal/worker"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	server  *httptest.Server
	store   *storage.LocalStorage
	queue   *worker.MemoryQueue
	handler *ExportHandler
	auth    atomic.Value
	status  atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{queue: worker.NewMemoryQueue()}
	f.status.Store(http.StatusOK)

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.auth.Store(r.Header.Get("Authorization"))
		if code := int(f.status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/engins/findall":
			fmt.Fprint(w, `[{"id":1,"nom":"Pelle","prix":1000},{"id":2,"nom":"Grue","prix":2500.5}]`)
		case "/engins/search":
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			if page == 0 {
				fmt.Fprint(w, `{"content":[{"id":1,"nom":"Pelle A"},{"id":2,"nom":"Pelle B"}]}`)
				return
			}
			fmt.Fprint(w, `{"content":[{"id":3,"nom":"Pelle C"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.server.Close)

	client, err := backend.NewClient(backend.Config{BaseURL: f.server.URL, Timeout: 5 * time.Second}, testLogger())
	require.NoError(t, err)

	f.store, err = storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir(), BaseURL: "/files"}, testLogger())
	require.NoError(t, err)

	engins := Collection(catalog.Engins(), backend.NewResource[domain.Engin](client, "engins"), 2)
	f.handler = NewExportHandler([]Source{engins}, f.store, testLogger())
	return f
}

func (f *fixture) enqueue(t *testing.T, p ExportPayload) worker.Job {
	t.Helper()
	job, err := EnqueueExport(context.Background(), f.queue, p)
	require.NoError(t, err)
	return job
}

func (f *fixture) read(t *testing.T, key string) string {
	t.Helper()
	rc, _, err := f.store.Get(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestPayloadFor(t *testing.T) {
	sess := session.Context{Token: "tok", User: "amina", Exercice: &domain.Exercice{ID: 7, Libelle: "2024"}}
	p := PayloadFor("engins", domain.ExportFormatCSV, "  pelle ", sess)

	assert.Equal(t, ExportPayload{
		Entity: "engins", Format: "csv", Query: "pelle",
		Token: "tok", Owner: sess.Owner(), User: "amina",
		ExerciceID: 7, Exercice: "2024",
	}, p)

	back := p.Session()
	assert.Equal(t, "tok", back.Token)
	assert.Equal(t, sess.Owner(), back.Owner())
	require.NotNil(t, back.Exercice)
	assert.Equal(t, int64(7), back.Exercice.ID)

	assert.Nil(t, PayloadFor("engins", domain.ExportFormatCSV, "", session.Context{Token: "tok"}).Session().Exercice)
}

func TestExportHandler_FindAllCSV(t *testing.T) {
	f := newFixture(t)
	job := f.enqueue(t, ExportPayload{Entity: "engins", Format: "csv", Token: "user-token", User: "amina", Exercice: "2024"})

	require.NoError(t, f.handler.Handle(context.Background(), job))
	assert.Equal(t, "Bearer user-token", f.auth.Load())

	key, filename, err := ExportLocation(job)
	require.NoError(t, err)
	assert.Equal(t, storage.ExportKey("engins", job.ID, "csv"), key)
	assert.True(t, strings.HasPrefix(filename, "engins-"))
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	out := f.read(t, key)
	assert.True(t, strings.HasPrefix(out, "\uFEFF\"Nom\";\"Prix\";\"Description\""), out)
	assert.Contains(t, out, `"Pelle"`)
	assert.Contains(t, out, `"Grue"`)
}

func TestExportHandler_SearchPages(t *testing.T) {
	f := newFixture(t)
	job := f.enqueue(t, ExportPayload{Entity: "engins", Format: "html", Query: "pelle", Token: "user-token"})

	require.NoError(t, f.handler.Handle(context.Background(), job))

	key, _, err := ExportLocation(job)
	require.NoError(t, err)
	out := f.read(t, key)
	for _, name := range []string{"Pelle A", "Pelle B", "Pelle C"} {
		assert.Contains(t, out, name)
	}
}

func TestExportHandler_PDF(t *testing.T) {
	f := newFixture(t)
	job := f.enqueue(t, ExportPayload{Entity: "engins", Format: "pdf", Token: "user-token"})

	require.NoError(t, f.handler.Handle(context.Background(), job))

	key, _, _ := ExportLocation(job)
	assert.True(t, strings.HasPrefix(f.read(t, key), "%PDF"))
}

func TestExportHandler_PermanentFailures(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "bad json", payload: []byte("{")},
		{name: "bad format", payload: mustJSON(t, ExportPayload{Entity: "engins", Format: "docx", Token: "user-token"})},
		{name: "unknown entity", payload: mustJSON(t, ExportPayload{Entity: "avions", Format: "csv", Token: "user-token"})},
		{name: "no token", payload: mustJSON(t, ExportPayload{Entity: "engins", Format: "csv"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.handler.Handle(context.Background(), worker.Job{Payload: tt.payload})
			assert.True(t, worker.IsPermanent(err), "%v", err)
		})
	}
}

func TestExportHandler_BackendErrors(t *testing.T) {
	f := newFixture(t)
	job := f.enqueue(t, ExportPayload{Entity: "engins", Format: "csv", Token: "user-token"})

	f.status.Store(http.StatusServiceUnavailable)
	err := f.handler.Handle(context.Background(), job)
	require.Error(t, err)
	assert.False(t, worker.IsPermanent(err))

	f.status.Store(http.StatusUnauthorized)
	err = f.handler.Handle(context.Background(), job)
	assert.True(t, worker.IsPermanent(err))
}

func TestExportHandler_ThroughWorker(t *testing.T) {
	f := newFixture(t)
	w, err := worker.New(f.queue, worker.DefaultConfig(), testLogger())
	require.NoError(t, err)
	w.Register(f.handler)

	job := f.enqueue(t, ExportPayload{Entity: "engins", Format: "csv", Token: "user-token"})
	require.NoError(t, w.ProcessNext(context.Background()))

	got, err := f.queue.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, worker.StatusCompleted, got.Status)

	key, _, _ := ExportLocation(got)
	ok, err := f.store.Exists(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return buf.Bytes()
}
