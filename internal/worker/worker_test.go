package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type funcHandler struct {
	typ   string
	calls atomic.Int32
	fn    func(ctx context.Context, job Job) error
}

func (h *funcHandler) Type() string { return h.typ }

func (h *funcHandler) Handle(ctx context.Context, job Job) error {
	h.calls.Add(1)
	return h.fn(ctx, job)
}

func newWorker(t *testing.T, q Queue) *Worker {
	t.Helper()
	cfg := DefaultConfig()
	cfg.PollInterval = 100 * time.Millisecond
	cfg.ShutdownTimeout = 5 * time.Second
	w, err := New(q, cfg, testLogger())
	require.NoError(t, err)
	return w
}

func TestConfig_Validate(t *testing.T) {
	base := DefaultConfig()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid default config", mutate: func(*Config) {}},
		{name: "concurrency too low", mutate: func(c *Config) { c.Concurrency = 0 }, wantErr: true},
		{name: "concurrency too high", mutate: func(c *Config) { c.Concurrency = 33 }, wantErr: true},
		{name: "poll interval too short", mutate: func(c *Config) { c.PollInterval = 10 * time.Millisecond }, wantErr: true},
		{name: "job timeout too short", mutate: func(c *Config) { c.JobTimeout = 0 }, wantErr: true},
		{name: "stale threshold below timeout", mutate: func(c *Config) { c.StaleJobThreshold = time.Minute }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "permanent error", err: NewPermanentError(context.Canceled), want: true},
		{name: "wrapped permanent error", err: errors.Join(errors.New("x"), NewPermanentError(io.EOF)), want: true},
		{name: "regular error", err: context.Canceled, want: false},
		{name: "nil error", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPermanent(tt.err); got != tt.want {
				t.Errorf("IsPermanent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 30*time.Second, Backoff(0))
	assert.Equal(t, 30*time.Second, Backoff(1))
	assert.Equal(t, 60*time.Second, Backoff(2))
	assert.Equal(t, 16*time.Minute, Backoff(6))
	assert.Equal(t, 16*time.Minute, Backoff(20))
}

func TestEnqueueJob(t *testing.T) {
	q := NewMemoryQueue()
	job, err := EnqueueJob(context.Background(), q, "export", map[string]string{"entity": "engins"},
		WithPriority(PriorityHigh), WithMaxAttempts(5))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, int32(PriorityHigh), job.Priority)
	assert.Equal(t, int32(5), job.MaxAttempts)
	assert.JSONEq(t, `{"entity":"engins"}`, string(job.Payload))
}

func TestMemoryQueue_DequeueOrder(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	low, _ := EnqueueJob(ctx, q, "export", 1, WithPriority(PriorityLow))
	high, _ := EnqueueJob(ctx, q, "export", 2, WithPriority(PriorityHigh))
	_, _ = EnqueueJob(ctx, q, "export", 3, WithDelay(time.Hour))

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, high.ID, got.ID)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Equal(t, int32(1), got.Attempts)

	got, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, low.ID, got.ID)

	_, err = q.Dequeue(ctx)
	assert.ErrorIs(t, err, ErrNoJob)
}

func TestMemoryQueue_RecoverStale(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	now := time.Now()
	q.now = func() time.Time { return now }

	job, _ := EnqueueJob(ctx, q, "export", 1)
	_, err := q.Dequeue(ctx)
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	n, err := q.RecoverStale(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestWorker_ProcessNext_Success(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	w := newWorker(t, q)

	var seen uuid.UUID
	h := &funcHandler{typ: "export", fn: func(_ context.Context, job Job) error {
		seen = job.ID
		return nil
	}}
	w.Register(h)

	job, err := EnqueueJob(ctx, q, "export", 1)
	require.NoError(t, err)

	require.NoError(t, w.ProcessNext(ctx))
	assert.Equal(t, job.ID, seen)

	got, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.True(t, got.Done())

	assert.ErrorIs(t, w.ProcessNext(ctx), ErrNoJob)
}

func TestWorker_ProcessNext_RetryThenFail(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	now := time.Now()
	q.now = func() time.Time { return now }
	w := newWorker(t, q)
	w.now = q.now

	w.Register(&funcHandler{typ: "export", fn: func(context.Context, Job) error {
		return errors.New("backend down")
	}})

	job, err := EnqueueJob(ctx, q, "export", 1, WithMaxAttempts(2))
	require.NoError(t, err)

	require.Error(t, w.ProcessNext(ctx))
	got, _ := q.Get(ctx, job.ID)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, "backend down", got.Error)
	assert.Equal(t, now.Add(30*time.Second), got.ScheduledAt)

	// Not due yet.
	assert.ErrorIs(t, w.ProcessNext(ctx), ErrNoJob)

	now = now.Add(time.Minute)
	require.Error(t, w.ProcessNext(ctx))
	got, _ = q.Get(ctx, job.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, int32(2), got.Attempts)
}

func TestWorker_ProcessNext_Permanent(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	w := newWorker(t, q)

	job, err := EnqueueJob(ctx, q, "unknown", 1)
	require.NoError(t, err)

	err = w.ProcessNext(ctx)
	assert.True(t, IsPermanent(err))

	got, _ := q.Get(ctx, job.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Error, "no handler registered")
}

func TestWorker_StartStop(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	w := newWorker(t, q)

	done := make(chan struct{})
	h := &funcHandler{typ: "export", fn: func(context.Context, Job) error {
		close(done)
		return nil
	}}
	w.Register(h)

	job, err := EnqueueJob(ctx, q, "export", 1)
	require.NoError(t, err)

	w.Start(ctx)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job was not processed")
	}
	w.Stop()
	w.Stop()

	assert.Equal(t, int32(1), h.calls.Load())
	assert.Eventually(t, func() bool {
		got, _ := q.Get(ctx, job.ID)
		return got.Status == StatusCompleted
	}, time.Second, 10*time.Millisecond)
}
