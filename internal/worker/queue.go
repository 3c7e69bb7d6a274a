package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNoJob is returned by Dequeue when no job is due.
var ErrNoJob = errors.New("no job available")

// ErrJobNotFound is returned by Get for an unknown id.
var ErrJobNotFound = errors.New("job not found")

// Job statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is one unit of background work.
type Job struct {
	ID          uuid.UUID
	Type        string
	Payload     []byte
	Status      string
	Priority    int32
	Attempts    int32
	MaxAttempts int32
	Error       string
	ScheduledAt time.Time
	CreatedAt   time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Done reports whether the job reached a final status.
func (j Job) Done() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// EnqueueParams describes a job to add.
type EnqueueParams struct {
	ID          uuid.UUID // generated when zero
	Type        string
	Payload     []byte
	Priority    int32
	MaxAttempts int32
	ScheduledAt time.Time
}

// Queue stores jobs between the HTTP handlers that enqueue them and the
// workers that run them.
type Queue interface {
	Enqueue(ctx context.Context, params EnqueueParams) (Job, error)

	// Dequeue claims the next due job, marks it running and counts the
	// attempt. Returns ErrNoJob when nothing is due.
	Dequeue(ctx context.Context) (Job, error)

	Complete(ctx context.Context, id uuid.UUID) error

	// Fail records a failed attempt. The job is rescheduled at retryAt
	// unless permanent is set or its attempts are used up.
	Fail(ctx context.Context, id uuid.UUID, message string, permanent bool, retryAt time.Time) error

	Get(ctx context.Context, id uuid.UUID) (Job, error)

	// RecoverStale puts jobs running for longer than threshold back to pending.
	RecoverStale(ctx context.Context, threshold time.Duration) (int64, error)
}

// Backoff returns the delay before retrying after the given attempt.
func Backoff(attempt int32) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<(attempt-1)) * 30 * time.Second
}
