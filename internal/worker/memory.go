package worker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is a Queue held in process memory. Jobs are lost on restart;
// it serves single-instance deployments without a database.
type MemoryQueue struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*Job
	now  func() time.Time
}

// NewMemoryQueue returns an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{jobs: make(map[uuid.UUID]*Job), now: time.Now}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, p EnqueueParams) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	now := q.now()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.ScheduledAt.IsZero() {
		p.ScheduledAt = now
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	job := &Job{
		ID:          p.ID,
		Type:        p.Type,
		Payload:     append([]byte(nil), p.Payload...),
		Status:      StatusPending,
		Priority:    p.Priority,
		MaxAttempts: p.MaxAttempts,
		ScheduledAt: p.ScheduledAt,
		CreatedAt:   now,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs[job.ID] = job
	return *job, nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var due []*Job
	for _, j := range q.jobs {
		if j.Status == StatusPending && !j.ScheduledAt.After(now) {
			due = append(due, j)
		}
	}
	if len(due) == 0 {
		return Job{}, ErrNoJob
	}
	sort.Slice(due, func(a, b int) bool {
		if due[a].Priority != due[b].Priority {
			return due[a].Priority > due[b].Priority
		}
		return due[a].ScheduledAt.Before(due[b].ScheduledAt)
	})

	j := due[0]
	j.Status = StatusRunning
	j.Attempts++
	j.StartedAt = now
	return *j, nil
}

func (q *MemoryQueue) Complete(_ context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	j.Status = StatusCompleted
	j.Error = ""
	j.FinishedAt = q.now()
	return nil
}

func (q *MemoryQueue) Fail(_ context.Context, id uuid.UUID, message string, permanent bool, retryAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	j.Error = message
	if permanent || j.Attempts >= j.MaxAttempts {
		j.Status = StatusFailed
		j.FinishedAt = q.now()
		return nil
	}
	j.Status = StatusPending
	j.ScheduledAt = retryAt
	return nil
}

func (q *MemoryQueue) Get(_ context.Context, id uuid.UUID) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return *j, nil
}

func (q *MemoryQueue) RecoverStale(_ context.Context, threshold time.Duration) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	cutoff := q.now().Add(-threshold)
	var n int64
	for _, j := range q.jobs {
		if j.Status == StatusRunning && j.StartedAt.Before(cutoff) {
			j.Status = StatusPending
			j.StartedAt = time.Time{}
			n++
		}
	}
	return n, nil
}
