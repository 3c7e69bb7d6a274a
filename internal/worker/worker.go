// Package worker runs background jobs from a Queue with a pool of polling
// goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/guichet/internal/metrics"
)

// Worker manages background job processing with concurrent workers.
type Worker struct {
	queue    Queue
	handlers map[string]JobHandler
	config   Config
	logger   *slog.Logger
	now      func() time.Time

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a Worker. Start it with Start and stop it with Stop.
func New(queue Queue, config Config, logger *slog.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Worker{
		queue:    queue,
		handlers: make(map[string]JobHandler),
		config:   config,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}, nil
}

// Register adds a job handler. Call it before Start.
func (w *Worker) Register(handler JobHandler) {
	jobType := handler.Type()
	if _, exists := w.handlers[jobType]; exists {
		w.logger.Warn("Overwriting existing handler", "job_type", jobType)
	}
	w.handlers[jobType] = handler
	w.logger.Debug("Registered job handler", "job_type", jobType)
}

// Start recovers stale jobs, then starts the polling goroutines.
func (w *Worker) Start(ctx context.Context) {
	if n, err := w.queue.RecoverStale(ctx, w.config.StaleJobThreshold); err != nil {
		w.logger.Error("Failed to recover stale jobs", "error", err)
	} else if n > 0 {
		w.logger.Warn("Recovered stale jobs", "count", n, "threshold", w.config.StaleJobThreshold)
	}

	for i := 0; i < w.config.Concurrency; i++ {
		w.wg.Add(1)
		go w.runWorker(ctx, i+1)
	}

	w.logger.Info("Worker started", "concurrency", w.config.Concurrency)
}

// Stop signals all workers to stop and waits up to ShutdownTimeout.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker...")
		close(w.stopCh)
	})

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(w.config.ShutdownTimeout)
	defer timer.Stop()
	select {
	case <-done:
		w.logger.Info("Worker stopped gracefully")
	case <-timer.C:
		w.logger.Warn("Worker shutdown timeout exceeded, some jobs may still be running")
	}
}

func (w *Worker) runWorker(ctx context.Context, workerID int) {
	defer w.wg.Done()

	logger := w.logger.With("worker_id", workerID)
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Drain due jobs before waiting for the next tick.
			for {
				err := w.ProcessNext(ctx)
				if errors.Is(err, ErrNoJob) {
					break
				}
				if err != nil {
					logger.Error("Failed to process job", "error", err)
					break
				}
				select {
				case <-w.stopCh:
					return
				default:
				}
			}
		}
	}
}

// ProcessNext claims and runs one job. Returns ErrNoJob when the queue is idle.
func (w *Worker) ProcessNext(ctx context.Context) error {
	job, err := w.queue.Dequeue(ctx)
	if err != nil {
		return err
	}

	logger := w.logger.With("job_id", job.ID, "job_type", job.Type, "attempt", job.Attempts)
	logger.Info("Processing job")

	metrics.JobStarted(job.Type)
	start := w.now()
	err = w.executeJob(ctx, job)
	metrics.JobFinished(job.Type)

	if err != nil {
		logger.Error("Job failed", "error", err)
		w.markJobFailed(ctx, job, err)
		return fmt.Errorf("execute job: %w", err)
	}

	metrics.JobCompleted(job.Type, w.now().Sub(start))
	logger.Info("Job completed")
	if err := w.queue.Complete(ctx, job.ID); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	return nil
}

func (w *Worker) executeJob(ctx context.Context, job Job) error {
	handler, ok := w.handlers[job.Type]
	if !ok {
		return NewPermanentError(fmt.Errorf("no handler registered for job type: %s", job.Type))
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	return handler.Handle(jobCtx, job)
}

// markJobFailed fails a job for good when the error is permanent or its
// attempts are used up, and reschedules it with backoff otherwise.
func (w *Worker) markJobFailed(ctx context.Context, job Job, jobErr error) {
	permanent := IsPermanent(jobErr)
	final := permanent || job.Attempts >= job.MaxAttempts
	if final {
		metrics.JobFailed(job.Type)
		if permanent {
			w.logger.Warn("Job failed with permanent error, will not retry", "job_id", job.ID, "error", jobErr)
		}
	} else {
		metrics.JobRetried(job.Type)
	}

	retryAt := w.now().Add(Backoff(job.Attempts))
	if err := w.queue.Fail(ctx, job.ID, jobErr.Error(), permanent, retryAt); err != nil {
		w.logger.Error("Failed to mark job as failed", "job_id", job.ID, "error", err)
	}
}
