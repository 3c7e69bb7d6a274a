package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresQueue keeps jobs in the export_jobs table. Workers claim jobs with
// FOR UPDATE SKIP LOCKED, so any number of processes can share the table.
type PostgresQueue struct {
	db *sql.DB
}

// NewPostgresQueue returns a queue on db. The schema comes from the migrations.
func NewPostgresQueue(db *sql.DB) *PostgresQueue {
	return &PostgresQueue{db: db}
}

const jobColumns = `id, job_type, payload, status, priority, attempts, max_attempts,
	error_message, scheduled_at, created_at, started_at, finished_at`

func scanJob(row interface{ Scan(...any) error }) (Job, error) {
	var (
		j                 Job
		errMsg            sql.NullString
		started, finished sql.NullTime
	)
	err := row.Scan(&j.ID, &j.Type, &j.Payload, &j.Status, &j.Priority, &j.Attempts, &j.MaxAttempts,
		&errMsg, &j.ScheduledAt, &j.CreatedAt, &started, &finished)
	if err != nil {
		return Job{}, err
	}
	j.Error = errMsg.String
	j.StartedAt = started.Time
	j.FinishedAt = finished.Time
	return j, nil
}

func (q *PostgresQueue) Enqueue(ctx context.Context, p EnqueueParams) (Job, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.ScheduledAt.IsZero() {
		p.ScheduledAt = time.Now()
	}
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO export_jobs (id, job_type, payload, priority, max_attempts, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+jobColumns,
		p.ID, p.Type, p.Payload, p.Priority, p.MaxAttempts, p.ScheduledAt)
	job, err := scanJob(row)
	if err != nil {
		return Job{}, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

func (q *PostgresQueue) Dequeue(ctx context.Context) (Job, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return Job{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		UPDATE export_jobs
		SET status = 'running', attempts = attempts + 1, started_at = now()
		WHERE id = (
			SELECT id FROM export_jobs
			WHERE status = 'pending' AND scheduled_at <= now()
			ORDER BY priority DESC, scheduled_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+jobColumns)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNoJob
	}
	if err != nil {
		return Job{}, fmt.Errorf("dequeue job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Job{}, fmt.Errorf("commit dequeue: %w", err)
	}
	return job, nil
}

func (q *PostgresQueue) Complete(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE export_jobs SET status = 'completed', finished_at = now(), error_message = NULL
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

func (q *PostgresQueue) Fail(ctx context.Context, id uuid.UUID, message string, permanent bool, retryAt time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE export_jobs
		SET error_message = $2,
			status = CASE WHEN $3 OR attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
			finished_at = CASE WHEN $3 OR attempts >= max_attempts THEN now() ELSE NULL END,
			scheduled_at = CASE WHEN $3 OR attempts >= max_attempts THEN scheduled_at ELSE $4 END
		WHERE id = $1`, id, message, permanent, retryAt)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

func (q *PostgresQueue) Get(ctx context.Context, id uuid.UUID) (Job, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM export_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrJobNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (q *PostgresQueue) RecoverStale(ctx context.Context, threshold time.Duration) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE export_jobs SET status = 'pending', started_at = NULL
		WHERE status = 'running' AND started_at < now() - make_interval(secs => $1)`,
		threshold.Seconds())
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", err)
	}
	return res.RowsAffected()
}
