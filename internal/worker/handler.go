package worker

import (
	"context"
	"errors"
)

// JobHandler runs one type of background job.
type JobHandler interface {
	// Type returns the job type this handler processes.
	Type() string

	// Handle runs the job. Return NewPermanentError to fail it without retries.
	Handle(ctx context.Context, job Job) error
}

// PermanentError wraps an error to indicate it should not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermanentError creates a new PermanentError that wraps the given error.
func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent checks if an error is a PermanentError.
func IsPermanent(err error) bool {
	var permErr *PermanentError
	return errors.As(err, &permErr)
}
