// Package errors holds the sentinel errors shared by the store, the
// resolution pipeline and the HTTP boundary, plus JobError for failures
// tied to one job.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrOverload     = errors.New("too many jobs in store")
	ErrAbortFailed  = errors.New("abort failed")
	ErrDecode       = errors.New("malformed payload")
	ErrDuplicateJob = errors.New("job already exists")
	ErrInvalidArg   = errors.New("invalid argument")
)

// JobError records which operation failed on which job.
type JobError struct {
	Op    string
	JobID string
	Err   error
}

func (e *JobError) Error() string { return e.Op + " " + e.JobID + ": " + e.Err.Error() }

func (e *JobError) Unwrap() error { return e.Err }

// ForJob wraps err as a JobError. It returns nil when err is nil.
func ForJob(op, jobID string, err error) error {
	if err == nil {
		return nil
	}
	return &JobError{Op: op, JobID: jobID, Err: err}
}

// JobIDOf returns the id of the innermost job an error chain is about.
func JobIDOf(err error) (string, bool) {
	var je *JobError
	if !errors.As(err, &je) {
		return "", false
	}
	return je.JobID, true
}

// Wrap annotates err with msg. It returns nil when err is nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func Wrapf(err error, format string, args ...any) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
