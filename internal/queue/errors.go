package queue

import (
	"errors"
	"strings"
)

var (
	// ErrDuplicateJobID is returned when inserting an existing job_id.
	ErrDuplicateJobID = errors.New("Job ID already exists")
	// ErrJobNotFound is returned when a transition targets a missing job.
	ErrJobNotFound = errors.New("Job not found")
	// ErrJobRunning is returned when a transition is refused for a running job.
	ErrJobRunning = errors.New("Job is already running")
	// ErrDuplicateURL is returned when a URL already has a non-failed job.
	ErrDuplicateURL = errors.New("A job for this URL already exists")
)

// DuplicateURLError names the job that already holds a URL. It matches
// ErrDuplicateURL with errors.Is.
type DuplicateURLError struct {
	Existing *Job
}

func (e *DuplicateURLError) Error() string {
	if e == nil || e.Existing == nil {
		return ErrDuplicateURL.Error()
	}
	return ErrDuplicateURL.Error() + ": " + e.Existing.JobID
}

func (e *DuplicateURLError) Unwrap() error {
	return ErrDuplicateURL
}

// isUniqueViolation reports a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	// SQLITE_CONSTRAINT_UNIQUE is extended code 2067.
	if errors.As(err, &coder) && coder.Code() == 2067 {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
