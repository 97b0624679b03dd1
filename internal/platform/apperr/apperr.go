package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// DeltaExtractionError reports that a style delta could not be computed.
// Extraction is all-or-nothing: a partial delta is never returned.
type DeltaExtractionError struct {
	Reason string
}

func (e *DeltaExtractionError) Error() string {
	return "delta extraction failed: " + e.Reason
}

// JobNotFoundError reports a learning job id with no backing row.
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("learning job %s not found", e.JobID)
}

func (e *JobNotFoundError) Unwrap() error { return ErrNotFound }
