package lifecycle

import "errors"

var (
	// ErrValidation is returned when an intent is rejected locally, before any
	// network call.
	ErrValidation = errors.New("validation failed")
	// ErrSubmission is returned when the service refuses or fails a submit.
	ErrSubmission = errors.New("submission failed")
	// ErrNotFound is returned when the service does not know the job.
	ErrNotFound = errors.New("job not found")
	// ErrService covers every other failure of a synchronous intent.
	ErrService = errors.New("optimizer service error")
)
