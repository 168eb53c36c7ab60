package domain

import "errors"

// Sentinel errors shared across service and storage layers. Handlers map
// these to HTTP status codes with errors.Is.
var (
	// ErrValidation indicates bad input shape or range.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden indicates the actor is not allowed to perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a write conflict that survived the retry budget,
	// or a uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrTimeout indicates the unit of work exceeded its deadline.
	ErrTimeout = errors.New("timeout")
)
