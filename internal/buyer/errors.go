package buyer

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound means the referenced buyer does not exist.
	ErrNotFound = errors.New("buyer not found")

	// ErrForbidden means the acting user is neither the owner nor an admin.
	ErrForbidden = errors.New("you can only modify your own buyers")

	// ErrRowLimitExceeded means a CSV import carried more data rows than allowed.
	ErrRowLimitExceeded = errors.New("csv import row limit exceeded")
)

// ConflictError is returned when the client's version token does not match
// the stored updatedAt, or when a concurrent writer won the race. It carries
// the server-side token so the client can refresh and retry.
type ConflictError struct {
	CurrentUpdatedAt time.Time
}

func (e *ConflictError) Error() string {
	return "record has been modified by another user"
}

// FieldError names one offending field and why it was rejected.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates the field errors of a single record.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("validation failed: %s: %s", e.Fields[0].Field, e.Fields[0].Message)
	}
	return fmt.Sprintf("validation failed on %d fields", len(e.Fields))
}

// StorageError wraps a datastore failure during a commit. It is distinct
// from per-row validation errors: when it occurs during a bulk import the
// whole transaction has rolled back.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure: %v", e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
