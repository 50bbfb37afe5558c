package storage

import (
	"errors"
	"fmt"

	"github.com/maruel/myaccount/internal/jsondb"
)

var (
	// ErrNotFound is returned when a record or account does not exist.
	ErrNotFound = jsondb.ErrNotFound
	// ErrConflict is returned when a unique field is already taken.
	ErrConflict = errors.New("already exists")
	// ErrForbidden is returned when the acting account may not perform an operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalid is returned for input that fails validation.
	ErrInvalid = errors.New("invalid input")
	// ErrTooLarge is returned for uploads over the size limit.
	ErrTooLarge = errors.New("file too large")
)

// ConflictError names the unique field that collided.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

// Is makes errors.Is(err, ErrConflict) match.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ValidationError reports one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Is makes errors.Is(err, ErrInvalid) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
