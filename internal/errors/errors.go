// Package errors defines structured error types for the API.
package errors

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/maruel/myaccount/internal/jsondb"
	"github.com/maruel/myaccount/internal/storage"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrValidationFailed is returned when input data fails validation
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrMissingField is returned when a required field is missing
	ErrMissingField ErrorCode = "MISSING_FIELD"
	// ErrInvalidFormat is returned when a field has an invalid format
	ErrInvalidFormat ErrorCode = "INVALID_FORMAT"
	// ErrPayloadTooLarge is returned when an upload exceeds its limit
	ErrPayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"

	// ErrNotFound is returned when a resource is not found
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrFileNotFound is returned when a file is not found
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"

	// ErrStorageError is returned when a storage operation fails
	ErrStorageError ErrorCode = "STORAGE_ERROR"
	// ErrCorruptDocument is returned when a stored document cannot be decoded
	ErrCorruptDocument ErrorCode = "CORRUPT_DOCUMENT"
	// ErrBusy is returned when a document lock could not be acquired in time
	ErrBusy ErrorCode = "BUSY"
	// ErrRateLimited is returned when a client sends too many requests
	ErrRateLimited ErrorCode = "RATE_LIMITED"

	// ErrInternal is returned when an unexpected server error occurs
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	// ErrConflict is returned when there is a resource conflict
	ErrConflict ErrorCode = "CONFLICT"
	// ErrUnauthorized is returned when authentication is missing or invalid
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrForbidden is returned when a user has insufficient permissions
	ErrForbidden ErrorCode = "FORBIDDEN"
)

// RetryAfterSeconds is advertised on BUSY responses.
const RetryAfterSeconds = 1

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code, code, and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
		details:    make(map[string]any),
	}
}

// WithDetails adds details to the error.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	maps.Copy(e.details, details)
	return e
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// Message returns the client facing message, without the wrapped error.
func (e *APIError) Message() string {
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// Predefined error constructors for common cases

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrNotFound, resource+" not found")
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrValidationFailed, message)
}

// MissingField creates a 400 Bad Request error for a missing field.
func MissingField(fieldName string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrMissingField, "Missing required field: "+fieldName).WithDetail("field", fieldName)
}

// InvalidField creates a 400 Bad Request error for a malformed field.
func InvalidField(fieldName, message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrInvalidFormat, fieldName+": "+message).WithDetail("field", fieldName)
}

// Forbidden returns a 403 Forbidden error.
func Forbidden(message string) *APIError {
	return NewAPIError(http.StatusForbidden, ErrForbidden, message)
}

// Unauthorized returns a 401 Unauthorized error.
func Unauthorized() *APIError {
	return NewAPIError(http.StatusUnauthorized, ErrUnauthorized, "Unauthorized")
}

// PayloadTooLarge returns a 413 error.
func PayloadTooLarge(limit int64) *APIError {
	return NewAPIError(http.StatusRequestEntityTooLarge, ErrPayloadTooLarge, "Payload too large").WithDetail("max_bytes", limit)
}

// Internal returns a 500 Internal Server Error.
func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrInternal, message)
}

// InternalWithError creates a 500 error wrapping an underlying error.
func InternalWithError(message string, err error) *APIError {
	return Internal(message).Wrap(err)
}

// FromStorage maps an error returned by the storage layer to an APIError.
// A nil error returns nil and an APIError is returned as is.
func FromStorage(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var verr *storage.ValidationError
	if errors.As(err, &verr) {
		return InvalidField(verr.Field, verr.Message).Wrap(err)
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return FromValidator(fieldErrs)
	}
	var conflict *storage.ConflictError
	if errors.As(err, &conflict) {
		return NewAPIError(http.StatusConflict, ErrConflict, conflict.Field+" already exists").
			WithDetail("field", conflict.Field).Wrap(err)
	}
	var decodeErr *jsondb.DecodeError
	if errors.As(err, &decodeErr) {
		return NewAPIError(http.StatusInternalServerError, ErrCorruptDocument, "Stored document is corrupt").Wrap(err)
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return NewAPIError(http.StatusNotFound, ErrNotFound, "Not found").Wrap(err)
	case errors.Is(err, storage.ErrForbidden):
		return Forbidden("Forbidden").Wrap(err)
	case errors.Is(err, storage.ErrTooLarge):
		return NewAPIError(http.StatusRequestEntityTooLarge, ErrPayloadTooLarge, "Payload too large").Wrap(err)
	case errors.Is(err, storage.ErrInvalid), errors.Is(err, jsondb.ErrInvalidPath):
		return BadRequest("Invalid request").Wrap(err)
	case errors.Is(err, jsondb.ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		return NewAPIError(http.StatusServiceUnavailable, ErrBusy, "Storage is busy, retry later").
			WithDetail("retry_after", RetryAfterSeconds).Wrap(err)
	}
	var ioErr *jsondb.IOError
	if errors.As(err, &ioErr) {
		return NewAPIError(http.StatusInternalServerError, ErrStorageError, "Storage error").Wrap(err)
	}
	return InternalWithError("Internal error", err)
}

// FromValidator converts struct validation failures to a 400 error listing
// each failing field by its JSON name.
func FromValidator(errs validator.ValidationErrors) *APIError {
	fields := make(map[string]any, len(errs))
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msg := describe(fe)
		fields[fe.Field()] = msg
		msgs = append(msgs, fe.Field()+" "+msg)
	}
	return NewAPIError(http.StatusBadRequest, ErrValidationFailed, strings.Join(msgs, "; ")).
		WithDetail("fields", fields).Wrap(errs)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "datetime":
		return "must match " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
