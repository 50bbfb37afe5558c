package jsondb

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record id is not present in a collection.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateID is returned when inserting a record with an id already in use.
	ErrDuplicateID = errors.New("duplicate record id")
	// ErrLockTimeout is returned when a document lock could not be acquired in time.
	ErrLockTimeout = errors.New("timed out waiting for document lock")
	// ErrInvalidPath is returned for document paths escaping the store root.
	ErrInvalidPath = errors.New("invalid document path")
	// ErrSkipWrite can be returned by an Update callback to release the lock
	// without persisting anything. Update then returns nil.
	ErrSkipWrite = errors.New("skip write")
)

// DecodeError reports a document that exists but does not contain valid JSON.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IOError reports a filesystem failure other than the document being absent.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func ioErr(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}
