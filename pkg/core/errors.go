package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrNotFound = errors.New("setlist not found")
	ErrReadOnly = errors.New("store is in read-only mode")
	ErrLocked   = errors.New("store is locked by another session")
)

// FormatError reports input that is not structurally parseable.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	if e.Err == nil {
		return "invalid format"
	}
	return "invalid format: " + e.Err.Error()
}

func (e *FormatError) Unwrap() error { return e.Err }

// VersionError reports a recognized document with an unsupported schema
// version.
type VersionError struct {
	Got  string
	Want string
}

func (e *VersionError) Error() string {
	if e.Got == "" {
		return fmt.Sprintf("missing schemaVersion (want %q)", e.Want)
	}
	return fmt.Sprintf("unsupported schemaVersion %q (want %q)", e.Got, e.Want)
}

// ShapeError reports a structurally valid document that lacks a required
// nested shape.
type ShapeError struct {
	Field string
	Want  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s must be %s", e.Field, e.Want)
}

// StorageError reports a durable read or write failure.
type StorageError struct {
	Op  string
	ID  string
	Err error
}

func (e *StorageError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a *StorageError unless it is nil, already a
// *StorageError, or ErrNotFound (which callers match directly).
func Storage(op, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, ID: id, Err: err}
}
