package services

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get operations when no row matches the id
var ErrNotFound = errors.New("record not found")

// ValidationError reports malformed input. It is raised before any store or network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StoreError wraps a row-store failure
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// StorageError wraps a blob-store failure
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s file %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NotificationError wraps a notification function failure. Callers of the
// interaction write never see it; the dispatcher logs and drops it.
type NotificationError struct {
	Err error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed: %v", e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// IsValidationError reports whether err is (or wraps) a ValidationError
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// UserMessage converts an error into the short text shown in a transient notification
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Error()
	}
	if errors.Is(err, ErrNotFound) {
		return "Not found"
	}
	return fallback
}
