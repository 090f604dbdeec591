package apperror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
)

// ValidationError reports malformed input. It is always returned before any I/O happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageError wraps a failure of the underlying engine (I/O, constraint violation, corruption).
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// Storage wraps err as a StorageError unless it already carries a taxonomy error.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func NotFound(kind string, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// PartialCleanupWarning collects the external cleanup failures of a hard delete.
// The database deletion it belongs to has already been committed.
type PartialCleanupWarning struct {
	ConversationID uuid.UUID
	Failures       []error
}

func (w *PartialCleanupWarning) Error() string {
	msgs := make([]string, 0, len(w.Failures))
	for _, f := range w.Failures {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("conversation %s: %d cleanup step(s) failed: %s",
		w.ConversationID, len(w.Failures), strings.Join(msgs, "; "))
}

func (w *PartialCleanupWarning) Add(err error) {
	if err != nil {
		w.Failures = append(w.Failures, err)
	}
}

func (w *PartialCleanupWarning) HasFailures() bool {
	return len(w.Failures) > 0
}
