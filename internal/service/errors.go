package service

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a task does not exist or belongs to another owner
var ErrNotFound = errors.New("task not found")

// ValidationError reports client input that cannot be accepted. Its message
// is safe to return to the caller as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StoreFault wraps a backing store failure. Callers should report it as an
// internal error without exposing the wrapped error.
type StoreFault struct {
	Op  string
	Err error
}

func (e *StoreFault) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreFault) Unwrap() error {
	return e.Err
}

func fault(op string, err error) error {
	return &StoreFault{Op: op, Err: err}
}
