// Package errors provides the error types returned to callers of the corpus pipeline.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrInvalidInput indicates missing or malformed caller input
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyDocument indicates a document with nothing to process
	ErrEmptyDocument = errors.New("empty document")
)

// InputError reports an irrecoverable problem with the input of an operation.
// No output is produced when it is returned.
type InputError struct {
	Op     string // Operation that rejected the input (e.g., "assemble", "reconstruct")
	Reason string // Human-readable reason
	Err    error  // Underlying error, if any
}

func (e *InputError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return e.Reason
}

func (e *InputError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// NewInputError creates an InputError wrapping ErrInvalidInput
func NewInputError(op, reason string) error {
	return &InputError{Op: op, Reason: reason}
}

// EmptyDocument creates an InputError wrapping ErrEmptyDocument
func EmptyDocument(op, what string) error {
	return &InputError{
		Op:     op,
		Reason: fmt.Sprintf("no %s to process", what),
		Err:    ErrEmptyDocument,
	}
}

// IsInputError reports whether err is or wraps an *InputError
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
