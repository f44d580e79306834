package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrConflict          = errors.New("conflict")
)

// FieldError describes a validation failure for a specific field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError contains a list of field-level violations.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Reason)
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Reason)
	}
	return fmt.Sprintf("validation: %d errors (%s)", len(e.Errors), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Reason: reason}}}
}

// TransitionError reports a requested edge absent from the state graph.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid act status transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// OperationError reports an operation not permitted in the act's status.
type OperationError struct {
	Op     string
	Status Status
	Reason string
}

func (e *OperationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot %s act in status %s: %s", e.Op, e.Status, e.Reason)
	}
	return fmt.Sprintf("cannot %s act in status %s", e.Op, e.Status)
}

func (e *OperationError) Unwrap() error { return ErrInvalidOperation }

// ConflictError reports an optimistic version mismatch.
type ConflictError struct {
	ActID    string
	Expected int64
	Actual   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("act %s: version conflict (expected %d, stored %d)", e.ActID, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
