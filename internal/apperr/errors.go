// Package apperr defines the error taxonomy shared across the service.
//
// Operations surface three kinds of failure: a referenced entity does
// not exist (ErrNotFound), a submitted value violates a field
// constraint (ValidationError, matching ErrValidation), or an edit
// session submitted contradictory data (StepConflictError, matching
// ErrConflict). Deletes of absent entities are silent no-ops and never
// produce ErrNotFound.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

// ValidationError reports a field that failed its acceptance rule.
// It is raised before any mutation is applied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Is makes ValidationError match errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validationf constructs a ValidationError for field with a formatted reason.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// StepConflictError reports that two step drafts in one reconcile call
// claimed the same existing step id. Which draft should win is
// undefined, so neither is applied.
type StepConflictError struct {
	StepID string
}

func (e *StepConflictError) Error() string {
	return fmt.Sprintf("conflict: duplicate step id %q in submitted drafts", e.StepID)
}

// Is makes StepConflictError match errors.Is(err, ErrConflict).
func (e *StepConflictError) Is(target error) bool {
	return target == ErrConflict
}
