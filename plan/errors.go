/*
errors.go - Centralized error types for the plan domain

ERROR CATEGORIES:
  1. Conflict errors - optimistic concurrency rejections (typed, retryable)
  2. Validation errors - field-level rejection of user-supplied state
  3. Query errors - malformed read parameters

Conflicts carry the authoritative current version so a caller can re-read
and retry; they are never silently resolved for user-initiated writes.
*/
package plan

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStateConflict is returned when a conditional write loses the
	// version race. Expected behavior under concurrent writers.
	ErrStateConflict = errors.New("state version conflict")

	// ErrInvalidMonth is returned for a malformed YYYY-MM selector.
	ErrInvalidMonth = errors.New("invalid month format")

	// ErrInvalidEntryType is returned for a transaction query type
	// outside {expense, income}.
	ErrInvalidEntryType = errors.New("invalid transaction type")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ConflictError reports the version the store holds right now.
type ConflictError struct {
	CurrentVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("state version conflict: current version is %d", e.CurrentVersion)
}

func (e *ConflictError) Unwrap() error { return ErrStateConflict }

// IsConflict reports whether err is an optimistic-concurrency rejection.
func IsConflict(err error) bool {
	return errors.Is(err, ErrStateConflict)
}

// ValidationError is one field-level problem in a user-supplied state.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every problem found; a payload is either
// fully applied or rejected with the complete list.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "invalid state payload"
	}
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return "invalid state payload: " + strings.Join(parts, "; ")
}

func (v *ValidationErrors) add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}
