package scheduling

import (
	"errors"
	"fmt"
)

// ErrConflict is returned when a create or reschedule would overlap another
// occupying appointment for the same provider.
var ErrConflict = errors.New("appointment slot is already taken")

// ErrNotFound is returned for unknown appointment ids.
var ErrNotFound = errors.New("appointment not found")

// ValidationError rejects malformed input synchronously; it is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
