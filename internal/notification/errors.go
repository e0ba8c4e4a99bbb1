package notification

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for unknown notification ids.
var ErrNotFound = errors.New("notification not found")

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
