package session

import (
	"errors"
	"fmt"
)

// ValidationError represents a rater-input failure: a missing rater name
// or a request for a batch item that does not exist. It is surfaced to the
// rater immediately; no state is mutated and the action does not proceed.
type ValidationError struct {
	Field   string // "raterName", "cursor", "state"
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// IsValidationError returns true if the error is a ValidationError.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// newStateError reports an operation invoked in the wrong state.
func newStateError(op string, state State) *ValidationError {
	return &ValidationError{
		Field:   "state",
		Message: fmt.Sprintf("%s is not valid in state %s", op, state),
	}
}
