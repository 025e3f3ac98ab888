package delivery

import (
	"errors"
	"fmt"
)

// DeliveryError represents a transient failure to deliver a judgment to
// the sink: a network error or a non-success response. It is never
// surfaced to the rater as a blocking error; recovery is moving the
// judgment to the durable queue.
type DeliveryError struct {
	ItemID     string // item the judgment scored
	StatusCode int    // HTTP status, 0 for transport errors
	Err        error  // underlying cause (optional)
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("deliver judgment for item %s: sink returned status %d", e.ItemID, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("deliver judgment for item %s: %v", e.ItemID, e.Err)
	}
	return fmt.Sprintf("deliver judgment for item %s failed", e.ItemID)
}

// Unwrap returns the underlying cause.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsDeliveryError returns true if the error is a DeliveryError.
// Uses errors.As to handle wrapped errors.
func IsDeliveryError(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}
