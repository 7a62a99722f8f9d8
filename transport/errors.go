package transport

import "fmt"

// TimeoutError is returned by Send when no response arrives for a Get or
// SetC request within its deadline. Non-fatal: the pump's pending slot has
// already been freed by the time this is returned, and the caller is free
// to retry.
type TimeoutError struct {
	TID string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transport: request timed out waiting for response (tid=%s)", e.TID)
}
