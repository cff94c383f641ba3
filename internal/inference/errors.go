package inference

import (
	"errors"
	"fmt"
)

// Error is a typed inference failure carrying a retryable flag and the
// originating cause. Transient errors (rate limits, server errors, timeouts)
// are retried inside the gateway and only surface once retries are exhausted;
// permanent errors (auth, malformed request) surface immediately.
type Error struct {
	Role      string
	Status    int
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "transient"
	}
	if e.Status != 0 {
		return fmt.Sprintf("inference call for role %q failed (%s, status %d): %v", e.Role, kind, e.Status, e.Cause)
	}
	return fmt.Sprintf("inference call for role %q failed (%s): %v", e.Role, kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// IsRetryable reports whether err is a transient inference error.
func IsRetryable(err error) bool {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Retryable
	}
	return false
}
