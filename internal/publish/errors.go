package publish

import (
	"errors"
	"fmt"
)

// Failure categories. Unreachable endpoints are worth retrying; a response
// the node did send but we cannot interpret is not, and neither is an upload
// that already stored some entries: re-driving it blindly could pin a
// half-written tree.
var (
	ErrEndpointUnreachable = errors.New("ipfs endpoint unreachable")
	ErrInvalidResponse     = errors.New("invalid ipfs response")
	ErrPartialUpload       = errors.New("partial upload")
)

// Error wraps a publish failure with the operation that failed and how many
// attempts were made.
type Error struct {
	Op       string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("publish %s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// retryable reports whether the failure is transient. Only unreachable
// endpoints qualify; protocol-level failures repeat identically on retry.
func retryable(err error) bool {
	return errors.Is(err, ErrEndpointUnreachable)
}
