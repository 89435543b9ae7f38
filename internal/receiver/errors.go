package receiver

import (
	"errors"
	"fmt"
)

// Sentinel errors for the receiver client.
var (
	// ErrInvalidConfig indicates unusable client options.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrCommandTimeout indicates no matching reply arrived in time.
	ErrCommandTimeout = errors.New("command timed out")

	// ErrNotConnected indicates a send was attempted without a connection.
	ErrNotConnected = errors.New("not connected")

	// ErrConnectionClosed indicates the connection closed while a command
	// was waiting for its reply.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrUnknownEvent indicates a subscription to an event name that the
	// client never emits.
	ErrUnknownEvent = errors.New("unknown event")
)

// ConnectionError represents a transport-level failure.
type ConnectionError struct {
	Op  string // "dial", "write" or "read"
	Err error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connection %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("connection %s failed", e.Op)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsConnectionError reports whether err is or wraps a *ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}
