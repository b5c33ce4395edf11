package events

import (
	"context"
	"errors"
	"fmt"
)

// Transport abstracts the underlying message broker. Implementations live
// outside this package (common/messaging provides a NATS-backed one); the
// publisher layers never batch or retry at this level.
type Transport interface {
	// Publish sends raw bytes to the named subject. Failure is reported,
	// never swallowed.
	Publish(ctx context.Context, subject string, payload []byte) error

	// IsConnected reports whether the broker connection is currently up.
	IsConnected() bool
}

// ErrTransportDown indicates the broker connection is not available.
var ErrTransportDown = errors.New("transport not connected")

// TransportError wraps a broker failure with the subject it occurred on.
// Transport errors are considered retryable by the publishing layers.
type TransportError struct {
	Subject string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport publish to %s: %v", e.Subject, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
