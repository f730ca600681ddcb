package transport

import (
	"errors"
	"time"
)

// Common errors.
var (
	// ErrTimeout reports that a bounded Receive elapsed with no datagram.
	ErrTimeout = errors.New("receive timeout")

	// ErrClosed reports an operation on a closed endpoint.
	ErrClosed = errors.New("endpoint closed")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Endpoint is a datagram endpoint. Implementations are safe for one
// sender and one receiver goroutine; beaconkit's publisher and listener
// each drive their endpoints from a single control-flow path.
type Endpoint interface {
	// Send transmits payload to addr. Best-effort: delivery is not
	// guaranteed and no error is returned for lost datagrams.
	Send(payload []byte, addr string) error

	// Receive waits up to timeout for one datagram, copying it into buf.
	// It returns the payload length and the sender's address, ErrTimeout
	// if the wait elapsed, or ErrClosed once the endpoint is closed.
	Receive(buf []byte, timeout time.Duration) (n int, from string, err error)

	// LocalAddr returns the endpoint's own address, in the backend's
	// addressing scheme.
	LocalAddr() string

	// Close releases the endpoint. Subsequent calls return ErrClosed.
	Close() error
}
