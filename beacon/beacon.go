package beacon

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

// Network conventions shared by publishers and listeners.
const (
	// DefaultPort is the broadcast destination port.
	DefaultPort = 37020

	// DefaultInterval is the broadcast cadence.
	DefaultInterval = 5 * time.Second

	// FallbackBroadcastIP is used when no subnet broadcast address can be
	// discovered.
	FallbackBroadcastIP = "255.255.255.255"

	// MaxDatagramSize bounds beacon and ack payloads on the wire.
	MaxDatagramSize = 1024
)

// State is a publisher operational state.
type State string

// Wire states. StateUnknown is the decode sentinel for a missing or
// unrecognized state field; it is never broadcast.
const (
	StateActive      State = "ACTIVE"
	StateStandby     State = "STANDBY"
	StateMaintenance State = "MAINTENANCE"
	StateError       State = "ERROR"
	StateUnknown     State = "unknown"
)

// StateCycle is the fixed order a publisher advances through, one step per
// broadcast tick.
var StateCycle = [4]State{StateActive, StateStandby, StateMaintenance, StateError}

// Valid reports whether s is one of the four wire states.
func (s State) Valid() bool {
	switch s {
	case StateActive, StateStandby, StateMaintenance, StateError:
		return true
	}
	return false
}

// Beacon is a single state announcement. Immutable once serialized.
type Beacon struct {
	// MessageID is assigned by the publisher, strictly increasing for the
	// lifetime of one publisher instance.
	MessageID int64 `json:"message_id"`

	// Timestamp is the publisher's clock at broadcast time, RFC 3339.
	Timestamp string `json:"timestamp"`

	// State the publisher announced.
	State State `json:"state"`
}

// Marshal serializes a beacon to its JSON wire form.
func (b *Beacon) Marshal() ([]byte, error) {
	return json.Marshal(b)
}

// DecodeError reports a datagram that could not be parsed as a beacon.
// It is recoverable: the caller drops the datagram and continues.
type DecodeError struct {
	Reason string
	Cause  error
}

// Error returns the error message.
func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decode beacon: %s: %v", e.Reason, e.Cause)
	}
	return "decode beacon: " + e.Reason
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Decode parses raw datagram bytes as a beacon.
//
// Missing fields default to sentinels (timestamp/state "unknown",
// message id -1). Payloads that are not UTF-8 text or not JSON return a
// *DecodeError.
func Decode(data []byte) (*Beacon, error) {
	if !utf8.Valid(data) {
		return nil, &DecodeError{Reason: "payload is not valid UTF-8"}
	}

	// Sentinels survive unless the payload overrides them.
	b := &Beacon{
		MessageID: -1,
		Timestamp: "unknown",
		State:     StateUnknown,
	}
	if err := json.Unmarshal(data, b); err != nil {
		return nil, &DecodeError{Reason: "payload is not a beacon record", Cause: err}
	}
	return b, nil
}

// FormatAck builds the acknowledgment payload a listener unicasts back to
// a beacon's source. The publisher treats it as opaque text.
func FormatAck(clientID string, messageID int64) []byte {
	return []byte(fmt.Sprintf("Client %s received message %d", clientID, messageID))
}
