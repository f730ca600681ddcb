// Package transport provides datagram endpoints for beacon traffic.
//
// # Overview
//
// The Endpoint interface is a minimal datagram socket: fire-and-forget
// Send, and a Receive that waits at most a bounded timeout. The bounded
// wait is load-bearing — it is what lets the listener re-evaluate its
// liveness bounds at least once per timeout interval even with zero
// traffic.
//
// # Available Implementations
//
//   - UDPEndpoint: real subnet broadcast + unicast over UDP sockets
//   - NATSEndpoint: subject-based fan-out for routed networks where UDP
//     broadcast does not reach
//   - MemoryEndpoint: in-memory network for testing and single-process use
//
// # Addressing
//
// Addresses are strings whose meaning belongs to the backend: "ip:port"
// for UDP, a subject name for NATS, an arbitrary name for memory networks.
// Receive reports the sender's address so acknowledgments can be unicast
// back to it.
//
// # Delivery Semantics
//
// At-most-once, unordered, lossy. Every backend drops rather than blocks
// when a receiver cannot keep up, mirroring UDP. Deduplication belongs to
// the layer above.
package transport
