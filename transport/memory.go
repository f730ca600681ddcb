package transport

import (
	"sync"
	"sync/atomic"
	"time"
)

// memoryBufferSize is the per-endpoint inbound queue depth. Overflow
// drops, like a full socket buffer.
const memoryBufferSize = 64

// MemoryNetwork is an in-process datagram network. Multiple endpoints may
// bind the same address; a Send to that address is delivered to all of
// them. Binding several listeners to one address models subnet broadcast,
// and binding a sender and a receiver to one address models UDP port
// reuse.
type MemoryNetwork struct {
	mu        sync.RWMutex
	endpoints map[string][]*MemoryEndpoint
}

// NewMemoryNetwork creates an empty in-memory network.
func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{
		endpoints: make(map[string][]*MemoryEndpoint),
	}
}

// Endpoint binds a new endpoint to addr.
func (n *MemoryNetwork) Endpoint(addr string) *MemoryEndpoint {
	ep := &MemoryEndpoint{
		network: n,
		addr:    addr,
		inbox:   make(chan memoryDatagram, memoryBufferSize),
		closeCh: make(chan struct{}),
	}

	n.mu.Lock()
	n.endpoints[addr] = append(n.endpoints[addr], ep)
	n.mu.Unlock()
	return ep
}

// deliver routes one datagram to every endpoint bound to addr.
func (n *MemoryNetwork) deliver(addr string, dg memoryDatagram) {
	n.mu.RLock()
	targets := n.endpoints[addr]
	n.mu.RUnlock()

	for _, ep := range targets {
		if ep.closed.Load() {
			continue
		}
		select {
		case ep.inbox <- dg:
		default:
			// Inbox full, drop
		}
	}
}

// remove unbinds an endpoint.
func (n *MemoryNetwork) remove(target *MemoryEndpoint) {
	n.mu.Lock()
	defer n.mu.Unlock()

	bound := n.endpoints[target.addr]
	for i, ep := range bound {
		if ep == target {
			n.endpoints[target.addr] = append(bound[:i], bound[i+1:]...)
			break
		}
	}
}

type memoryDatagram struct {
	payload []byte
	from    string
}

// MemoryEndpoint implements Endpoint over a MemoryNetwork.
type MemoryEndpoint struct {
	network *MemoryNetwork
	addr    string
	inbox   chan memoryDatagram
	closed  atomic.Bool
	closeCh chan struct{}
}

// Send delivers payload to every endpoint bound to addr.
func (e *MemoryEndpoint) Send(payload []byte, addr string) error {
	if e.closed.Load() {
		return ErrClosed
	}

	dg := memoryDatagram{
		payload: append([]byte(nil), payload...),
		from:    e.addr,
	}
	e.network.deliver(addr, dg)
	return nil
}

// Receive waits up to timeout for one datagram.
func (e *MemoryEndpoint) Receive(buf []byte, timeout time.Duration) (int, string, error) {
	if e.closed.Load() {
		return 0, "", ErrClosed
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case dg := <-e.inbox:
		n := copy(buf, dg.payload)
		return n, dg.from, nil
	case <-e.closeCh:
		return 0, "", ErrClosed
	case <-timer.C:
		return 0, "", ErrTimeout
	}
}

// LocalAddr returns the bound address.
func (e *MemoryEndpoint) LocalAddr() string {
	return e.addr
}

// Close unbinds the endpoint from the network.
func (e *MemoryEndpoint) Close() error {
	if e.closed.Swap(true) {
		return ErrClosed
	}
	close(e.closeCh)
	e.network.remove(e)
	return nil
}
