package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// UDPConfig configures a UDP endpoint.
type UDPConfig struct {
	// IP to bind. Empty binds all interfaces.
	IP string

	// Port to bind. 0 picks an ephemeral port.
	Port int

	// EnableBroadcast sets SO_BROADCAST so the socket may send to a
	// subnet broadcast address.
	EnableBroadcast bool

	// ReusePort sets SO_REUSEPORT in addition to SO_REUSEADDR, so several
	// listener processes on one host can share the broadcast port. The
	// kernel distributes inbound datagrams across sockets sharing a port
	// by flow hash, so every socket in the group must be read; a socket
	// that must see all replies to its sends cannot share its port.
	ReusePort bool
}

// UDPEndpoint implements Endpoint over a UDP socket.
type UDPEndpoint struct {
	conn *net.UDPConn
}

// NewUDPEndpoint opens a UDP socket with the configured options bound.
// A failure here is fatal initialization: the caller must not enter its
// main loop.
func NewUDPEndpoint(cfg UDPConfig) (*UDPEndpoint, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var optErr error
			err := c.Control(func(fd uintptr) {
				optErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				if optErr != nil {
					return
				}
				if cfg.ReusePort {
					optErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
					if optErr != nil {
						return
					}
				}
				if cfg.EnableBroadcast {
					optErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
				}
			})
			if err != nil {
				return err
			}
			return optErr
		},
	}

	bind := net.JoinHostPort(cfg.IP, fmt.Sprintf("%d", cfg.Port))
	pc, err := lc.ListenPacket(context.Background(), "udp4", bind)
	if err != nil {
		return nil, fmt.Errorf("failed to bind udp socket on %s: %w", bind, err)
	}

	return &UDPEndpoint{conn: pc.(*net.UDPConn)}, nil
}

// Send transmits payload to addr ("ip:port"). Broadcast destinations
// require EnableBroadcast at construction.
func (e *UDPEndpoint) Send(payload []byte, addr string) error {
	dst, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", addr, err)
	}

	_, err = e.conn.WriteToUDP(payload, dst)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

// Receive waits up to timeout for one datagram.
func (e *UDPEndpoint) Receive(buf []byte, timeout time.Duration) (int, string, error) {
	if err := e.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, "", err
	}

	n, remote, err := e.conn.ReadFromUDP(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, "", ErrTimeout
		}
		if errors.Is(err, net.ErrClosed) {
			return 0, "", ErrClosed
		}
		return 0, "", err
	}
	return n, remote.String(), nil
}

// LocalAddr returns the bound "ip:port".
func (e *UDPEndpoint) LocalAddr() string {
	return e.conn.LocalAddr().String()
}

// Close releases the socket.
func (e *UDPEndpoint) Close() error {
	if err := e.conn.Close(); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}
