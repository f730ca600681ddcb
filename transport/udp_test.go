package transport

import (
	"errors"
	"net"
	"strconv"
	"testing"
	"time"
)

// --- Integration Tests (loopback sockets) ---

func TestUDPEndpoint_SendReceive(t *testing.T) {
	receiver, err := NewUDPEndpoint(UDPConfig{IP: "127.0.0.1"})
	if err != nil {
		t.Fatalf("NewUDPEndpoint error: %v", err)
	}
	defer receiver.Close()

	sender, err := NewUDPEndpoint(UDPConfig{IP: "127.0.0.1"})
	if err != nil {
		t.Fatalf("NewUDPEndpoint error: %v", err)
	}
	defer sender.Close()

	if err := sender.Send([]byte("ping"), receiver.LocalAddr()); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	buf := make([]byte, 64)
	n, from, err := receiver.Receive(buf, time.Second)
	if err != nil {
		t.Fatalf("Receive error: %v", err)
	}
	if string(buf[:n]) != "ping" {
		t.Errorf("payload = %q, want %q", buf[:n], "ping")
	}
	if from != sender.LocalAddr() {
		t.Errorf("from = %q, want %q", from, sender.LocalAddr())
	}
}

func TestUDPEndpoint_ReceiveTimeout(t *testing.T) {
	ep, err := NewUDPEndpoint(UDPConfig{IP: "127.0.0.1"})
	if err != nil {
		t.Fatalf("NewUDPEndpoint error: %v", err)
	}
	defer ep.Close()

	_, _, err = ep.Receive(make([]byte, 16), 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestUDPEndpoint_ReusePort(t *testing.T) {
	first, err := NewUDPEndpoint(UDPConfig{IP: "127.0.0.1", ReusePort: true})
	if err != nil {
		t.Fatalf("NewUDPEndpoint error: %v", err)
	}
	defer first.Close()

	// A second socket on the same port must bind cleanly.
	_, portStr, err := net.SplitHostPort(first.LocalAddr())
	if err != nil {
		t.Fatalf("SplitHostPort(%q): %v", first.LocalAddr(), err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Atoi(%q): %v", portStr, err)
	}
	second, err := NewUDPEndpoint(UDPConfig{IP: "127.0.0.1", Port: port, ReusePort: true})
	if err != nil {
		t.Fatalf("second bind on %s: %v", first.LocalAddr(), err)
	}
	second.Close()
}

func TestUDPEndpoint_RepliesReachSendingSocket(t *testing.T) {
	server, err := NewUDPEndpoint(UDPConfig{IP: "127.0.0.1", EnableBroadcast: true})
	if err != nil {
		t.Fatalf("NewUDPEndpoint error: %v", err)
	}
	defer server.Close()

	// Replies go to the datagram's source address; the socket that sent
	// it must read every one of them, from every peer.
	const peers = 5
	for i := 0; i < peers; i++ {
		peer, err := NewUDPEndpoint(UDPConfig{IP: "127.0.0.1"})
		if err != nil {
			t.Fatalf("peer %d: %v", i, err)
		}
		defer peer.Close()

		if err := server.Send([]byte("beacon"), peer.LocalAddr()); err != nil {
			t.Fatalf("Send to peer %d: %v", i, err)
		}

		buf := make([]byte, 64)
		_, from, err := peer.Receive(buf, time.Second)
		if err != nil {
			t.Fatalf("peer %d Receive: %v", i, err)
		}
		if from != server.LocalAddr() {
			t.Fatalf("peer %d saw source %q, want %q", i, from, server.LocalAddr())
		}
		if err := peer.Send([]byte("reply "+strconv.Itoa(i)), from); err != nil {
			t.Fatalf("peer %d reply: %v", i, err)
		}
	}

	buf := make([]byte, 64)
	for i := 0; i < peers; i++ {
		if _, _, err := server.Receive(buf, time.Second); err != nil {
			t.Fatalf("reply %d of %d never arrived: %v", i+1, peers, err)
		}
	}
}

func TestUDPEndpoint_ClosedReceive(t *testing.T) {
	ep, err := NewUDPEndpoint(UDPConfig{IP: "127.0.0.1"})
	if err != nil {
		t.Fatalf("NewUDPEndpoint error: %v", err)
	}
	ep.Close()

	_, _, err = ep.Receive(make([]byte, 16), time.Millisecond)
	if !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}
