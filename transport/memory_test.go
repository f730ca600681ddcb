package transport

import (
	"errors"
	"testing"
	"time"
)

// --- Unit Tests ---

func TestMemoryEndpoint_SendReceive(t *testing.T) {
	network := NewMemoryNetwork()
	a := network.Endpoint("a")
	b := network.Endpoint("b")

	if err := a.Send([]byte("hello"), "b"); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	buf := make([]byte, 64)
	n, from, err := b.Receive(buf, time.Second)
	if err != nil {
		t.Fatalf("Receive error: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Errorf("payload = %q, want %q", buf[:n], "hello")
	}
	if from != "a" {
		t.Errorf("from = %q, want %q", from, "a")
	}
}

func TestMemoryEndpoint_BroadcastFanOut(t *testing.T) {
	network := NewMemoryNetwork()
	pub := network.Endpoint("pub")
	l1 := network.Endpoint("bcast")
	l2 := network.Endpoint("bcast")

	if err := pub.Send([]byte("beacon"), "bcast"); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	buf := make([]byte, 64)
	for i, l := range []*MemoryEndpoint{l1, l2} {
		n, from, err := l.Receive(buf, time.Second)
		if err != nil {
			t.Fatalf("listener %d Receive error: %v", i, err)
		}
		if string(buf[:n]) != "beacon" || from != "pub" {
			t.Errorf("listener %d got (%q, %q)", i, buf[:n], from)
		}
	}
}

func TestMemoryEndpoint_ReceiveTimeout(t *testing.T) {
	network := NewMemoryNetwork()
	ep := network.Endpoint("quiet")

	start := time.Now()
	_, _, err := ep.Receive(make([]byte, 16), 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("returned after %v, before the timeout", elapsed)
	}
}

func TestMemoryEndpoint_SendToUnknownAddrDrops(t *testing.T) {
	network := NewMemoryNetwork()
	ep := network.Endpoint("a")

	// No receiver means a silent drop, not an error.
	if err := ep.Send([]byte("x"), "nowhere"); err != nil {
		t.Errorf("Send error: %v", err)
	}
}

func TestMemoryEndpoint_Close(t *testing.T) {
	network := NewMemoryNetwork()
	ep := network.Endpoint("a")

	if err := ep.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := ep.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
	if _, _, err := ep.Receive(make([]byte, 16), time.Millisecond); !errors.Is(err, ErrClosed) {
		t.Errorf("Receive after Close = %v, want ErrClosed", err)
	}
	if err := ep.Send([]byte("x"), "a"); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
}

func TestMemoryEndpoint_CloseUnblocksReceive(t *testing.T) {
	network := NewMemoryNetwork()
	ep := network.Endpoint("a")

	errCh := make(chan error, 1)
	go func() {
		_, _, err := ep.Receive(make([]byte, 16), 5*time.Second)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	ep.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("err = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive did not unblock on Close")
	}
}

func TestMemoryEndpoint_OverflowDrops(t *testing.T) {
	network := NewMemoryNetwork()
	sender := network.Endpoint("s")
	receiver := network.Endpoint("r")

	for i := 0; i < memoryBufferSize*2; i++ {
		if err := sender.Send([]byte("x"), "r"); err != nil {
			t.Fatalf("Send error: %v", err)
		}
	}

	// Only the buffered portion survives.
	received := 0
	buf := make([]byte, 16)
	for {
		_, _, err := receiver.Receive(buf, 10*time.Millisecond)
		if err != nil {
			break
		}
		received++
	}
	if received != memoryBufferSize {
		t.Errorf("received %d datagrams, want %d", received, memoryBufferSize)
	}
}
