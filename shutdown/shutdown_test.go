package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Unit Tests ---

func TestCoordinator_RunsHandlersInReverseOrder(t *testing.T) {
	c := NewCoordinator(time.Second)

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		c.RegisterFunc(name, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}

	want := []string{"third", "second", "first"}
	if len(order) != len(want) {
		t.Fatalf("ran %d handlers, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestCoordinator_CancelsDerivedContexts(t *testing.T) {
	c := NewCoordinator(time.Second)
	ctx := c.Context(context.Background())

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}

	select {
	case <-ctx.Done():
	default:
		t.Error("derived context not canceled by Shutdown")
	}
}

func TestCoordinator_HandlerFailureDoesNotStopTeardown(t *testing.T) {
	c := NewCoordinator(time.Second)

	ran := false
	c.RegisterFunc("works", func(ctx context.Context) error {
		ran = true
		return nil
	})
	c.RegisterFunc("breaks", func(ctx context.Context) error {
		return errors.New("boom")
	})

	err := c.Shutdown(context.Background())
	if !errors.Is(err, ErrHandlerFailed) {
		t.Errorf("Shutdown = %v, want ErrHandlerFailed", err)
	}
	if !ran {
		t.Error("surviving handler did not run after a failure")
	}
}

func TestCoordinator_SecondShutdown(t *testing.T) {
	c := NewCoordinator(time.Second)

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown error: %v", err)
	}
	if err := c.Shutdown(context.Background()); !errors.Is(err, ErrAlreadyShutdown) {
		t.Errorf("second Shutdown = %v, want ErrAlreadyShutdown", err)
	}
}

func TestCoordinator_Timeout(t *testing.T) {
	c := NewCoordinator(time.Second)

	c.RegisterFunc("never runs", func(ctx context.Context) error {
		t.Error("handler ran after the deadline")
		return nil
	})
	c.RegisterFunc("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	err := c.ShutdownWithTimeout(20 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Shutdown = %v, want ErrTimeout", err)
	}
}

func TestCoordinator_DoneAndErr(t *testing.T) {
	c := NewCoordinator(time.Second)

	if c.Err() != nil {
		t.Errorf("Err before shutdown = %v, want nil", c.Err())
	}
	select {
	case <-c.Done():
		t.Fatal("Done closed before shutdown")
	default:
	}

	c.Shutdown(context.Background())

	select {
	case <-c.Done():
	default:
		t.Error("Done not closed after shutdown")
	}
	if c.Err() != nil {
		t.Errorf("Err = %v, want nil", c.Err())
	}
}

func TestCoordinator_Trigger(t *testing.T) {
	// Trigger must work on its own, without HandleSignals.
	c := NewCoordinator(time.Second)

	done := make(chan struct{})
	c.RegisterFunc("mark", func(ctx context.Context) error {
		close(done)
		return nil
	})

	c.Trigger()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Trigger did not initiate shutdown")
	}
}
