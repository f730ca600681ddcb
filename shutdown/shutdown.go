package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/vinayprograms/beaconkit/logging"
)

// Common errors.
var (
	// ErrAlreadyShutdown indicates shutdown was already initiated.
	ErrAlreadyShutdown = errors.New("shutdown already initiated")

	// ErrTimeout indicates teardown did not complete within the deadline.
	ErrTimeout = errors.New("shutdown timeout exceeded")

	// ErrHandlerFailed indicates one or more cleanup handlers failed.
	ErrHandlerFailed = errors.New("one or more handlers failed")
)

// Handler is implemented by components that need cleanup at teardown.
type Handler interface {
	// OnShutdown releases the component's resources. The context carries
	// the teardown deadline.
	OnShutdown(ctx context.Context) error
}

// Func adapts a plain function to Handler.
type Func func(ctx context.Context) error

// OnShutdown implements Handler.
func (f Func) OnShutdown(ctx context.Context) error { return f(ctx) }

type registration struct {
	name    string
	handler Handler
}

// Coordinator cancels session contexts and runs cleanup handlers when the
// process is asked to stop.
type Coordinator struct {
	timeout time.Duration
	log     *logging.Logger

	mu       sync.Mutex
	handlers []registration
	cancels  []context.CancelFunc

	once       sync.Once
	done       chan struct{}
	err        error
	signalChan chan os.Signal
}

// NewCoordinator creates a coordinator whose teardown deadline is timeout.
// A zero timeout means ten seconds.
func NewCoordinator(timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Coordinator{
		timeout:    timeout,
		log:        logging.New().WithComponent("shutdown"),
		done:       make(chan struct{}),
		signalChan: make(chan os.Signal, 1),
	}
}

// Register adds a named cleanup handler. Handlers run in reverse
// registration order, so a component registered after its dependency is
// torn down before it.
func (c *Coordinator) Register(name string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, registration{name: name, handler: handler})
}

// RegisterFunc registers a plain function as a cleanup handler.
func (c *Coordinator) RegisterFunc(name string, fn func(ctx context.Context) error) {
	c.Register(name, Func(fn))
}

// Context derives a context from parent that is canceled when shutdown
// begins. Run sessions under it.
func (c *Coordinator) Context(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	c.mu.Lock()
	c.cancels = append(c.cancels, cancel)
	c.mu.Unlock()
	return ctx
}

// HandleSignals arranges for SIGINT and SIGTERM to initiate shutdown.
func (c *Coordinator) HandleSignals() {
	signal.Notify(c.signalChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-c.signalChan
		c.log.Info("signal received", map[string]interface{}{"signal": sig.String()})
		_ = c.ShutdownWithTimeout(c.timeout)
	}()
}

// Trigger initiates shutdown programmatically, with the same timeout a
// signal would use. It does not depend on HandleSignals having been
// called.
func (c *Coordinator) Trigger() {
	go func() {
		_ = c.ShutdownWithTimeout(c.timeout)
	}()
}

// Shutdown cancels every derived context and runs the cleanup handlers.
// A second call returns ErrAlreadyShutdown once the first has finished.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	first := false
	c.once.Do(func() {
		first = true
		c.err = c.teardown(ctx)
		close(c.done)
	})
	if first {
		return c.err
	}

	select {
	case <-c.done:
		return ErrAlreadyShutdown
	default:
		// A concurrent first call is still tearing down.
		<-c.done
		return ErrAlreadyShutdown
	}
}

// ShutdownWithTimeout runs Shutdown under the given deadline; zero means
// the coordinator's configured timeout.
func (c *Coordinator) ShutdownWithTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.Shutdown(ctx)
}

// Done returns a channel closed once teardown has finished.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// Err returns the teardown error, or nil before Done is closed.
func (c *Coordinator) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

func (c *Coordinator) teardown(ctx context.Context) error {
	c.mu.Lock()
	cancels := c.cancels
	handlers := make([]registration, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	var failed int
	for i := len(handlers) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			c.log.Error("teardown deadline exceeded", map[string]interface{}{
				"remaining": i + 1,
			})
			return ErrTimeout
		default:
		}

		reg := handlers[i]
		start := time.Now()
		if err := reg.handler.OnShutdown(ctx); err != nil {
			failed++
			c.log.Warn("cleanup handler failed", map[string]interface{}{
				"handler": reg.name,
				"error":   err.Error(),
			})
			continue
		}
		c.log.Debug("cleanup handler done", map[string]interface{}{
			"handler":  reg.name,
			"duration": time.Since(start).String(),
		})
	}

	if failed > 0 {
		return ErrHandlerFailed
	}
	return nil
}
