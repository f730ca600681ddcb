package publisher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vinayprograms/beaconkit/beacon"
	"github.com/vinayprograms/beaconkit/logging"
	"github.com/vinayprograms/beaconkit/transport"
)

// Common errors.
var (
	ErrAlreadyStarted = errors.New("publisher already started")
	ErrNotStarted     = errors.New("publisher not started")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// ackPollTimeout bounds the ack drain between ticks. It doubles as the
// loop's pacing sleep, so it must stay well under the broadcast interval.
const ackPollTimeout = 50 * time.Millisecond

// Ack is one acknowledgment datagram, attributed to its sender. The
// payload is opaque text; it is recorded and logged, never parsed.
type Ack struct {
	From       string
	Payload    string
	ReceivedAt time.Time
}

// Config configures a Publisher.
type Config struct {
	// Beacons is the broadcast-send endpoint.
	Beacons transport.Endpoint

	// Acks is the ack-receive endpoint. Optional: nil disables ack
	// observation. Usually the Beacons endpoint itself: listeners answer
	// to a beacon's source address, so the socket that sends must be the
	// one that is read.
	Acks transport.Endpoint

	// BroadcastAddr is the destination for every beacon, e.g.
	// "192.168.1.255:37020".
	BroadcastAddr string

	// Interval between broadcasts.
	// Default: 5 seconds
	Interval time.Duration

	// Logger for diagnostics. Default: a fresh INFO logger.
	Logger *logging.Logger
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Beacons == nil {
		return ErrInvalidConfig
	}
	if c.BroadcastAddr == "" {
		return ErrInvalidConfig
	}
	return nil
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: beacon.DefaultInterval,
	}
}

// Publisher owns the broadcast loop state. All mutation happens on one
// control-flow path: either the Run goroutine or a test driving Tick
// directly, never both.
type Publisher struct {
	beacons  transport.Endpoint
	acks     transport.Endpoint
	addr     string
	interval time.Duration
	log      *logging.Logger

	mu            sync.Mutex
	nextMessageID int64
	stateIndex    int
	lastBroadcast time.Time

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a Publisher. Endpoint construction errors belong to the
// caller; by the time New runs, initialization has succeeded.
func New(cfg Config) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultConfig().Interval
	}

	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}

	return &Publisher{
		beacons:  cfg.Beacons,
		acks:     cfg.Acks,
		addr:     cfg.BroadcastAddr,
		interval: interval,
		log:      log.WithComponent("publisher"),
	}, nil
}

// Tick broadcasts one beacon if the interval has elapsed since the last
// broadcast, then advances the message id and state cycle. Returns true
// when a broadcast was attempted.
//
// A send failure is transient: it is logged, and the counters advance
// anyway. Message ids are never rolled back or reused; the id space is
// int64 and overflow is out of scope at one id per interval.
func (p *Publisher) Tick(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.lastBroadcast.IsZero() && now.Sub(p.lastBroadcast) < p.interval {
		return false
	}

	b := beacon.Beacon{
		MessageID: p.nextMessageID,
		Timestamp: now.Format(time.RFC3339Nano),
		State:     beacon.StateCycle[p.stateIndex],
	}

	payload, err := b.Marshal()
	if err != nil {
		p.log.Error("failed to serialize beacon", map[string]interface{}{
			"message_id": b.MessageID,
			"error":      err.Error(),
		})
	} else if err := p.beacons.Send(payload, p.addr); err != nil {
		p.log.Warn("beacon send failed", map[string]interface{}{
			"message_id": b.MessageID,
			"addr":       p.addr,
			"error":      err.Error(),
		})
	} else {
		p.log.Debug("beacon sent", map[string]interface{}{
			"message_id": b.MessageID,
			"state":      string(b.State),
		})
	}

	p.nextMessageID++
	p.stateIndex = (p.stateIndex + 1) % len(beacon.StateCycle)
	p.lastBroadcast = now
	return true
}

// PollAcks drains acknowledgment datagrams pending on the ack endpoint,
// waiting at most timeout in total. Best-effort and observational: a
// receive error ends the poll without affecting broadcast state.
func (p *Publisher) PollAcks(timeout time.Duration) []Ack {
	if p.acks == nil {
		return nil
	}

	var acks []Ack
	buf := make([]byte, beacon.MaxDatagramSize)
	deadline := time.Now().Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return acks
		}

		n, from, err := p.acks.Receive(buf, remaining)
		if err != nil {
			if !errors.Is(err, transport.ErrTimeout) && !errors.Is(err, transport.ErrClosed) {
				p.log.Warn("ack receive failed", map[string]interface{}{"error": err.Error()})
			}
			return acks
		}

		ack := Ack{
			From:       from,
			Payload:    string(buf[:n]),
			ReceivedAt: time.Now(),
		}
		acks = append(acks, ack)
		p.log.Info("ack received", map[string]interface{}{
			"from":    ack.From,
			"payload": ack.Payload,
		})
	}
}

// NextMessageID returns the id the next broadcast will carry.
func (p *Publisher) NextMessageID() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextMessageID
}

// CurrentState returns the state the next broadcast will carry.
func (p *Publisher) CurrentState() beacon.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return beacon.StateCycle[p.stateIndex]
}

// Start begins the broadcast loop in a background goroutine.
func (p *Publisher) Start(ctx context.Context) error {
	if p.running.Swap(true) {
		return ErrAlreadyStarted
	}

	if ctx == nil {
		ctx = context.Background()
	}

	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	go p.run(ctx)
	return nil
}

// run drives ticks and interleaved ack polls until stopped.
func (p *Publisher) run(ctx context.Context) {
	defer close(p.doneCh)

	// First beacon goes out immediately.
	p.Tick(time.Now())

	for {
		select {
		case <-ctx.Done():
			p.running.Store(false)
			return
		case <-p.stopCh:
			return
		default:
		}

		if p.acks != nil {
			// The bounded ack drain also paces the loop.
			p.PollAcks(ackPollTimeout)
		} else {
			time.Sleep(ackPollTimeout)
		}

		p.Tick(time.Now())
	}
}

// Stop halts the broadcast loop and waits for it to exit.
func (p *Publisher) Stop() error {
	if !p.running.Swap(false) {
		return ErrNotStarted
	}

	close(p.stopCh)
	<-p.doneCh
	return nil
}
