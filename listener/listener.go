package listener

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/beaconkit/beacon"
	"github.com/vinayprograms/beaconkit/logging"
	"github.com/vinayprograms/beaconkit/transport"
)

// Common listener errors.
var (
	ErrAlreadyRunning = errors.New("listener: session already running")
	ErrInvalidConfig  = errors.New("listener: invalid configuration")
)

// Phase is the lifecycle stage of a listener session.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseExiting
	PhaseStopped
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseRunning:
		return "RUNNING"
	case PhaseExiting:
		return "EXITING"
	case PhaseStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Record is one processed beacon, annotated with where and when it was
// received.
type Record struct {
	ServerIP    string       `json:"server_ip"`
	ServerPort  int          `json:"server_port"`
	Timestamp   string       `json:"timestamp"`
	ReceiveTime time.Time    `json:"receive_time"`
	State       beacon.State `json:"state"`
	MessageID   int64        `json:"message_id"`
}

// Summary is the result of a completed listener session.
type Summary struct {
	ClientID         string    `json:"client_id"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	RuntimeSeconds   float64   `json:"runtime_seconds"`
	MessagesReceived int       `json:"messages_received"`
	Records          []Record  `json:"received_messages"`
}

// BeaconObserver receives every newly processed beacon. Observers run after
// the duplicate check and the acknowledgment, so whatever they do cannot
// affect at-most-once processing.
type BeaconObserver interface {
	HandleBeacon(rec Record)
}

// TickFunc runs once per event-loop iteration, after the liveness bounds
// are checked. Returning false ends the session. The elapsed duration and
// processed-message count describe the session so far.
type TickFunc func(l *Listener, elapsed time.Duration, messages int) bool

// Config holds listener session settings.
type Config struct {
	// Broadcasts receives beacon datagrams. Required.
	Broadcasts transport.Endpoint

	// Acks sends acknowledgment datagrams. Optional; when nil,
	// acknowledgments go out through the broadcast endpoint.
	Acks transport.Endpoint

	// ClientID identifies this listener in acknowledgments and in the
	// summary. Defaults to an 8-character random id.
	ClientID string

	// MaxRuntime bounds the session by wall-clock time. Zero means
	// unbounded.
	MaxRuntime time.Duration

	// MaxMessages bounds the session by processed-beacon count. Zero
	// means unbounded.
	MaxMessages int

	// PollTimeout is how long a single receive waits before the liveness
	// bounds are re-evaluated. Defaults to 50ms.
	PollTimeout time.Duration

	// OnTick, when set, runs every loop iteration; returning false ends
	// the session.
	OnTick TickFunc

	// Observers are fanned out to for every processed beacon.
	Observers []BeaconObserver

	// Logger defaults to a [listener]-component logger.
	Logger *logging.Logger
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Broadcasts == nil {
		return errors.New("listener: broadcast endpoint is required")
	}
	if c.MaxMessages < 0 {
		return errors.New("listener: max messages cannot be negative")
	}
	return nil
}

// DefaultConfig returns a configuration with the conventional session
// bounds: a five minute runtime cap and a 50ms receive poll.
func DefaultConfig() Config {
	return Config{
		MaxRuntime:  5 * time.Minute,
		PollTimeout: 50 * time.Millisecond,
	}
}

// Listener is a bounded beacon-receiving session. Create one with New and
// drive it with Run; a Listener is single-use.
type Listener struct {
	broadcasts  transport.Endpoint
	acks        transport.Endpoint
	clientID    string
	maxRuntime  time.Duration
	maxMessages int
	pollTimeout time.Duration
	onTick      TickFunc
	observers   []BeaconObserver
	log         *logging.Logger

	phase atomic.Int32

	mu              sync.Mutex
	lastProcessedID int64
	records         []Record
}

// New creates a listener from cfg.
func New(cfg Config) (*Listener, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()[:8]
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 50 * time.Millisecond
	}
	if cfg.Acks == nil {
		cfg.Acks = cfg.Broadcasts
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New().WithComponent("listener")
	}

	l := &Listener{
		broadcasts:      cfg.Broadcasts,
		acks:            cfg.Acks,
		clientID:        cfg.ClientID,
		maxRuntime:      cfg.MaxRuntime,
		maxMessages:     cfg.MaxMessages,
		pollTimeout:     cfg.PollTimeout,
		onTick:          cfg.OnTick,
		observers:       cfg.Observers,
		log:             cfg.Logger,
		lastProcessedID: -1,
	}
	return l, nil
}

// ClientID returns the session's client identifier.
func (l *Listener) ClientID() string { return l.clientID }

// Phase returns the current lifecycle phase.
func (l *Listener) Phase() Phase { return Phase(l.phase.Load()) }

// LastProcessedID returns the id of the most recently processed beacon, or
// -1 when none has been processed yet.
func (l *Listener) LastProcessedID() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastProcessedID
}

// MessagesReceived returns how many distinct beacons have been processed.
func (l *Listener) MessagesReceived() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Records returns a copy of the processed-beacon records so far.
func (l *Listener) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// HandleDatagram decodes and processes one received datagram. Undecodable
// payloads return a *beacon.DecodeError and change no session state.
// Duplicates and stragglers, beacons whose id is not strictly greater than
// the last processed id, are dropped silently. A newly processed beacon is
// recorded, acknowledged to from, and fanned out to the observers.
func (l *Listener) HandleDatagram(data []byte, from string) error {
	b, err := beacon.Decode(data)
	if err != nil {
		return err
	}

	l.mu.Lock()
	if b.MessageID <= l.lastProcessedID {
		last := l.lastProcessedID
		l.mu.Unlock()
		l.log.Debug("duplicate beacon dropped", map[string]interface{}{
			"message_id":        b.MessageID,
			"last_processed_id": last,
		})
		return nil
	}
	l.lastProcessedID = b.MessageID

	rec := Record{
		ServerIP:    from,
		Timestamp:   b.Timestamp,
		ReceiveTime: time.Now(),
		State:       b.State,
		MessageID:   b.MessageID,
	}
	if host, portStr, splitErr := net.SplitHostPort(from); splitErr == nil {
		rec.ServerIP = host
		if port, convErr := strconv.Atoi(portStr); convErr == nil {
			rec.ServerPort = port
		}
	}
	l.records = append(l.records, rec)
	count := len(l.records)
	l.mu.Unlock()

	if err := l.acks.Send(beacon.FormatAck(l.clientID, b.MessageID), from); err != nil {
		l.log.Warn("ack send failed", map[string]interface{}{
			"message_id": b.MessageID,
			"addr":       from,
			"error":      err.Error(),
		})
	}

	l.log.Info("beacon processed", map[string]interface{}{
		"message_id": b.MessageID,
		"state":      string(rec.State),
		"from":       from,
		"total":      count,
	})

	for _, obs := range l.observers {
		obs.HandleBeacon(rec)
	}
	return nil
}

// Run executes the session until a bound trips or ctx is canceled, then
// closes the endpoints and returns the summary. Run can be called once.
func (l *Listener) Run(ctx context.Context) (*Summary, error) {
	if !l.phase.CompareAndSwap(int32(PhaseIdle), int32(PhaseRunning)) {
		return nil, ErrAlreadyRunning
	}

	start := time.Now()
	l.log.Info("session started", map[string]interface{}{
		"client_id":   l.clientID,
		"max_runtime": l.maxRuntime.String(),
	})

	defer func() {
		l.broadcasts.Close()
		if l.acks != l.broadcasts {
			l.acks.Close()
		}
		l.phase.Store(int32(PhaseStopped))
	}()

	buf := make([]byte, beacon.MaxDatagramSize)
	for l.alive(ctx, start) {
		n, from, err := l.broadcasts.Receive(buf, l.pollTimeout)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				continue
			}
			if errors.Is(err, transport.ErrClosed) {
				break
			}
			l.log.Warn("receive failed", map[string]interface{}{"error": err.Error()})
			continue
		}
		if err := l.HandleDatagram(buf[:n], from); err != nil {
			l.log.Warn("undecodable datagram dropped", map[string]interface{}{
				"from":  from,
				"bytes": n,
				"error": err.Error(),
			})
		}
	}

	l.phase.Store(int32(PhaseExiting))
	end := time.Now()

	l.mu.Lock()
	records := make([]Record, len(l.records))
	copy(records, l.records)
	l.mu.Unlock()

	summary := &Summary{
		ClientID:         l.clientID,
		StartTime:        start,
		EndTime:          end,
		RuntimeSeconds:   end.Sub(start).Seconds(),
		MessagesReceived: len(records),
		Records:          records,
	}
	l.log.Info("session finished", map[string]interface{}{
		"client_id":         l.clientID,
		"messages_received": summary.MessagesReceived,
		"runtime_seconds":   summary.RuntimeSeconds,
	})
	return summary, nil
}

// alive re-evaluates the session bounds between receives.
func (l *Listener) alive(ctx context.Context, start time.Time) bool {
	select {
	case <-ctx.Done():
		l.log.Info("shutdown requested")
		return false
	default:
	}

	elapsed := time.Since(start)
	if l.maxRuntime > 0 && elapsed >= l.maxRuntime {
		l.log.Info("runtime bound reached", map[string]interface{}{
			"max_runtime": l.maxRuntime.String(),
		})
		return false
	}

	count := l.MessagesReceived()
	if l.maxMessages > 0 && count >= l.maxMessages {
		l.log.Info("message bound reached", map[string]interface{}{
			"max_messages": l.maxMessages,
		})
		return false
	}

	if l.onTick != nil && !l.onTick(l, elapsed, count) {
		l.log.Info("tick hook requested exit")
		return false
	}
	return true
}
