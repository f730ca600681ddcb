package serialpoll

import (
	"encoding/hex"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/vinayprograms/beaconkit/listener"
	"github.com/vinayprograms/beaconkit/logging"
)

const (
	defaultPollInterval = time.Second
	defaultReadTimeout  = 100 * time.Millisecond
	readBufferSize      = 256

	// Jitter above this is logged even when the device had nothing to say.
	significantJitterMS = 5.0
)

// Config holds serial polling settings.
type Config struct {
	// Port is the device path, e.g. /dev/ttyUSB0.
	Port string

	// Baud is the line speed. Defaults to 9600.
	Baud int

	// PollInterval is the cadence between device reads. Defaults to 1s.
	PollInterval time.Duration

	// ReadTimeout bounds a single device read so the listener loop is
	// never blocked. Defaults to 100ms.
	ReadTimeout time.Duration

	// Logger defaults to a [serial]-component logger.
	Logger *logging.Logger
}

// Entry is one recorded device read.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Hex       string    `json:"data"`
	JitterMS  float64   `json:"jitter_ms"`
}

// Poller reads a serial device on an interval, driven by an external loop.
type Poller struct {
	device   io.ReadCloser
	interval time.Duration
	log      *logging.Logger

	mu         sync.Mutex
	available  bool
	lastPoll   time.Time
	lastStatus int
	entries    []Entry
}

// New opens the configured serial port. An unopenable device degrades the
// poller to a no-op; the session it is attached to keeps running.
func New(cfg Config) *Poller {
	if cfg.Baud <= 0 {
		cfg.Baud = 9600
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New().WithComponent("serial")
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		log.Warn("serial port unavailable, polling disabled", map[string]interface{}{
			"port":  cfg.Port,
			"error": err.Error(),
		})
		return newWithDevice(nil, cfg.PollInterval, log)
	}

	log.Info("serial port opened", map[string]interface{}{
		"port": cfg.Port,
		"baud": cfg.Baud,
	})
	return newWithDevice(port, cfg.PollInterval, log)
}

// NewWithDevice builds a poller around an already-open device. Used by
// tests and by callers that manage the port themselves.
func NewWithDevice(device io.ReadCloser, pollInterval time.Duration) *Poller {
	return newWithDevice(device, pollInterval, logging.New().WithComponent("serial"))
}

func newWithDevice(device io.ReadCloser, interval time.Duration, log *logging.Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		device:    device,
		interval:  interval,
		log:       log,
		available: device != nil,
	}
}

// Available reports whether a device is open.
func (p *Poller) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// Poll reads the device if the poll interval has elapsed at now. It
// returns the recorded entry when the read produced data.
func (p *Poller) Poll(now time.Time) (*Entry, bool) {
	p.mu.Lock()

	if !p.available {
		p.mu.Unlock()
		return nil, false
	}
	if p.lastPoll.IsZero() {
		p.lastPoll = now
		p.mu.Unlock()
		return nil, false
	}
	actual := now.Sub(p.lastPoll)
	if actual < p.interval {
		p.mu.Unlock()
		return nil, false
	}

	// Stamp before reading so drift does not accumulate across polls.
	jitterMS := (actual - p.interval).Seconds() * 1000
	if jitterMS < 0 {
		jitterMS = -jitterMS
	}
	p.lastPoll = now
	device := p.device
	p.mu.Unlock()

	buf := make([]byte, readBufferSize)
	n, err := device.Read(buf)
	if err != nil && err != io.EOF {
		p.log.Warn("serial read failed", map[string]interface{}{"error": err.Error()})
		return nil, false
	}
	if n == 0 {
		if jitterMS > significantJitterMS {
			p.log.Debug("serial poll idle", map[string]interface{}{"jitter_ms": jitterMS})
		}
		return nil, false
	}

	entry := Entry{
		Timestamp: now,
		Hex:       hex.EncodeToString(buf[:n]),
		JitterMS:  jitterMS,
	}
	p.mu.Lock()
	p.entries = append(p.entries, entry)
	p.mu.Unlock()

	p.log.Info("serial data received", map[string]interface{}{
		"data":      entry.Hex,
		"jitter_ms": entry.JitterMS,
	})
	return &entry, true
}

// Entries returns a copy of the recorded device reads.
func (p *Poller) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// AvgJitterMS returns the mean measured jitter across recorded reads.
func (p *Poller) AvgJitterMS() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.entries) == 0 {
		return 0
	}
	var sum float64
	for _, e := range p.entries {
		sum += e.JitterMS
	}
	return sum / float64(len(p.entries))
}

// TickFunc adapts the poller to a listener tick hook. The hook polls the
// device and emits a status line every five seconds of session time; it
// never asks the session to stop.
func (p *Poller) TickFunc() listener.TickFunc {
	return func(_ *listener.Listener, elapsed time.Duration, messages int) bool {
		p.Poll(time.Now())

		second := int(elapsed.Seconds())
		p.mu.Lock()
		status := second%5 == 0 && second != p.lastStatus
		if status {
			p.lastStatus = second
		}
		polls := len(p.entries)
		p.mu.Unlock()

		if status && second > 0 {
			p.log.Info("session status", map[string]interface{}{
				"elapsed_seconds":   second,
				"messages_received": messages,
				"serial_reads":      polls,
				"avg_jitter_ms":     p.AvgJitterMS(),
			})
		}
		return true
	}
}

// Close releases the device.
func (p *Poller) Close() error {
	p.mu.Lock()
	device := p.device
	p.available = false
	p.device = nil
	p.mu.Unlock()

	if device == nil {
		return nil
	}
	return device.Close()
}
