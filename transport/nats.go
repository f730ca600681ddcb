package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConfig configures a NATS endpoint.
type NATSConfig struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Subject this endpoint receives on. Also its LocalAddr: peers
	// answer an endpoint by publishing to its subject.
	Subject string

	// Name is the client name for identification.
	Name string

	// ConnectTimeout for the initial connection.
	// Default: 5 seconds
	ConnectTimeout time.Duration
}

// Validate checks the configuration.
func (c *NATSConfig) Validate() error {
	if c.URL == "" || c.Subject == "" {
		return ErrInvalidConfig
	}
	return nil
}

// DefaultNATSConfig returns configuration with sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:            nats.DefaultURL,
		ConnectTimeout: 5 * time.Second,
	}
}

// NATSEndpoint implements Endpoint over NATS subjects. It exists for
// routed networks where UDP broadcast does not reach: one beacon subject
// fans out to every subscribed listener, and acks travel back on the
// publisher's own subject.
type NATSEndpoint struct {
	conn    *nats.Conn
	subject string
	sub     *nats.Subscription
}

// NewNATSEndpoint connects and subscribes to cfg.Subject.
func NewNATSEndpoint(cfg NATSConfig) (*NATSEndpoint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultNATSConfig().ConnectTimeout
	}

	opts := []nats.Option{nats.Timeout(timeout)}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", cfg.URL, err)
	}

	sub, err := conn.SubscribeSync(cfg.Subject)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", cfg.Subject, err)
	}

	return &NATSEndpoint{
		conn:    conn,
		subject: cfg.Subject,
		sub:     sub,
	}, nil
}

// Send publishes payload to the addr subject, with this endpoint's own
// subject as the reply so receivers can attribute the sender.
func (e *NATSEndpoint) Send(payload []byte, addr string) error {
	if e.conn.IsClosed() {
		return ErrClosed
	}
	return e.conn.PublishRequest(addr, e.subject, payload)
}

// Receive waits up to timeout for one message on this endpoint's subject.
func (e *NATSEndpoint) Receive(buf []byte, timeout time.Duration) (int, string, error) {
	msg, err := e.sub.NextMsg(timeout)
	if err != nil {
		if errors.Is(err, nats.ErrTimeout) {
			return 0, "", ErrTimeout
		}
		if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
			return 0, "", ErrClosed
		}
		return 0, "", err
	}

	n := copy(buf, msg.Data)
	return n, msg.Reply, nil
}

// LocalAddr returns the receive subject.
func (e *NATSEndpoint) LocalAddr() string {
	return e.subject
}

// Close drains the subscription and closes the connection.
func (e *NATSEndpoint) Close() error {
	if e.conn.IsClosed() {
		return ErrClosed
	}
	if err := e.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrBadSubscription) {
		e.conn.Close()
		return err
	}
	e.conn.Close()
	return nil
}
