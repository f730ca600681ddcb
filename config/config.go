// Package config loads beaconkit settings from a TOML file. Every field
// has a default, so a missing file or an empty table still yields a usable
// configuration; command-line flags override file values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vinayprograms/beaconkit/beacon"
)

// File is the full configuration file.
type File struct {
	Log       Log       `toml:"log"`
	Publisher Publisher `toml:"publisher"`
	Listener  Listener  `toml:"listener"`
	Bridge    Bridge    `toml:"bridge"`
	Serial    Serial    `toml:"serial"`
}

// Log controls logging output.
type Log struct {
	Level string `toml:"level"`
}

// Publisher configures the broadcasting side.
type Publisher struct {
	// Port is the local port beacons are sent from and acks arrive on.
	Port int `toml:"port"`
	// ClientPort is the destination broadcast port listeners bind.
	ClientPort int `toml:"client_port"`
	// BroadcastIP overrides interface discovery when non-empty.
	BroadcastIP     string  `toml:"broadcast_ip"`
	IntervalSeconds float64 `toml:"interval_seconds"`
}

// Interval returns the broadcast interval as a duration.
func (p Publisher) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds * float64(time.Second))
}

// Listener configures the receiving side.
type Listener struct {
	Port              int     `toml:"port"`
	ClientID          string  `toml:"client_id"`
	MaxRuntimeSeconds float64 `toml:"max_runtime_seconds"`
	MaxMessages       int     `toml:"max_messages"`
	PollTimeoutMS     int     `toml:"poll_timeout_ms"`
}

// MaxRuntime returns the session runtime bound as a duration.
func (l Listener) MaxRuntime() time.Duration {
	return time.Duration(l.MaxRuntimeSeconds * float64(time.Second))
}

// PollTimeout returns the receive poll timeout as a duration.
func (l Listener) PollTimeout() time.Duration {
	return time.Duration(l.PollTimeoutMS) * time.Millisecond
}

// Bridge configures the optional MQTT republisher.
type Bridge struct {
	Enabled   bool   `toml:"enabled"`
	BrokerURL string `toml:"broker_url"`
	ClientID  string `toml:"client_id"`
	Topic     string `toml:"topic"`
	QoS       int    `toml:"qos"`
	Retained  bool   `toml:"retained"`
}

// Serial configures the optional serial device poller.
type Serial struct {
	Enabled             bool    `toml:"enabled"`
	Port                string  `toml:"port"`
	Baud                int     `toml:"baud"`
	PollIntervalSeconds float64 `toml:"poll_interval_seconds"`
}

// PollInterval returns the device poll cadence as a duration.
func (s Serial) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSeconds * float64(time.Second))
}

// Default returns the configuration used when no file is given.
func Default() *File {
	return &File{
		Log: Log{Level: "INFO"},
		Publisher: Publisher{
			Port:            beacon.DefaultPort + 1,
			ClientPort:      beacon.DefaultPort,
			IntervalSeconds: beacon.DefaultInterval.Seconds(),
		},
		Listener: Listener{
			Port:              beacon.DefaultPort,
			MaxRuntimeSeconds: 300,
			PollTimeoutMS:     50,
		},
		Bridge: Bridge{
			BrokerURL: "tcp://localhost:1883",
			ClientID:  "beaconkit",
			Topic:     "beacons/state",
		},
		Serial: Serial{
			Port:                "/dev/ttyUSB0",
			Baud:                9600,
			PollIntervalSeconds: 1,
		},
	}
}

// Load reads a TOML file over the defaults.
func Load(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(string(content))
}

// Parse decodes TOML content over the defaults.
func Parse(content string) (*File, error) {
	f := Default()
	if _, err := toml.Decode(content, f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks field ranges.
func (f *File) Validate() error {
	if f.Publisher.Port <= 0 || f.Publisher.Port > 65535 {
		return fmt.Errorf("publisher port %d out of range", f.Publisher.Port)
	}
	if f.Publisher.ClientPort <= 0 || f.Publisher.ClientPort > 65535 {
		return fmt.Errorf("publisher client port %d out of range", f.Publisher.ClientPort)
	}
	if f.Listener.Port <= 0 || f.Listener.Port > 65535 {
		return fmt.Errorf("listener port %d out of range", f.Listener.Port)
	}
	if f.Publisher.IntervalSeconds <= 0 {
		return fmt.Errorf("publisher interval must be positive, got %v", f.Publisher.IntervalSeconds)
	}
	if f.Listener.MaxRuntimeSeconds < 0 {
		return fmt.Errorf("listener max runtime cannot be negative, got %v", f.Listener.MaxRuntimeSeconds)
	}
	if f.Listener.MaxMessages < 0 {
		return fmt.Errorf("listener max messages cannot be negative, got %d", f.Listener.MaxMessages)
	}
	if f.Bridge.QoS < 0 || f.Bridge.QoS > 2 {
		return fmt.Errorf("bridge qos %d out of range", f.Bridge.QoS)
	}
	return nil
}
