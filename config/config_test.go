package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// --- Unit Tests ---

func TestParse_Defaults(t *testing.T) {
	f, err := Parse("")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if f.Publisher.Port != 37021 {
		t.Errorf("Publisher.Port = %d, want 37021", f.Publisher.Port)
	}
	if f.Publisher.ClientPort != 37020 {
		t.Errorf("Publisher.ClientPort = %d, want 37020", f.Publisher.ClientPort)
	}
	if got := f.Publisher.Interval(); got != 5*time.Second {
		t.Errorf("Publisher.Interval = %v, want 5s", got)
	}
	if got := f.Listener.MaxRuntime(); got != 300*time.Second {
		t.Errorf("Listener.MaxRuntime = %v, want 300s", got)
	}
	if got := f.Listener.PollTimeout(); got != 50*time.Millisecond {
		t.Errorf("Listener.PollTimeout = %v, want 50ms", got)
	}
	if f.Bridge.Enabled || f.Serial.Enabled {
		t.Error("optional components enabled by default")
	}
}

func TestParse_Overrides(t *testing.T) {
	content := `
[log]
level = "DEBUG"

[publisher]
port = 45000
interval_seconds = 0.5

[listener]
max_runtime_seconds = 30
max_messages = 10

[bridge]
enabled = true
broker_url = "tcp://broker:1883"
topic = "lab/state"

[serial]
enabled = true
port = "/dev/ttyACM0"
`
	f, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if f.Log.Level != "DEBUG" {
		t.Errorf("Log.Level = %q, want DEBUG", f.Log.Level)
	}
	if f.Publisher.Port != 45000 {
		t.Errorf("Publisher.Port = %d, want 45000", f.Publisher.Port)
	}
	if got := f.Publisher.Interval(); got != 500*time.Millisecond {
		t.Errorf("Publisher.Interval = %v, want 500ms", got)
	}
	// Untouched fields keep their defaults.
	if f.Publisher.ClientPort != 37020 {
		t.Errorf("Publisher.ClientPort = %d, want 37020", f.Publisher.ClientPort)
	}
	if f.Listener.MaxMessages != 10 {
		t.Errorf("Listener.MaxMessages = %d, want 10", f.Listener.MaxMessages)
	}
	if !f.Bridge.Enabled || f.Bridge.Topic != "lab/state" {
		t.Errorf("Bridge = %+v", f.Bridge)
	}
	if !f.Serial.Enabled || f.Serial.Port != "/dev/ttyACM0" {
		t.Errorf("Serial = %+v", f.Serial)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", "[publisher\nport = 1"},
		{"port out of range", "[publisher]\nport = 99999"},
		{"zero interval", "[publisher]\ninterval_seconds = 0"},
		{"negative runtime", "[listener]\nmax_runtime_seconds = -1"},
		{"bad qos", "[bridge]\nqos = 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.content); err == nil {
				t.Error("Parse succeeded, want error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beaconkit.toml")
	if err := os.WriteFile(path, []byte("[listener]\nmax_messages = 7\n"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if f.Listener.MaxMessages != 7 {
		t.Errorf("MaxMessages = %d, want 7", f.Listener.MaxMessages)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load of missing file succeeded, want error")
	}
}
