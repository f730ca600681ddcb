package serialpoll

import (
	"io"
	"testing"
	"time"

	"github.com/vinayprograms/beaconkit/logging"
)

func testLogger() *logging.Logger {
	log := logging.New().WithComponent("serial")
	log.SetOutput(io.Discard)
	return log
}

// fakeDevice replays queued chunks, one per read, then reports empty reads.
type fakeDevice struct {
	chunks [][]byte
	closed bool
}

func (d *fakeDevice) Read(p []byte) (int, error) {
	if len(d.chunks) == 0 {
		return 0, nil
	}
	n := copy(p, d.chunks[0])
	d.chunks = d.chunks[1:]
	return n, nil
}

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

// --- Unit Tests ---

func TestPoller_UnavailableDeviceIsNoOp(t *testing.T) {
	p := newWithDevice(nil, time.Second, testLogger())

	if p.Available() {
		t.Error("Available = true for nil device")
	}
	if _, ok := p.Poll(time.Now()); ok {
		t.Error("Poll on unavailable device returned data")
	}
}

func TestPoller_IntervalGate(t *testing.T) {
	dev := &fakeDevice{chunks: [][]byte{{0x01}, {0x02}}}
	p := newWithDevice(dev, time.Second, testLogger())

	now := time.Now()
	if _, ok := p.Poll(now); ok {
		t.Error("first poll should only stamp the clock")
	}
	if _, ok := p.Poll(now.Add(500 * time.Millisecond)); ok {
		t.Error("poll inside the interval should not read")
	}
	if _, ok := p.Poll(now.Add(time.Second)); !ok {
		t.Error("poll at the interval should read")
	}
}

func TestPoller_RecordsEntriesWithJitter(t *testing.T) {
	dev := &fakeDevice{chunks: [][]byte{{0xde, 0xad}, {0xbe, 0xef}}}
	p := newWithDevice(dev, time.Second, testLogger())

	now := time.Now()
	p.Poll(now)
	entry, ok := p.Poll(now.Add(1010 * time.Millisecond))
	if !ok {
		t.Fatal("expected a recorded entry")
	}
	if entry.Hex != "dead" {
		t.Errorf("Hex = %q, want %q", entry.Hex, "dead")
	}
	if entry.JitterMS < 9.9 || entry.JitterMS > 10.1 {
		t.Errorf("JitterMS = %v, want ~10", entry.JitterMS)
	}

	p.Poll(now.Add(2010 * time.Millisecond))
	entries := p.Entries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[1].Hex != "beef" {
		t.Errorf("second entry Hex = %q, want %q", entries[1].Hex, "beef")
	}
}

func TestPoller_EmptyReadNotRecorded(t *testing.T) {
	dev := &fakeDevice{}
	p := newWithDevice(dev, time.Second, testLogger())

	now := time.Now()
	p.Poll(now)
	if _, ok := p.Poll(now.Add(time.Second)); ok {
		t.Error("empty read was recorded")
	}
	if len(p.Entries()) != 0 {
		t.Errorf("entries = %d, want 0", len(p.Entries()))
	}
}

func TestPoller_AvgJitterMS(t *testing.T) {
	dev := &fakeDevice{chunks: [][]byte{{0x01}, {0x02}}}
	p := newWithDevice(dev, time.Second, testLogger())

	now := time.Now()
	p.Poll(now)
	p.Poll(now.Add(1010 * time.Millisecond)) // +10ms
	p.Poll(now.Add(2040 * time.Millisecond)) // +30ms

	avg := p.AvgJitterMS()
	if avg < 19.9 || avg > 20.1 {
		t.Errorf("AvgJitterMS = %v, want ~20", avg)
	}
}

func TestPoller_TickFuncNeverStopsSession(t *testing.T) {
	dev := &fakeDevice{chunks: [][]byte{{0x01}}}
	p := newWithDevice(dev, time.Millisecond, testLogger())

	tick := p.TickFunc()
	for i := 0; i < 5; i++ {
		if !tick(nil, time.Duration(i)*time.Second, i) {
			t.Fatalf("tick %d requested session stop", i)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if len(p.Entries()) == 0 {
		t.Error("tick hook never drained the device")
	}
}

func TestPoller_Close(t *testing.T) {
	dev := &fakeDevice{}
	p := newWithDevice(dev, time.Second, testLogger())

	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if !dev.closed {
		t.Error("device not closed")
	}
	if p.Available() {
		t.Error("Available = true after Close")
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close error: %v", err)
	}
}

var _ io.ReadCloser = (*fakeDevice)(nil)
