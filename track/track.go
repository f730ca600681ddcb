package track

import (
	"sync"
	"time"

	"github.com/vinayprograms/beaconkit/beacon"
	"github.com/vinayprograms/beaconkit/listener"
	"github.com/vinayprograms/beaconkit/logging"
)

// loopSequence is the canonical cycle; ACTIVE appears at both ends because
// a loop only counts once the cycle wraps.
var loopSequence = []beacon.State{
	beacon.StateActive,
	beacon.StateStandby,
	beacon.StateMaintenance,
	beacon.StateError,
	beacon.StateActive,
}

// Result reports what a state update did.
type Result struct {
	// Changed is true when the update moved the tracker to a new state.
	Changed bool
	// LoopCompleted is true when the update finished a full trip through
	// the canonical cycle.
	LoopCompleted bool
}

// Transition is one recorded state change.
type Transition struct {
	Time      time.Time    `json:"time"`
	From      beacon.State `json:"from_state"`
	To        beacon.State `json:"to_state"`
	LoopCount int          `json:"loop_count"`
}

// Tracker is a thread-safe observer of published states. The zero value is
// not usable; create one with New.
type Tracker struct {
	mu         sync.Mutex
	current    beacon.State
	history    []Transition
	lastUpdate time.Time
	loopCount  int
	loopPos    int
	loopActive bool
	log        *logging.Logger
}

// New creates a tracker in the unknown state.
func New() *Tracker {
	return &Tracker{
		current: beacon.StateUnknown,
		log:     logging.New().WithComponent("track"),
	}
}

// Update moves the tracker to state. Invalid states are rejected without a
// transition. Reporting the current state again is accepted but changes
// nothing.
func (t *Tracker) Update(state beacon.State) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !state.Valid() {
		t.log.Warn("invalid state rejected", map[string]interface{}{
			"state": string(state),
		})
		return Result{}
	}
	if state == t.current {
		return Result{}
	}

	from := t.current
	t.current = state
	t.lastUpdate = time.Now()

	// Count the loop first so the transition that closes a cycle is
	// recorded with the new count.
	completed := t.trackLoop(from, state)
	t.history = append(t.history, Transition{
		Time:      t.lastUpdate,
		From:      from,
		To:        state,
		LoopCount: t.loopCount,
	})
	t.log.Debug("state transition", map[string]interface{}{
		"from":           string(from),
		"to":             string(state),
		"loop_completed": completed,
	})
	return Result{Changed: true, LoopCompleted: completed}
}

// trackLoop advances loop progress for the from→to transition and reports
// whether it completed a cycle. Caller holds t.mu.
func (t *Tracker) trackLoop(from, to beacon.State) bool {
	if !t.loopActive {
		if to == loopSequence[0] {
			t.loopActive = true
			t.loopPos = 0
		}
		return false
	}

	expectedFrom := loopSequence[t.loopPos]
	var expectedTo beacon.State
	if t.loopPos+1 < len(loopSequence) {
		expectedTo = loopSequence[t.loopPos+1]
	}

	if from == expectedFrom && to == expectedTo {
		t.loopPos++
		if t.loopPos == len(loopSequence)-1 {
			t.loopCount++
			// The closing ACTIVE also opens the next candidate loop.
			t.loopPos = 0
			t.log.Info("cycle completed", map[string]interface{}{
				"loop_count": t.loopCount,
			})
			return true
		}
		return false
	}

	// Out of sequence. A jump back to the cycle start begins a fresh
	// candidate loop; anything else abandons tracking until the next one.
	if to == loopSequence[0] {
		t.loopActive = true
		t.loopPos = 0
	} else {
		t.loopActive = false
	}
	return false
}

// HandleBeacon implements listener.BeaconObserver.
func (t *Tracker) HandleBeacon(rec listener.Record) {
	t.Update(rec.State)
}

// Current returns the most recently observed state.
func (t *Tracker) Current() beacon.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// LoopCount returns how many complete cycles have been observed.
func (t *Tracker) LoopCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loopCount
}

// LoopProgress reports whether a candidate loop is in flight and how far
// through the cycle it has gotten.
func (t *Tracker) LoopProgress() (inProgress bool, position, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loopActive, t.loopPos, len(loopSequence) - 1
}

// TimeInState returns how long the tracker has been in the current state.
// ok is false before the first transition.
func (t *Tracker) TimeInState() (d time.Duration, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastUpdate.IsZero() {
		return 0, false
	}
	return time.Since(t.lastUpdate), true
}

// History returns the most recent n transitions, or all of them when n <= 0.
func (t *Tracker) History(n int) []Transition {
	t.mu.Lock()
	defer t.mu.Unlock()
	start := 0
	if n > 0 && n < len(t.history) {
		start = len(t.history) - n
	}
	out := make([]Transition, len(t.history)-start)
	copy(out, t.history[start:])
	return out
}
