// Package track follows the state a publisher reports across beacons and
// counts completed trips through the expected state cycle.
//
//	UNKNOWN --> ACTIVE --> STANDBY --> MAINTENANCE --> ERROR
//	               ^                                     |
//	               +------------- loop complete ---------+
//
// # Overview
//
// A Tracker starts in the unknown state and moves to whatever valid state
// each beacon reports. Transitions are recorded with timestamps. On top of
// the raw transitions the tracker watches for the canonical cycle
// ACTIVE, STANDBY, MAINTENANCE, ERROR and back to ACTIVE: each time the
// observed transitions walk that sequence without deviation the loop count
// increments. An out-of-sequence transition resets loop progress, and a
// jump back to ACTIVE starts a fresh candidate loop.
//
// Tracker implements listener.BeaconObserver, so it can be attached
// directly to a listener session.
//
// # Usage
//
//	trk := track.New()
//	lst, err := listener.New(listener.Config{
//		Broadcasts: broadcasts,
//		Observers:  []listener.BeaconObserver{trk},
//	})
//	...
//	fmt.Printf("observed %d complete loops\n", trk.LoopCount())
package track
