// Package publisher implements the broadcast side of the beaconkit
// protocol.
//
// # Overview
//
// A Publisher announces a cycling operational state to every listener on
// the subnet at a fixed cadence. Each announcement carries a fresh,
// strictly increasing message id. Listeners acknowledge directly back to
// the publisher's port; acks are observational only and never gate the
// broadcast cadence.
//
//	┌───────────┐   UDP broadcast (beacon)   ┌────────────┐
//	│ Publisher │ ─────────────────────────> │ Listeners  │
//	│           │ <───────────────────────── │            │
//	└───────────┘   UDP unicast (acks)       └────────────┘
//
// # Usage
//
//	pub, _ := publisher.New(publisher.Config{
//	    Beacons:       beacons,
//	    Acks:          acks,
//	    BroadcastAddr: "192.168.1.255:37020",
//	})
//	pub.Start(ctx)
//	defer pub.Stop()
//
// # State Cycle
//
// ACTIVE → STANDBY → MAINTENANCE → ERROR → ACTIVE → …, one step per
// tick, independent of any external input.
package publisher
