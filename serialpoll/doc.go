// Package serialpoll drains a serial device at a fixed cadence from inside
// a listener session's event loop, without blocking beacon reception.
//
//	listener loop tick --> Poller.Poll --> read device --> Entry log
//	                            |
//	                      (interval gate, jitter measurement)
//
// # Overview
//
// The poller piggybacks on the listener's per-iteration tick hook: each
// tick it checks whether the poll interval has elapsed, and if so reads
// whatever the device has buffered using a short read timeout. Every read
// is logged with its payload in hex and the measured scheduling jitter; a
// jitter above a few milliseconds is worth noticing because the listener
// loop paces the polls.
//
// A missing or unopenable device degrades the poller to a no-op with a
// warning, so a session configured for serial capture still listens for
// beacons normally.
//
// # Usage
//
//	poller := serialpoll.New(serialpoll.Config{Port: "/dev/ttyUSB0", Baud: 9600})
//	defer poller.Close()
//
//	lst, err := listener.New(listener.Config{
//		Broadcasts: broadcasts,
//		OnTick:     poller.TickFunc(),
//	})
package serialpoll
