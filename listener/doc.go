// Package listener implements the receiving side of the beacon protocol: a
// bounded session that consumes broadcast beacons, suppresses duplicates,
// acknowledges each newly processed beacon back to its sender, and produces
// a summary when the session ends.
//
//	+-----------------------------------------------------------+
//	|                         Listener                          |
//	|                                                           |
//	|  broadcasts --> Receive --> Decode --> ratchet --> ack    |
//	|                               |          |                |
//	|                             (drop)    observers           |
//	|                                          |                |
//	|  bounds: max runtime / max messages --> Summary           |
//	+-----------------------------------------------------------+
//
// # Overview
//
// The listener keeps a single piece of protocol state, the id of the last
// processed beacon, and only acts on beacons whose id is strictly greater.
// Duplicates and reordered stragglers are logged and dropped, so each
// distinct beacon is processed at most once per session. Every processed
// beacon is recorded, fanned out to registered observers, and acknowledged
// with a unicast datagram to the address it arrived from.
//
// A session is bounded by wall-clock runtime, by a message count, or both;
// whichever bound trips first moves the listener from PhaseRunning to
// PhaseExiting, after which Run drains, closes, and returns a Summary.
//
// # Usage
//
//	lst, err := listener.New(listener.Config{
//		Broadcasts: broadcasts,
//		Acks:       acks,
//		MaxRuntime: 2 * time.Minute,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	summary, err := lst.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("%s processed %d beacons\n", summary.ClientID, summary.MessagesReceived)
package listener
