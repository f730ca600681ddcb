// Package beacon defines the wire model for the beaconkit protocol.
//
// # Overview
//
// A publisher periodically broadcasts a small JSON beacon to every host on
// the local subnet. Each beacon carries a monotonically increasing message
// id, an RFC 3339 timestamp, and the publisher's current operational state.
// Listeners acknowledge accepted beacons with a short text payload sent
// back to the beacon's source address.
//
// # Wire Format
//
// Beacon (broadcast, UTF-8 JSON):
//
//	{"message_id": 7, "timestamp": "2026-01-02T15:04:05Z", "state": "ACTIVE"}
//
// Acknowledgment (unicast, opaque UTF-8 text):
//
//	Client a1b2c3d4 received message 7
//
// Missing or unknown beacon fields decode to sentinel values ("unknown",
// -1) rather than failing. Payloads that are not valid UTF-8 JSON produce
// a *DecodeError.
package beacon
