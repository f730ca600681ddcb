// Package bridge republishes processed beacons to an MQTT broker, letting
// dashboards and other subscribers watch a beacon session without joining
// the UDP broadcast domain.
//
//	listener --> HandleBeacon --> JSON payload --> MQTT topic
//
// Publish failures are logged and swallowed: the bridge observes a session,
// it never gets to break one.
package bridge
