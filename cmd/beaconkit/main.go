// Command beaconkit runs the beacon protocol from the command line: a
// broadcasting publisher, a bounded listener session, or a live terminal
// view of a session.
package main

func main() {
	Execute()
}
