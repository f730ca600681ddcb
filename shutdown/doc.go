// Package shutdown coordinates the orderly teardown of a beacon process.
//
//	SIGINT/SIGTERM --> cancel session contexts --> run cleanup handlers
//
// # Overview
//
// A Coordinator hands out contexts derived through Context; publisher and
// listener sessions run under them. When a signal arrives, or when Shutdown
// is called directly, every derived context is canceled so sessions wind
// down through their normal exit path, and then the registered cleanup
// handlers run in reverse registration order under a deadline. A handler
// that fails is logged and does not stop the rest of the teardown.
//
// # Usage
//
//	coord := shutdown.NewCoordinator(10 * time.Second)
//	coord.HandleSignals()
//
//	coord.RegisterFunc("mqtt bridge", func(ctx context.Context) error {
//		bridge.Close()
//		return nil
//	})
//
//	summary, err := lst.Run(coord.Context(context.Background()))
package shutdown
