// Package framebus fans a channel's composited output out to its consumers.
//
// # Overview
//
// A channel publishes one composite frame per tick. Consumers attach either
// as a Go channel or as a Sink (a frame bridge feeding another channel, a
// preview tap). The key design principle is:
//
//	"Drop frames, never queue. Latency > Completeness."
//
// When a consumer cannot take a frame, the frame is dropped for that consumer
// and counted in stats. Publish never blocks the channel output.
//
// # Basic Usage
//
//	bus := framebus.New()
//	defer bus.Close()
//
//	previewCh := make(chan *frame.Frame, 2)
//	bus.Subscribe("preview", previewCh)
//	bus.SubscribeSink("channel-2-route", bridge)
//
//	bus.Publish(composite)
//
// # Synchronisation clock
//
// A Sink that also implements SyncClock and reports true (a hardware output
// card) paces the channel. HasSyncClock reports whether any such consumer is
// attached; without one the channel output paces itself to the format rate.
//
// # Thread Safety
//
// All operations are safe for concurrent use. Subscribe/Unsubscribe can be
// called while publishing and Stats() from any goroutine.
package framebus

// New creates a new bus.
func New() Bus {
	return newBus()
}
