// Package stage implements the per-channel composition actor.
//
// A Stage owns three maps, all touched only from its executor goroutine:
//
//	layers      index -> layer (foreground/background producer + playback state)
//	transforms  index -> tweened transform
//	consumers   index -> token -> sink
//
// Philosophy: "Never block the tick on a slow producer. Drop, repeat, move on."
//
// # Tick loop
//
// SpawnToken starts one self-perpetuating pipeline slot. Each tick pulls one
// frame per layer (in parallel across layers), wraps it with the layer's
// interpolated transform and sends the index -> frame map to the Target with
// a Ticket. Releasing the last reference to that ticket enqueues the next
// tick, so calling SpawnToken k times bounds the pipeline to k outstanding
// frame sets.
//
// # Control
//
// Control operations (Load, Play, SetTransform, SwapLayer, ...) run on the
// executor's High lane and overtake queued ticks. Each returns a future so
// control errors (ErrInvalidIndex, ErrNilProducer, executor.ErrStopped) reach
// the caller; none of them can stall the tick loop.
//
// # Failure
//
// A producer panic stops only its layer. Any other failure while composing a
// tick clears every layer and the slot keeps ticking on an empty layer set.
//
// # Cross-stage swaps
//
// SwapLayer/SwapLayers with another stage run a task on one stage's executor
// that blocks on the other's. Executors are always taken in the same global
// order (lower channel index first, then creation order), so two stages
// swapping with each other concurrently cannot deadlock.
package stage
