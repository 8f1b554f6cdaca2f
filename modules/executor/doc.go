// Package executor implements the single-writer task queue every stage and
// channel component funnels its mutations through.
//
// Philosophy: "One goroutine owns the state. Everyone else sends it work."
//
// Design:
//   - Exactly one worker goroutine per Executor
//   - Two lanes: High (control commands) overtakes Normal (ticks)
//   - FIFO within a lane
//   - Fire-and-forget (BeginInvoke), future (Submit) and blocking (Invoke) submission
//   - Panics are recovered at the task boundary and never halt the worker
//
// Basic usage:
//
//	exec := executor.New("stage 1")
//	defer exec.Stop()
//
//	exec.BeginInvoke(func() { tick() }, executor.Normal)
//
//	n, err := executor.Invoke(ctx, exec, executor.High, func() (int, error) {
//	    return len(layers), nil
//	})
//
// Stop semantics: after Stop, BeginInvoke returns ErrStopped, Submit returns a
// failed future and tasks still queued are discarded with ErrStopped. Nothing
// deadlocks waiting on a stopped executor.
package executor
