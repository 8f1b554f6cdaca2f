package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
)

var (
	// ErrStopped is returned when a task is submitted to (or still queued on)
	// an executor that has been stopped. The task never runs.
	ErrStopped = errors.New("executor: stopped")

	// ErrTaskPanicked wraps the recovered value of a task that panicked.
	ErrTaskPanicked = errors.New("executor: task panicked")
)

// Priority selects the lane a task is queued on.
type Priority int

const (
	// Normal is the lane used by self-rescheduling work (stage ticks).
	Normal Priority = iota
	// High tasks are always drained before any pending Normal task.
	High
)

// String returns the lane name.
func (p Priority) String() string {
	switch p {
	case High:
		return "high"
	default:
		return "normal"
	}
}

// task is a queued unit of work.
// fail is called instead of run when the executor stops before the task starts.
type task struct {
	run  func()
	fail func(error)
}

// Executor is a serialized task queue drained by exactly one worker goroutine.
//
// Ordering:
//   - High tasks strictly precede every queued Normal task not yet started
//   - FIFO within a lane
//
// Lifecycle: New() → BeginInvoke()/Submit()/Invoke() → Stop()
//
// Thread-safety: all methods are safe for concurrent use. Tasks themselves run
// one at a time on the worker goroutine, which gives the state they touch
// single-writer semantics without locks.
//
// Nesting: a task running on executor A may Invoke on executor B. Callers must
// make sure no cycle of blocking invokes exists between A and B (see
// stage.SwapLayer for the lock ordering rule used by stages).
type Executor struct {
	name   string
	logger *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	high    []task
	normal  []task
	running atomic.Bool

	workerID atomic.Uint64
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for panics in fire-and-forget tasks.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an executor and starts its worker goroutine.
func New(name string, opts ...Option) *Executor {
	e := &Executor{
		name:   name,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("executor", name)
	e.cond = sync.NewCond(&e.mu)
	e.running.Store(true)

	go e.run()

	return e
}

// Name returns the executor name given to New.
func (e *Executor) Name() string {
	return e.name
}

// IsRunning reports whether the executor still accepts tasks.
// It turns false as soon as Stop is called.
func (e *Executor) IsRunning() bool {
	return e.running.Load()
}

// IsCurrent reports whether the caller runs on this executor's worker goroutine.
func (e *Executor) IsCurrent() bool {
	id := e.workerID.Load()
	return id != 0 && id == goroutineID()
}

// Len returns the number of queued tasks (both lanes).
func (e *Executor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.high) + len(e.normal)
}

// BeginInvoke enqueues fn and returns immediately.
//
// Returns ErrStopped (and never runs fn) if the executor is stopped.
// A panic inside fn is recovered and logged; the worker keeps draining.
func (e *Executor) BeginInvoke(fn func(), prio Priority) error {
	return e.enqueue(task{run: func() { e.safeExecute(fn) }}, prio)
}

// BeginInvokeOr is BeginInvoke with a discard hook: if the executor stops
// while fn is still queued, onStop runs (on the worker) with ErrStopped
// instead of fn. When ErrStopped is returned neither fn nor onStop runs.
func (e *Executor) BeginInvokeOr(fn func(), prio Priority, onStop func(error)) error {
	return e.enqueue(task{run: func() { e.safeExecute(fn) }, fail: onStop}, prio)
}

// Invoke enqueues fn and blocks until it has run, returning its error.
//
// When called from the executor's own worker goroutine fn runs inline.
// If ctx is done before fn completes, ctx.Err() is returned; fn still runs.
func (e *Executor) Invoke(ctx context.Context, prio Priority, fn func() error) error {
	_, err := Invoke(ctx, e, prio, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Submit enqueues fn and returns a Future for its result.
// On a stopped executor the returned future is already failed with ErrStopped.
func Submit[T any](e *Executor, prio Priority, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()

	err := e.enqueue(task{
		run: func() {
			v, err := call(fn)
			f.resolve(v, err)
		},
		fail: func(err error) {
			var zero T
			f.resolve(zero, err)
		},
	}, prio)
	if err != nil {
		var zero T
		f.resolve(zero, err)
	}

	return f
}

// Invoke is the typed blocking counterpart of Submit.
func Invoke[T any](ctx context.Context, e *Executor, prio Priority, fn func() (T, error)) (T, error) {
	if e.IsCurrent() {
		return call(fn)
	}
	return Submit(e, prio, fn).Wait(ctx)
}

// Stop marks the executor as stopped, wakes the worker and waits for it to
// exit. Tasks still queued are discarded: their futures fail with ErrStopped.
//
// Idempotent. Safe to call from a task running on this executor (it then
// returns without waiting for the worker).
func (e *Executor) Stop() {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		e.running.Store(false)
		e.cond.Broadcast()
		e.mu.Unlock()
	})

	if e.IsCurrent() {
		return
	}
	<-e.done
}

func (e *Executor) enqueue(t task, prio Priority) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running.Load() {
		return ErrStopped
	}

	if prio == High {
		e.high = append(e.high, t)
	} else {
		e.normal = append(e.normal, t)
	}
	e.cond.Signal()

	return nil
}

func (e *Executor) run() {
	defer close(e.done)

	e.workerID.Store(goroutineID())

	for {
		e.mu.Lock()
		for len(e.high) == 0 && len(e.normal) == 0 && e.running.Load() {
			e.cond.Wait()
		}

		if !e.running.Load() {
			pending := append(e.high, e.normal...)
			e.high, e.normal = nil, nil
			e.mu.Unlock()

			for _, t := range pending {
				if t.fail != nil {
					t.fail(ErrStopped)
				}
			}
			if len(pending) > 0 {
				e.logger.Debug("executor stopped with pending tasks", "discarded", len(pending))
			}
			return
		}

		var t task
		if len(e.high) > 0 {
			t = e.high[0]
			e.high[0] = task{}
			e.high = e.high[1:]
		} else {
			t = e.normal[0]
			e.normal[0] = task{}
			e.normal = e.normal[1:]
		}
		e.mu.Unlock()

		t.run()
	}
}

// safeExecute runs a fire-and-forget task; a panic is logged and swallowed.
func (e *Executor) safeExecute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("task panicked", "panic", r)
		}
	}()

	fn()
}

func call[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()

	return fn()
}

// goroutineID returns the current goroutine's id, parsed from the stack header
// ("goroutine NNN [..."). Only used for re-entrancy detection.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
