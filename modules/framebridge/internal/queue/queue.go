package queue

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/orion-playout/modules/frame"
)

// Stats is a counter snapshot.
type Stats struct {
	Sent     uint64
	Dropped  uint64
	Received uint64
	Late     uint64
	Queued   int
	Capacity int
	Stopped  bool
}

// Queue is a bounded frame queue with a one-shot first-frame barrier.
//
// Push never blocks: a full queue rejects the new frame (the queue is not
// drained to make room). Pop never blocks: an empty queue yields
// frame.Late(), a stopped one frame.EOF().
type Queue struct {
	mu       sync.Mutex
	items    []*frame.Frame
	capacity int
	stopped  bool

	first     chan struct{}
	firstOnce sync.Once
	stop      chan struct{}
	stopOnce  sync.Once

	ageMillis atomic.Int64
	sent      atomic.Uint64
	dropped   atomic.Uint64
	received  atomic.Uint64
	late      atomic.Uint64
}

// New creates a queue holding at most capacity frames (minimum 1).
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		items:    make([]*frame.Frame, 0, capacity),
		capacity: capacity,
		first:    make(chan struct{}),
		stop:     make(chan struct{}),
	}
}

// Push appends f unless the queue is full or stopped. The first accepted
// frame opens the barrier.
func (q *Queue) Push(f *frame.Frame) bool {
	if f == nil {
		return false
	}

	q.mu.Lock()
	if q.stopped || len(q.items) >= q.capacity {
		q.mu.Unlock()
		q.dropped.Add(1)
		return false
	}
	q.items = append(q.items, f)
	q.mu.Unlock()

	q.sent.Add(1)
	q.firstOnce.Do(func() { close(q.first) })
	return true
}

// Pop removes the oldest frame.
func (q *Queue) Pop() *frame.Frame {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return frame.EOF()
	}
	if len(q.items) == 0 {
		q.mu.Unlock()
		q.late.Add(1)
		return frame.Late()
	}
	f := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	q.mu.Unlock()

	q.received.Add(1)
	q.ageMillis.Store(f.Age().Milliseconds())
	return f
}

// WaitFirst blocks until the first frame was pushed, the queue is stopped or
// timeout elapses. It reports whether a frame arrived.
func (q *Queue) WaitFirst(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-q.first:
		return true
	case <-q.stop:
		return false
	case <-timer.C:
		return false
	}
}

// Stop closes the queue. Queued frames are discarded.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.stopped = true
		q.items = nil
		q.mu.Unlock()
		close(q.stop)
	})
}

// Stopped reports whether Stop was called.
func (q *Queue) Stopped() bool {
	select {
	case <-q.stop:
		return true
	default:
		return false
	}
}

// AgeMillis returns the age of the last popped frame when it was popped.
func (q *Queue) AgeMillis() int64 {
	return q.ageMillis.Load()
}

// Stats returns a snapshot of the counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	queued, stopped := len(q.items), q.stopped
	q.mu.Unlock()

	return Stats{
		Sent:     q.sent.Load(),
		Dropped:  q.dropped.Load(),
		Received: q.received.Load(),
		Late:     q.late.Load(),
		Queued:   queued,
		Capacity: q.capacity,
		Stopped:  stopped,
	}
}
