package framebus

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/e7canasta/orion-playout/modules/frame"
)

// Bus distributes frames to multiple consumers with drop policy.
type Bus interface {
	// Subscribe registers a channel to receive frames.
	// Returns error if id already exists or if bus is closed.
	Subscribe(id string, ch chan<- *frame.Frame) error

	// SubscribeSink registers a Sink to receive frames.
	// Returns error if id already exists or if bus is closed.
	SubscribeSink(id string, sink Sink) error

	// Unsubscribe removes a consumer by id.
	Unsubscribe(id string) error

	// Publish sends f to all consumers (non-blocking).
	// Drops f for consumers that cannot take it. No-op once closed.
	Publish(f *frame.Frame)

	// HasSyncClock reports whether any consumer paces the channel.
	HasSyncClock() bool

	// Consumers returns the subscribed ids, sorted.
	Consumers() []string

	// Stats returns current bus statistics snapshot.
	Stats() BusStats

	// Close stops the bus. Subscribe/Unsubscribe then return ErrBusClosed.
	Close() error
}

// Sink is a consumer that takes frames by call. Send must not block and
// returns false when the frame was dropped.
type Sink interface {
	Send(f *frame.Frame) bool
}

// SyncClock is implemented by sinks that may own the channel's clock.
type SyncClock interface {
	HasSyncClock() bool
}

var (
	// ErrSubscriberExists is returned when Subscribe is called with a duplicate id.
	ErrSubscriberExists = errors.New("framebus: consumer id already exists")

	// ErrSubscriberNotFound is returned when Unsubscribe is called with unknown id.
	ErrSubscriberNotFound = errors.New("framebus: consumer id not found")

	// ErrBusClosed is returned when operations are attempted on a closed bus.
	ErrBusClosed = errors.New("framebus: bus is closed")

	// ErrNilConsumer is returned for a nil channel or sink.
	ErrNilConsumer = errors.New("framebus: nil consumer")
)

// BusStats contains global and per-consumer metrics.
type BusStats struct {
	// TotalPublished is the number of Publish() calls
	TotalPublished uint64

	// TotalSent is the sum of frames delivered to all consumers
	TotalSent uint64

	// TotalDropped is the sum of frames dropped across all consumers
	TotalDropped uint64

	// Subscribers contains per-consumer breakdown
	Subscribers map[string]SubscriberStats
}

// SubscriberStats tracks metrics for a single consumer.
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
}

// consumer is either a channel or a sink.
type consumer struct {
	ch      chan<- *frame.Frame
	sink    Sink
	sent    atomic.Uint64
	dropped atomic.Uint64
}

func (c *consumer) deliver(f *frame.Frame) {
	ok := false
	if c.sink != nil {
		ok = c.sink.Send(f)
	} else {
		select {
		case c.ch <- f:
			ok = true
		default:
		}
	}
	if ok {
		c.sent.Add(1)
	} else {
		c.dropped.Add(1)
	}
}

func (c *consumer) hasSyncClock() bool {
	sc, ok := c.sink.(SyncClock)
	return ok && sc.HasSyncClock()
}

type bus struct {
	mu        sync.RWMutex
	consumers map[string]*consumer
	closed    bool

	// Global counter (atomic - no lock needed in Publish)
	totalPublished atomic.Uint64
}

func newBus() *bus {
	return &bus{consumers: make(map[string]*consumer)}
}

func (b *bus) Subscribe(id string, ch chan<- *frame.Frame) error {
	if ch == nil {
		return ErrNilConsumer
	}
	return b.add(id, &consumer{ch: ch})
}

func (b *bus) SubscribeSink(id string, sink Sink) error {
	if sink == nil {
		return ErrNilConsumer
	}
	return b.add(id, &consumer{sink: sink})
}

func (b *bus) add(id string, c *consumer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.consumers[id]; exists {
		return ErrSubscriberExists
	}
	b.consumers[id] = c
	return nil
}

func (b *bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.consumers[id]; !exists {
		return ErrSubscriberNotFound
	}
	delete(b.consumers, id)
	return nil
}

// Publish delivers f to every consumer. Sinks are called synchronously
// under the read lock; they must not call back into the bus.
func (b *bus) Publish(f *frame.Frame) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	b.totalPublished.Add(1)

	for _, c := range b.consumers {
		c.deliver(f)
	}
}

func (b *bus) HasSyncClock() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, c := range b.consumers {
		if c.hasSyncClock() {
			return true
		}
	}
	return false
}

func (b *bus) Consumers() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]string, 0, len(b.consumers))
	for id := range b.consumers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stats returns a snapshot. Concurrent Publish calls may increment counters
// after Stats returns.
func (b *bus) Stats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := BusStats{
		TotalPublished: b.totalPublished.Load(),
		Subscribers:    make(map[string]SubscriberStats, len(b.consumers)),
	}
	for id, c := range b.consumers {
		sent, dropped := c.sent.Load(), c.dropped.Load()
		result.TotalSent += sent
		result.TotalDropped += dropped
		result.Subscribers[id] = SubscriberStats{Sent: sent, Dropped: dropped}
	}
	return result
}

// Close is idempotent. Consumer channels are not closed; that is the
// consumer's responsibility.
func (b *bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	return nil
}
