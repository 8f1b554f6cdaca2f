package stage

import (
	"sync"
	"sync/atomic"

	"github.com/e7canasta/orion-playout/modules/frame"
)

// Ticket is the completion token of one composed frame set.
//
// A ticket starts with one reference owned by the Target. Every component the
// Target hands the frame set to calls Retain, and Release when it is done.
// Releasing the last reference runs onLastRelease exactly once, which
// schedules the next tick of the slot that produced the ticket.
type Ticket struct {
	refs          atomic.Int64
	once          sync.Once
	onLastRelease func()
}

// NewTicket creates a ticket holding one reference.
func NewTicket(onLastRelease func()) *Ticket {
	t := &Ticket{onLastRelease: onLastRelease}
	t.refs.Store(1)
	return t
}

// Retain adds a reference and returns t.
func (t *Ticket) Retain() *Ticket {
	t.refs.Add(1)
	return t
}

// Release drops a reference. Extra releases after the last one are ignored.
func (t *Ticket) Release() {
	if t.refs.Add(-1) != 0 {
		return
	}
	t.once.Do(func() {
		if t.onLastRelease != nil {
			t.onLastRelease()
		}
	})
}

// Refs returns the current reference count.
func (t *Ticket) Refs() int64 {
	return t.refs.Load()
}

// Target receives each tick's frame set. It must eventually release the
// ticket (or hand it to something that does); otherwise the slot stalls.
type Target interface {
	Send(frames map[int]*frame.Frame, ticket *Ticket)
}

// TargetFunc adapts a function to Target.
type TargetFunc func(frames map[int]*frame.Frame, ticket *Ticket)

// Send calls f(frames, ticket).
func (f TargetFunc) Send(frames map[int]*frame.Frame, ticket *Ticket) { f(frames, ticket) }

// LayerConsumer receives a copy of a layer's pulled frame every tick.
// Send must not block; returning false means the frame was dropped.
type LayerConsumer interface {
	Send(f *frame.Frame) bool
}
