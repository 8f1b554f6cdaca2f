// Package producer defines the layer content source contract pulled by the
// stage once per tick, plus a couple of built-in sources.
package producer

import (
	"errors"

	"github.com/e7canasta/orion-playout/modules/frame"
)

// Hints are per-tick rendering requests derived from a layer's transform.
type Hints int

const (
	HintNone        Hints = 0
	HintDeinterlace Hints = 1 << 0
	HintAlpha       Hints = 1 << 1
)

// Has reports whether every bit of h2 is set in h.
func (h Hints) Has(h2 Hints) bool { return h&h2 == h2 }

// String renders the hint set for logs.
func (h Hints) String() string {
	switch {
	case h == HintNone:
		return "none"
	case h.Has(HintDeinterlace | HintAlpha):
		return "deinterlace|alpha"
	case h.Has(HintDeinterlace):
		return "deinterlace"
	case h.Has(HintAlpha):
		return "alpha"
	default:
		return "unknown"
	}
}

// Info is the generic nested key-value tree returned by info queries.
type Info = map[string]any

// ErrNotCallable is returned by Call when a producer does not accept calls.
var ErrNotCallable = errors.New("producer: call not supported")

// Producer is a layer content source.
//
// Receive must return promptly: the whole stage tick waits for it. A source
// with nothing ready returns frame.Late(); the layer then repeats LastFrame().
type Producer interface {
	Receive(hints Hints) *frame.Frame
	LastFrame() *frame.Frame
	Name() string
	Info() Info
}

// FrameCounter is implemented by finite sources (clips). Used by auto-play.
type FrameCounter interface {
	NbFrames() int64
}

// Pausable is implemented by sources that keep their own clock.
type Pausable interface {
	SetPaused(paused bool)
}

// Caller is implemented by sources that accept out-of-band parameters.
type Caller interface {
	Call(param string) (string, error)
}

// NbFrames returns p's frame count, or -1 when p is unbounded.
func NbFrames(p Producer) int64 {
	if fc, ok := p.(FrameCounter); ok {
		return fc.NbFrames()
	}
	return -1
}

// Call forwards param to p if it is a Caller.
func Call(p Producer, param string) (string, error) {
	c, ok := p.(Caller)
	if !ok {
		return "", ErrNotCallable
	}
	return c.Call(param)
}

type emptyProducer struct{}

var empty Producer = emptyProducer{}

// Empty returns the null producer. It never yields content.
func Empty() Producer { return empty }

// IsEmpty reports whether p is nil or the null producer.
func IsEmpty(p Producer) bool {
	return p == nil || p == empty
}

func (emptyProducer) Receive(Hints) *frame.Frame { return frame.Empty() }
func (emptyProducer) LastFrame() *frame.Frame    { return frame.Empty() }
func (emptyProducer) Name() string               { return "empty" }
func (emptyProducer) Info() Info                 { return Info{"type": "empty-producer"} }
