// Package frame defines the frame, transform and video format types shared by
// producers, the stage and the channel pipeline.
package frame

import (
	"sync/atomic"
	"time"
)

// Kind tags a frame as real content or one of the soft-condition sentinels.
type Kind int

const (
	// KindContent is a regular frame (possibly wrapping children).
	KindContent Kind = iota
	// KindEmpty means "no content this tick".
	KindEmpty
	// KindLate means the source had nothing ready; callers repeat their last frame.
	KindLate
	// KindEOF is the terminal frame returned by a stopped bridge.
	KindEOF
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindLate:
		return "late"
	case KindEOF:
		return "eof"
	default:
		return "content"
	}
}

// Frame is a unit of visual content flowing through the pipeline.
//
// IMMUTABILITY CONTRACT: once a frame has been returned by a producer or sent
// to a consumer, Data and Children MUST NOT be modified. The same *Frame is
// shared by every consumer of a layer. Wrap creates a new frame when a
// per-layer transform has to be attached.
type Frame struct {
	// Data contains the raw image bytes (BGRA). Empty for wrapper frames.
	Data []byte

	// Width of the image in pixels
	Width int

	// Height of the image in pixels
	Height int

	// Transform is applied by the mixer when compositing this frame.
	Transform Transform

	// Children are composited in order beneath this frame's transform.
	Children []*Frame

	// FieldMode is non-progressive for interlaced composites.
	FieldMode FieldMode

	// Seq is a process-wide monotonic sequence number assigned at creation.
	Seq uint64

	// CreatedAt is when the frame was created (monotonic clock reading).
	CreatedAt time.Time

	kind Kind
}

var seq atomic.Uint64

var (
	emptyFrame = &Frame{kind: KindEmpty, Transform: DefaultTransform()}
	lateFrame  = &Frame{kind: KindLate, Transform: DefaultTransform()}
	eofFrame   = &Frame{kind: KindEOF, Transform: DefaultTransform()}
)

// Empty returns the shared "no content" sentinel.
func Empty() *Frame { return emptyFrame }

// Late returns the shared "nothing ready yet" sentinel.
func Late() *Frame { return lateFrame }

// EOF returns the shared terminal sentinel.
func EOF() *Frame { return eofFrame }

// New creates a content frame carrying an image.
func New(data []byte, width, height int) *Frame {
	return &Frame{
		Data:      data,
		Width:     width,
		Height:    height,
		Transform: DefaultTransform(),
		Seq:       seq.Add(1),
		CreatedAt: time.Now(),
	}
}

// Wrap creates a new frame whose only child is src, with a neutral transform.
// A nil src is treated as Empty.
func Wrap(src *Frame) *Frame {
	if src == nil {
		src = emptyFrame
	}
	return &Frame{
		Children:  []*Frame{src},
		Transform: DefaultTransform(),
		Seq:       seq.Add(1),
		CreatedAt: time.Now(),
	}
}

// Compose creates a frame whose children are frames, in order.
func Compose(frames ...*Frame) *Frame {
	children := make([]*Frame, 0, len(frames))
	for _, f := range frames {
		if f != nil {
			children = append(children, f)
		}
	}
	return &Frame{
		Children:  children,
		Transform: DefaultTransform(),
		Seq:       seq.Add(1),
		CreatedAt: time.Now(),
	}
}

// Interlace combines two field frames into one. For progressive mode, or when
// both fields are the same frame, f1 is returned as is.
func Interlace(f1, f2 *Frame, mode FieldMode) *Frame {
	if mode == Progressive || f1 == f2 {
		return f1
	}
	out := Compose(f1, f2)
	out.FieldMode = mode
	return out
}

// Kind returns the frame tag. A nil frame is Empty.
func (f *Frame) Kind() Kind {
	if f == nil {
		return KindEmpty
	}
	return f.kind
}

// IsEmpty reports whether f is nil or the Empty sentinel.
func (f *Frame) IsEmpty() bool { return f.Kind() == KindEmpty }

// IsLate reports whether f is the Late sentinel.
func (f *Frame) IsLate() bool { return f.Kind() == KindLate }

// IsEOF reports whether f is the terminal sentinel.
func (f *Frame) IsEOF() bool { return f.Kind() == KindEOF }

// HasContent reports whether f is a real frame (not a sentinel).
func (f *Frame) HasContent() bool { return f.Kind() == KindContent }

// Age returns the time since the frame was created. Zero for sentinels.
func (f *Frame) Age() time.Duration {
	if f == nil || f.CreatedAt.IsZero() {
		return 0
	}
	return time.Since(f.CreatedAt)
}

// Walk calls fn for f and every descendant, depth first.
func (f *Frame) Walk(fn func(*Frame)) {
	if f == nil {
		return
	}
	fn(f)
	for _, c := range f.Children {
		c.Walk(fn)
	}
}
