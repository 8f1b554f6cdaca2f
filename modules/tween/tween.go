// Package tween interpolates values across a fixed number of ticks using a
// named easing curve.
package tween

// Interpolator is implemented by values that can be blended toward a
// destination. progress is the eased position, 0 at source and 1 at dest;
// some easings (back, elastic) overshoot outside [0,1].
type Interpolator[T any] interface {
	Interpolate(dest T, progress float64) T
}

// Tweened holds a transition from source to dest over duration ticks.
//
// Invariant: 0 <= elapsed <= duration. Fetch returns dest exactly once
// elapsed reaches duration and source exactly at elapsed 0.
type Tweened[T Interpolator[T]] struct {
	source   T
	dest     T
	duration int
	elapsed  int
	easing   string
	fn       Easing
}

// New creates a tween from source to dest over duration ticks. Unknown easing
// names fall back to linear. A non-positive duration jumps straight to dest.
func New[T Interpolator[T]](source, dest T, duration int, easing string) Tweened[T] {
	if duration < 0 {
		duration = 0
	}
	fn, ok := Lookup(easing)
	if !ok {
		easing = DefaultEasing
	}
	return Tweened[T]{
		source:   source,
		dest:     dest,
		duration: duration,
		easing:   easing,
		fn:       fn,
	}
}

// Identity is a zero-duration tween that always yields v.
func Identity[T Interpolator[T]](v T) Tweened[T] {
	return New(v, v, 0, DefaultEasing)
}

// Source returns the starting value.
func (t *Tweened[T]) Source() T { return t.source }

// Dest returns the destination value.
func (t *Tweened[T]) Dest() T { return t.dest }

// Duration returns the tween length in ticks.
func (t *Tweened[T]) Duration() int { return t.duration }

// Elapsed returns the ticks advanced so far.
func (t *Tweened[T]) Elapsed() int { return t.elapsed }

// Easing returns the resolved easing name.
func (t *Tweened[T]) Easing() string { return t.easing }

// Done reports whether the tween reached its destination.
func (t *Tweened[T]) Done() bool { return t.elapsed >= t.duration }

// Fetch returns the interpolated value at the current tick. Pure.
func (t *Tweened[T]) Fetch() T {
	if t.elapsed >= t.duration {
		return t.dest
	}
	if t.elapsed == 0 {
		return t.source
	}
	fn := t.fn
	if fn == nil {
		fn, _ = Lookup(DefaultEasing)
	}
	progress := fn(float64(t.elapsed) / float64(t.duration))
	return t.source.Interpolate(t.dest, progress)
}

// FetchAndTick advances n ticks (clamped to the duration) and returns Fetch().
// Interlaced channels pass n=2 to advance both fields of a frame at once.
func (t *Tweened[T]) FetchAndTick(n int) T {
	if n > 0 {
		t.elapsed += n
		if t.elapsed > t.duration {
			t.elapsed = t.duration
		}
	}
	return t.Fetch()
}
