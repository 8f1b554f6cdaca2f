package stage

import (
	"context"

	"github.com/e7canasta/orion-playout/modules/executor"
	"github.com/e7canasta/orion-playout/modules/frame"
	"github.com/e7canasta/orion-playout/modules/tween"
)

// TransformFunc maps a layer's current destination transform to a new one.
type TransformFunc func(frame.Transform) frame.Transform

// TransformUpdate is one entry of an ApplyTransforms batch.
type TransformUpdate struct {
	Index       int
	Fn          TransformFunc
	MixDuration int
	Tween       string
}

// SetTransform tweens layer index from its current value to t over
// mixDuration ticks.
func (s *Stage) SetTransform(index int, t frame.Transform, mixDuration int, tweenName string) *executor.Future[struct{}] {
	return s.ApplyTransform(index, func(frame.Transform) frame.Transform { return t }, mixDuration, tweenName)
}

// ApplyTransform tweens layer index toward fn(current destination). The
// tween starts at the current interpolated value, so there is no jump.
func (s *Stage) ApplyTransform(index int, fn TransformFunc, mixDuration int, tweenName string) *executor.Future[struct{}] {
	return s.ApplyTransforms([]TransformUpdate{{
		Index:       index,
		Fn:          fn,
		MixDuration: mixDuration,
		Tween:       tweenName,
	}})
}

// ApplyTransforms applies a batch atomically with respect to ticks. The batch
// is validated up front; nothing is applied if any entry is invalid.
func (s *Stage) ApplyTransforms(batch []TransformUpdate) *executor.Future[struct{}] {
	for _, u := range batch {
		if u.Index < 0 {
			return failed(ErrInvalidIndex)
		}
		if u.Fn == nil {
			return failed(ErrNilTransform)
		}
	}
	return s.control(func() error {
		for _, u := range batch {
			s.applyTransform(u)
		}
		return nil
	})
}

func (s *Stage) applyTransform(u TransformUpdate) {
	source := frame.DefaultTransform()
	dest := frame.DefaultTransform()
	if tw, ok := s.transforms[u.Index]; ok {
		source = tw.Fetch()
		dest = tw.Dest()
	}
	t := tween.New(source, u.Fn(dest), u.MixDuration, u.Tween)
	s.transforms[u.Index] = &t
}

// ClearTransforms resets layer index to the neutral transform.
func (s *Stage) ClearTransforms(index int) *executor.Future[struct{}] {
	if index < 0 {
		return failed(ErrInvalidIndex)
	}
	return s.control(func() error {
		delete(s.transforms, index)
		return nil
	})
}

// ClearAllTransforms resets every layer to the neutral transform.
func (s *Stage) ClearAllTransforms() *executor.Future[struct{}] {
	return s.control(func() error {
		s.transforms = make(map[int]*tween.Tweened[frame.Transform])
		return nil
	})
}

// CurrentTransform returns the interpolated transform of layer index now.
func (s *Stage) CurrentTransform(ctx context.Context, index int) (frame.Transform, error) {
	if index < 0 {
		return frame.Transform{}, ErrInvalidIndex
	}
	return executor.Invoke(ctx, s.exec, executor.High, func() (frame.Transform, error) {
		if tw, ok := s.transforms[index]; ok {
			return tw.Fetch(), nil
		}
		return frame.DefaultTransform(), nil
	})
}

// TweenState is a snapshot of a layer's transform tween.
type TweenState struct {
	Source   frame.Transform
	Dest     frame.Transform
	Duration int
	Elapsed  int
	Easing   string
}

// Tween returns the tween state of layer index. ok is false when the layer
// has no transform.
func (s *Stage) Tween(ctx context.Context, index int) (state TweenState, ok bool, err error) {
	type result struct {
		state TweenState
		ok    bool
	}
	r, err := executor.Invoke(ctx, s.exec, executor.High, func() (result, error) {
		tw, found := s.transforms[index]
		if !found {
			return result{}, nil
		}
		return result{
			state: TweenState{
				Source:   tw.Source(),
				Dest:     tw.Dest(),
				Duration: tw.Duration(),
				Elapsed:  tw.Elapsed(),
				Easing:   tw.Easing(),
			},
			ok: true,
		}, nil
	})
	return r.state, r.ok, err
}
