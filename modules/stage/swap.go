package stage

import (
	"context"

	"github.com/e7canasta/orion-playout/modules/executor"
)

// before reports whether a's executor is taken before b's in cross-stage
// operations: lower channel index first, then creation order.
func before(a, b *Stage) bool {
	if a.channelIndex != b.channelIndex {
		return a.channelIndex < b.channelIndex
	}
	return a.seq < b.seq
}

// across runs fn with both stages' executors held: a High task on the first
// stage in lock order blocks on a High task on the second.
func (s *Stage) across(other *Stage, fn func()) *executor.Future[struct{}] {
	first, second := s, other
	if before(other, s) {
		first, second = other, s
	}
	return executor.Submit(first.exec, executor.High, func() (struct{}, error) {
		return executor.Invoke(context.Background(), second.exec, executor.High, func() (struct{}, error) {
			fn()
			return struct{}{}, nil
		})
	})
}

// SwapLayer exchanges layer index of s with layer otherIndex of other (which
// may be s). Monitor routing follows each layer to its new owner. Transforms
// and layer consumers stay with their index.
func (s *Stage) SwapLayer(index, otherIndex int, other *Stage) *executor.Future[struct{}] {
	if index < 0 || otherIndex < 0 {
		return failed(ErrInvalidIndex)
	}
	if other == nil || other == s {
		return s.control(func() error {
			swapLayer(s, index, s, otherIndex)
			return nil
		})
	}
	return s.across(other, func() {
		swapLayer(s, index, other, otherIndex)
	})
}

// SwapLayers exchanges every layer of s with other.
func (s *Stage) SwapLayers(other *Stage) *executor.Future[struct{}] {
	if other == nil || other == s {
		return executor.Resolved(struct{}{}, nil)
	}
	return s.across(other, func() {
		s.layers, other.layers = other.layers, s.layers
		for index, l := range s.layers {
			l.moveTo(index, s.subject)
		}
		for index, l := range other.layers {
			l.moveTo(index, other.subject)
		}
	})
}

// swapLayer must run with both stages' executors held.
func swapLayer(a *Stage, ai int, b *Stage, bi int) {
	la, okA := a.layers[ai]
	lb, okB := b.layers[bi]
	delete(a.layers, ai)
	delete(b.layers, bi)

	if okA {
		b.layers[bi] = la
		la.moveTo(bi, b.subject)
	}
	if okB {
		a.layers[ai] = lb
		lb.moveTo(ai, a.subject)
	}
}
