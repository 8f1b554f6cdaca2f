package stage

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/e7canasta/orion-playout/modules/executor"
	"github.com/e7canasta/orion-playout/modules/frame"
	"github.com/e7canasta/orion-playout/modules/producer"
	"github.com/e7canasta/orion-playout/modules/tween"
)

// slot is one layer's entry in the pre-sized per-tick table. A fan-out
// goroutine touches only its own slot.
type slot struct {
	index int
	layer *layer
	tween *tween.Tweened[frame.Transform]
	sinks []LayerConsumer
	out   *frame.Frame
}

// tick composes one frame set and hands it to the target. Runs on the
// executor's Normal lane; the ticket re-enqueues it.
func (s *Stage) tick() {
	start := time.Now()

	frames, err := s.compose()
	if err != nil {
		s.logger.Error("tick failed, clearing all layers", "error", err)
		s.graph.SetTag("tick-error")
		s.clearLayers()
		frames = make(map[int]*frame.Frame)
	}

	fps := s.format.Rate.Float()
	s.graph.SetValue("produce-time", time.Since(start).Seconds()*fps*0.5)
	if !s.lastTick.IsZero() {
		s.graph.SetValue("tick-time", start.Sub(s.lastTick).Seconds()*fps*0.5)
	}
	s.lastTick = start

	s.send(frames, NewTicket(s.scheduleTick))
}

// scheduleTick is the ticket's last-release callback.
func (s *Stage) scheduleTick() {
	if err := s.exec.BeginInvoke(s.tick, executor.Normal); err != nil {
		s.logger.Debug("tick not rescheduled", "error", err)
	}
}

// send delivers to the target. A panicking target still releases the ticket
// so the slot keeps ticking.
func (s *Stage) send(frames map[int]*frame.Frame, ticket *Ticket) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("target panicked", "panic", r)
			ticket.Release()
		}
	}()
	s.target.Send(frames, ticket)
}

// compose pulls one frame per layer in parallel and advances every transform,
// including transforms without a layer.
func (s *Stage) compose() (frames map[int]*frame.Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTickFailed, r)
		}
	}()

	fields := s.format.FieldsPerFrame()
	mode := s.format.FieldMode

	indices := s.sortedLayerIndices()
	slots := make([]slot, len(indices))
	for i, index := range indices {
		slots[i] = slot{
			index: index,
			layer: s.layers[index],
			tween: s.transformFor(index),
			sinks: s.sinksFor(index),
			out:   frame.Empty(),
		}
	}

	var g errgroup.Group
	for i := range slots {
		sl := &slots[i]
		g.Go(func() error {
			return sl.produce(fields, mode)
		})
	}

	for index, tw := range s.transforms {
		if _, ok := s.layers[index]; !ok {
			tw.FetchAndTick(fields)
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	frames = make(map[int]*frame.Frame, len(slots))
	for i := range slots {
		frames[slots[i].index] = slots[i].out
	}
	return frames, nil
}

func (sl *slot) produce(fields int, mode frame.FieldMode) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: layer %d: %v", ErrTickFailed, sl.index, r)
		}
	}()

	transform := sl.tween.FetchAndTick(1)
	f := sl.layer.receive(hintsFor(transform, mode))

	for _, sink := range sl.sinks {
		sink.Send(f)
	}

	out := frame.Wrap(f)
	out.Transform = transform
	if fields > 1 {
		second := frame.Wrap(f)
		second.Transform = sl.tween.FetchAndTick(1)
		out = frame.Interlace(out, second, mode)
	}
	sl.out = out

	sl.layer.publish()
	return nil
}

// hintsFor derives the rendering hints for a layer from its transform.
// Deinterlacing is only requested on interlaced channels.
func hintsFor(t frame.Transform, mode frame.FieldMode) producer.Hints {
	hints := producer.HintNone
	if mode != frame.Progressive && t.NeedsDeinterlace() {
		hints |= producer.HintDeinterlace
	}
	if t.IsKey {
		hints |= producer.HintAlpha
	}
	return hints
}

// transformFor returns the tween of index, creating a neutral one.
func (s *Stage) transformFor(index int) *tween.Tweened[frame.Transform] {
	tw, ok := s.transforms[index]
	if !ok {
		t := tween.Identity(frame.DefaultTransform())
		tw = &t
		s.transforms[index] = tw
	}
	return tw
}

func (s *Stage) sinksFor(index int) []LayerConsumer {
	set := s.consumers[index]
	if len(set) == 0 {
		return nil
	}
	sinks := make([]LayerConsumer, 0, len(set))
	for _, sink := range set {
		sinks = append(sinks, sink)
	}
	return sinks
}
