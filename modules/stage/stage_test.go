package stage_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7canasta/orion-playout/internal/monitor"
	"github.com/e7canasta/orion-playout/modules/executor"
	"github.com/e7canasta/orion-playout/modules/frame"
	"github.com/e7canasta/orion-playout/modules/producer"
	"github.com/e7canasta/orion-playout/modules/stage"
)

func wait(t *testing.T, f *executor.Future[struct{}]) {
	t.Helper()
	_, err := f.WaitTimeout(2 * time.Second)
	require.NoError(t, err)
}

// TestOpacityScenario: layer 0 fades 0 → 1 over 10 ticks; a cleared layer
// disappears from the frame set while an orphan transform keeps ticking.
func TestOpacityScenario(t *testing.T) {
	target := newStepTarget()
	s := newStage(t, progressive(), target)
	ctx := context.Background()

	wait(t, s.Load(0, newClip("A"), false, -1))
	wait(t, s.Play(0))
	wait(t, s.SetTransform(0, opacity(0), 0, "linear"))
	wait(t, s.SetTransform(0, opacity(1), 10, "linear"))
	require.NoError(t, s.SpawnToken())

	set := target.advance(t, nil, 5)
	cur, err := s.CurrentTransform(ctx, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, cur.Opacity, 1e-6)
	assert.InDelta(t, 0.5, set.frames[0].Transform.Opacity, 1e-6)
	assert.Equal(t, "A", source(set.frames[0]))

	set = target.advance(t, set.ticket, 5)
	cur, err = s.CurrentTransform(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cur.Opacity)
	assert.Equal(t, 1.0, set.frames[0].Transform.Opacity)

	wait(t, s.SetTransform(1, opacity(0.2), 4, "linear"))
	wait(t, s.Clear(0))

	set = target.advance(t, set.ticket, 1)
	assert.NotContains(t, set.frames, 0)

	tw, ok, err := s.Tween(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, tw.Elapsed)
}

func TestOrphanTransformReachesDest(t *testing.T) {
	target := newStepTarget()
	s := newStage(t, progressive(), target)

	wait(t, s.SetTransform(5, opacity(0.2), 3, "easeinoutsine"))
	require.NoError(t, s.SpawnToken())

	set := target.advance(t, nil, 3)
	assert.Empty(t, set.frames)

	cur, err := s.CurrentTransform(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 0.2, cur.Opacity)
}

func TestTransformContinuity(t *testing.T) {
	target := newStepTarget()
	s := newStage(t, progressive(), target)
	ctx := context.Background()

	wait(t, s.SetTransform(0, opacity(0), 0, "linear"))
	wait(t, s.SetTransform(0, opacity(1), 10, "easeoutquad"))
	require.NoError(t, s.SpawnToken())
	target.advance(t, nil, 4)

	before, err := s.CurrentTransform(ctx, 0)
	require.NoError(t, err)

	wait(t, s.SetTransform(0, opacity(0.3), 10, "linear"))

	tw, ok, err := s.Tween(ctx, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, before, tw.Source)
	assert.Equal(t, 0, tw.Elapsed)
	assert.Equal(t, 0.3, tw.Dest.Opacity)
}

func TestApplyTransformUsesDestination(t *testing.T) {
	s := newStage(t, progressive(), newStepTarget())
	ctx := context.Background()

	wait(t, s.SetTransform(2, opacity(0.5), 25, "linear"))
	wait(t, s.ApplyTransform(2, func(tr frame.Transform) frame.Transform {
		tr.Opacity += 0.25
		return tr
	}, 10, "linear"))

	tw, ok, err := s.Tween(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.75, tw.Dest.Opacity)
	assert.Equal(t, 1.0, tw.Source.Opacity, "no tick ran, source is the untouched default")

	wait(t, s.ClearTransforms(2))
	cur, err := s.CurrentTransform(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, frame.DefaultTransform(), cur)
}

func TestApplyTransformsBatchIsAllOrNothing(t *testing.T) {
	s := newStage(t, progressive(), newStepTarget())
	ctx := context.Background()

	_, err := s.ApplyTransforms([]stage.TransformUpdate{
		{Index: 1, Fn: func(tr frame.Transform) frame.Transform { return opacity(0) }},
		{Index: 2},
	}).WaitTimeout(time.Second)
	assert.ErrorIs(t, err, stage.ErrNilTransform)

	_, ok, err := s.Tween(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	wait(t, s.ApplyTransforms([]stage.TransformUpdate{
		{Index: 1, Fn: func(frame.Transform) frame.Transform { return opacity(0) }},
		{Index: 2, Fn: func(frame.Transform) frame.Transform { return opacity(0.5) }},
	}))
	cur, err := s.CurrentTransform(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cur.Opacity)

	wait(t, s.ClearAllTransforms())
	_, ok, err = s.Tween(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHintsFollowTransform(t *testing.T) {
	cases := []struct {
		name   string
		format frame.Format
		want   producer.Hints
	}{
		{"progressive", progressive(), producer.HintAlpha},
		{"interlaced", interlaced(), producer.HintDeinterlace | producer.HintAlpha},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := newStepTarget()
			s := newStage(t, tc.format, target)
			c := newClip("A")

			key := frame.DefaultTransform()
			key.IsKey = true
			key.FillScale[1] = 0.5

			wait(t, s.Load(0, c, false, 0))
			wait(t, s.SetTransform(0, key, 0, "linear"))
			require.NoError(t, s.SpawnToken())
			set := target.advance(t, nil, 1)

			assert.Equal(t, tc.want, c.lastHints())

			wait(t, s.SetTransform(0, frame.DefaultTransform(), 0, "linear"))
			target.advance(t, set.ticket, 1)
			assert.Equal(t, producer.HintNone, c.lastHints())
		})
	}
}

func TestInterlacedTickAdvancesTwoFields(t *testing.T) {
	target := newStepTarget()
	s := newStage(t, interlaced(), target)

	wait(t, s.Load(0, newClip("A"), false, 0))
	wait(t, s.SetTransform(0, opacity(0), 0, "linear"))
	wait(t, s.SetTransform(0, opacity(1), 10, "linear"))
	wait(t, s.SetTransform(3, opacity(0), 10, "linear"))
	require.NoError(t, s.SpawnToken())

	set := target.advance(t, nil, 1)
	f := set.frames[0]
	require.Len(t, f.Children, 2)
	assert.Equal(t, frame.UpperFieldFirst, f.FieldMode)
	assert.InDelta(t, 0.1, f.Children[0].Transform.Opacity, 1e-6)
	assert.InDelta(t, 0.2, f.Children[1].Transform.Opacity, 1e-6)
	assert.Same(t, f.Children[0].Children[0], f.Children[1].Children[0], "both fields wrap the same pull")

	tw, _, err := s.Tween(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, tw.Elapsed, "orphan transforms advance per field too")
}

// TestSingleSlotIsSerialized validates the n-th ticket is released before the
// (n+1)-th tick starts when one token is spawned.
func TestSingleSlotIsSerialized(t *testing.T) {
	var outstanding, violations, sets atomic.Int64
	target := stage.TargetFunc(func(frames map[int]*frame.Frame, ticket *stage.Ticket) {
		if outstanding.Add(1) > 1 {
			violations.Add(1)
		}
		sets.Add(1)
		go func() {
			time.Sleep(time.Millisecond)
			outstanding.Add(-1)
			ticket.Release()
		}()
	})

	s := newStage(t, progressive(), target)
	wait(t, s.Load(0, newClip("A"), false, 0))
	require.NoError(t, s.SpawnToken())

	require.Eventually(t, func() bool { return sets.Load() >= 30 }, 5*time.Second, 5*time.Millisecond)
	assert.Zero(t, violations.Load())
}

func TestPipelineDepthBound(t *testing.T) {
	const depth = 3

	var outstanding, maxOutstanding, sets atomic.Int64
	target := stage.TargetFunc(func(frames map[int]*frame.Frame, ticket *stage.Ticket) {
		n := outstanding.Add(1)
		for {
			m := maxOutstanding.Load()
			if n <= m || maxOutstanding.CompareAndSwap(m, n) {
				break
			}
		}
		sets.Add(1)
		go func() {
			time.Sleep(2 * time.Millisecond)
			outstanding.Add(-1)
			ticket.Release()
		}()
	})

	s := newStage(t, progressive(), target)
	wait(t, s.Load(0, newClip("A"), false, 0))
	for i := 0; i < depth; i++ {
		require.NoError(t, s.SpawnToken())
	}

	require.Eventually(t, func() bool { return sets.Load() >= 60 }, 5*time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, maxOutstanding.Load(), int64(depth))
	assert.Equal(t, int64(depth), maxOutstanding.Load(), "every slot should be in flight at some point")
}

type sinkRecorder struct {
	mu     sync.Mutex
	frames []*frame.Frame
}

func (r *sinkRecorder) Send(f *frame.Frame) bool {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
	return true
}

func (r *sinkRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *sinkRecorder) last() *frame.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[len(r.frames)-1]
}

func TestLayerConsumersShareFrameInstance(t *testing.T) {
	target := newStepTarget()
	s := newStage(t, progressive(), target)

	a, b := &sinkRecorder{}, &sinkRecorder{}
	tokenA, tokenB := uuid.New(), uuid.New()

	wait(t, s.Load(0, newClip("A"), false, 0))
	wait(t, s.AddLayerConsumer(tokenA, 0, a))
	wait(t, s.AddLayerConsumer(tokenB, 0, b))
	require.NoError(t, s.SpawnToken())

	set := target.advance(t, nil, 1)
	require.Equal(t, 1, a.count())
	require.Equal(t, 1, b.count())
	assert.Same(t, a.last(), b.last())
	assert.Same(t, a.last(), set.frames[0].Children[0])

	wait(t, s.RemoveLayerConsumer(tokenA, 0))
	target.advance(t, set.ticket, 1)
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 2, b.count())
}

func TestLateFrameRepeatsLast(t *testing.T) {
	target := newStepTarget()
	s := newStage(t, progressive(), target)
	c := newClip("A")

	wait(t, s.Load(0, c, false, 0))
	require.NoError(t, s.SpawnToken())
	set := target.advance(t, nil, 1)
	first := set.frames[0].Children[0]

	c.setLate(true)
	set = target.advance(t, set.ticket, 1)
	assert.Same(t, first, set.frames[0].Children[0])
}

func TestPausedLayerRepeatsLastFrame(t *testing.T) {
	target := newStepTarget()
	s := newStage(t, progressive(), target)
	c := newClip("A")

	wait(t, s.Load(0, c, false, 0))
	require.NoError(t, s.SpawnToken())
	set := target.advance(t, nil, 2)
	shown := set.frames[0].Children[0]

	wait(t, s.Pause(0))
	pulls := c.pullCount()
	set = target.advance(t, set.ticket, 3)
	assert.Same(t, shown, set.frames[0].Children[0])
	assert.Equal(t, pulls, c.pullCount())
	assert.True(t, c.isPaused())

	wait(t, s.Resume(0))
	set = target.advance(t, set.ticket, 1)
	assert.NotSame(t, shown, set.frames[0].Children[0])
}

func TestPreviewShowsFirstFramePaused(t *testing.T) {
	target := newStepTarget()
	s := newStage(t, progressive(), target)
	c := newClip("A")

	wait(t, s.Load(0, c, true, -1))
	assert.Equal(t, 1, c.pullCount())

	info, err := s.LayerInfo(0).WaitTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "paused", info["status"])

	require.NoError(t, s.SpawnToken())
	set := target.advance(t, nil, 2)
	assert.Equal(t, "A", source(set.frames[0]))
	assert.Equal(t, 1, c.pullCount())
}

func TestAutoPlayWhenNothingPlays(t *testing.T) {
	s := newStage(t, progressive(), newStepTarget())
	c := newClip("A")

	wait(t, s.Load(0, c, false, 0))

	fg, err := s.Foreground(0).WaitTimeout(time.Second)
	require.NoError(t, err)
	assert.Same(t, c, fg)

	bg, err := s.Background(0).WaitTimeout(time.Second)
	require.NoError(t, err)
	assert.True(t, producer.IsEmpty(bg))
}

func TestAutoPlayNearEndOfClip(t *testing.T) {
	target := newStepTarget()
	s := newStage(t, progressive(), target)

	first := newClip("A")
	first.nb = 3
	next := newClip("B")

	wait(t, s.Load(0, first, false, -1))
	wait(t, s.Play(0))
	wait(t, s.Load(0, next, false, 0))
	require.NoError(t, s.SpawnToken())

	set := target.advance(t, nil, 2)
	assert.Equal(t, "A", source(set.frames[0]))

	set = target.advance(t, set.ticket, 1)
	assert.Equal(t, "B", source(set.frames[0]))
	assert.Eventually(t, first.closed.Load, time.Second, time.Millisecond, "replaced foreground is disposed")
}

func TestStopKeepsBackgroundCued(t *testing.T) {
	s := newStage(t, progressive(), newStepTarget())
	a, b := newClip("A"), newClip("B")

	wait(t, s.Load(0, a, false, -1))
	wait(t, s.Play(0))
	wait(t, s.Load(0, b, false, -1))
	wait(t, s.Stop(0))

	info, err := s.LayerInfo(0).WaitTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "stopped", info["status"])

	bg, err := s.Background(0).WaitTimeout(time.Second)
	require.NoError(t, err)
	assert.Same(t, b, bg)

	wait(t, s.Play(0))
	fg, err := s.Foreground(0).WaitTimeout(time.Second)
	require.NoError(t, err)
	assert.Same(t, b, fg)
}

func TestProducerPanicStopsOnlyItsLayer(t *testing.T) {
	target := newStepTarget()
	s := newStage(t, progressive(), target)

	bad, good := newClip("bad"), newClip("good")
	bad.setPanics(true)

	wait(t, s.Load(0, bad, false, 0))
	wait(t, s.Load(1, good, false, 0))
	require.NoError(t, s.SpawnToken())

	set := target.advance(t, nil, 1)
	assert.Equal(t, "", source(set.frames[0]))
	assert.Equal(t, "good", source(set.frames[1]))

	info, err := s.LayerInfo(0).WaitTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "stopped", info["status"])
}

type panickingSink struct{}

func (panickingSink) Send(*frame.Frame) bool { panic("sink exploded") }

func TestTickFailureClearsLayersAndKeepsTicking(t *testing.T) {
	target := newStepTarget()
	s := newStage(t, progressive(), target)

	wait(t, s.Load(0, newClip("A"), false, 0))
	wait(t, s.Load(1, newClip("B"), false, 0))
	wait(t, s.SetTransform(4, opacity(0), 10, "linear"))
	wait(t, s.AddLayerConsumer(uuid.New(), 0, panickingSink{}))
	require.NoError(t, s.SpawnToken())

	set := target.advance(t, nil, 1)
	assert.Empty(t, set.frames)

	set = target.advance(t, set.ticket, 1)
	assert.Empty(t, set.frames)

	info, err := s.Info().WaitTimeout(time.Second)
	require.NoError(t, err)
	assert.Empty(t, info["layers"])

	tw, ok, err := s.Tween(context.Background(), 4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, tw.Elapsed, "transforms survive a failed tick")
}

func TestTargetPanicReleasesTicket(t *testing.T) {
	var calls atomic.Int64
	target := stage.TargetFunc(func(map[int]*frame.Frame, *stage.Ticket) {
		calls.Add(1)
		panic("mixer exploded")
	})

	s := newStage(t, progressive(), target)
	require.NoError(t, s.SpawnToken())

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, time.Millisecond)
	s.Close()
}

// TestCrossStageSwap: A/3 holds P, B/7 holds Q. After A.SwapLayer(3, 7, B)
// A composes Q at 3, B composes P at 7 and monitor events follow the layers.
func TestCrossStageSwap(t *testing.T) {
	targetA, targetB := newStepTarget(), newStepTarget()
	a := newStage(t, progressive(), targetA, stage.WithChannelIndex(1))
	b := newStage(t, progressive(), targetB, stage.WithChannelIndex(2))

	p, q := newClip("P"), newClip("Q")
	wait(t, a.Load(3, p, false, 0))
	wait(t, b.Load(7, q, false, 0))

	var mu sync.Mutex
	seen := map[string][]string{}
	record := func(name string) monitor.Observer {
		return monitor.ObserverFunc(func(e monitor.Event) {
			if len(e.Args) == 0 {
				return
			}
			if s, ok := e.Args[0].(string); ok {
				mu.Lock()
				seen[name] = append(seen[name], e.Path+"="+s)
				mu.Unlock()
			}
		})
	}
	a.Monitor().Subscribe(record("a"))
	b.Monitor().Subscribe(record("b"))

	wait(t, a.SwapLayer(3, 7, b))

	require.NoError(t, a.SpawnToken())
	require.NoError(t, b.SpawnToken())
	setA := targetA.advance(t, nil, 1)
	setB := targetB.advance(t, nil, 1)

	assert.Equal(t, "Q", source(setA.frames[3]))
	assert.Equal(t, "P", source(setB.frames[7]))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen["a"], "/stage/layer/3/foreground/producer=Q")
	assert.Contains(t, seen["b"], "/stage/layer/7/foreground/producer=P")
	assert.NotContains(t, seen["a"], "/stage/layer/7/foreground/producer=P")
}

func TestSwapWithinStage(t *testing.T) {
	target := newStepTarget()
	s := newStage(t, progressive(), target)

	wait(t, s.Load(1, newClip("A"), false, 0))
	wait(t, s.SwapLayer(1, 2, s))
	require.NoError(t, s.SpawnToken())

	set := target.advance(t, nil, 1)
	assert.NotContains(t, set.frames, 1)
	assert.Equal(t, "A", source(set.frames[2]))
}

func TestSwapLayersExchangesEverything(t *testing.T) {
	a := newStage(t, progressive(), newStepTarget(), stage.WithChannelIndex(1))
	b := newStage(t, progressive(), newStepTarget(), stage.WithChannelIndex(2))

	p, q, r := newClip("P"), newClip("Q"), newClip("R")
	wait(t, a.Load(1, p, false, 0))
	wait(t, a.Load(2, q, false, 0))
	wait(t, b.Load(5, r, false, 0))

	wait(t, b.SwapLayers(a))

	fg, err := a.Foreground(5).WaitTimeout(time.Second)
	require.NoError(t, err)
	assert.Same(t, r, fg)

	fg, err = b.Foreground(2).WaitTimeout(time.Second)
	require.NoError(t, err)
	assert.Same(t, q, fg)
}

// TestOppositeSwapsDoNotDeadlock issues swaps in both directions
// concurrently; lock ordering must keep them from blocking each other.
func TestOppositeSwapsDoNotDeadlock(t *testing.T) {
	a := newStage(t, progressive(), newStepTarget(), stage.WithChannelIndex(1))
	b := newStage(t, progressive(), newStepTarget(), stage.WithChannelIndex(1))

	wait(t, a.Load(1, newClip("P"), false, 0))
	wait(t, b.Load(2, newClip("Q"), false, 0))

	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := a.SwapLayer(1, 2, b).WaitTimeout(5 * time.Second)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := b.SwapLayer(2, 1, a).WaitTimeout(5 * time.Second)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestInfoShape(t *testing.T) {
	s := newStage(t, progressive(), newStepTarget())

	wait(t, s.Load(4, newClip("late"), false, 0))
	wait(t, s.Load(1, newClip("early"), false, -1))

	info, err := s.Info().WaitTimeout(time.Second)
	require.NoError(t, err)

	layers, ok := info["layers"].([]producer.Info)
	require.True(t, ok)
	require.Len(t, layers, 2)
	assert.Equal(t, 1, layers[0]["index"])
	assert.Equal(t, "loaded", layers[0]["status"])
	assert.Equal(t, 4, layers[1]["index"])
	assert.Equal(t, "playing", layers[1]["status"])

	delay, err := s.DelayInfo().WaitTimeout(time.Second)
	require.NoError(t, err)
	require.Len(t, delay["layers"], 2)

	empty, err := s.LayerInfo(9).WaitTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "empty", empty["status"])
}

func TestCallForwardsToProducer(t *testing.T) {
	s := newStage(t, progressive(), newStepTarget())

	wait(t, s.Load(0, newClip("A"), false, 0))

	out, err := s.Call(0, true, "SEEK 10").WaitTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "A:SEEK 10", out)

	_, err = s.Call(0, false, "SEEK 10").WaitTimeout(time.Second)
	assert.ErrorIs(t, err, producer.ErrNotCallable)
}

func TestControlErrors(t *testing.T) {
	s := newStage(t, progressive(), newStepTarget())

	cases := []struct {
		name string
		f    *executor.Future[struct{}]
		want error
	}{
		{"negative load", s.Load(-1, newClip("A"), false, 0), stage.ErrInvalidIndex},
		{"nil producer", s.Load(0, nil, false, 0), stage.ErrNilProducer},
		{"nil transform", s.ApplyTransform(0, nil, 0, "linear"), stage.ErrNilTransform},
		{"negative swap", s.SwapLayer(-1, 0, nil), stage.ErrInvalidIndex},
		{"nil consumer", s.AddLayerConsumer(uuid.New(), 0, nil), stage.ErrNilConsumer},
		{"bad format", s.SetFormat(frame.Format{Name: "broken"}), stage.ErrInvalidFormat},
	}
	for _, tc := range cases {
		_, err := tc.f.WaitTimeout(time.Second)
		assert.ErrorIs(t, err, tc.want, tc.name)
	}

	_, err := stage.New(progressive(), nil)
	assert.ErrorIs(t, err, stage.ErrNilTarget)

	s.Close()
	_, err = s.Play(0).WaitTimeout(time.Second)
	assert.ErrorIs(t, err, executor.ErrStopped)
	assert.ErrorIs(t, s.SpawnToken(), executor.ErrStopped)
}

func TestSetFormatSwitchesFieldMode(t *testing.T) {
	target := newStepTarget()
	s := newStage(t, progressive(), target)

	wait(t, s.Load(0, newClip("A"), false, 0))
	require.NoError(t, s.SpawnToken())
	set := target.advance(t, nil, 1)
	assert.Len(t, set.frames[0].Children, 1)

	wait(t, s.SetFormat(interlaced()))
	got, err := s.Format(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-i50", got.Name)

	set = target.advance(t, set.ticket, 1)
	assert.Len(t, set.frames[0].Children, 2)
}

func TestClearDisposesProducers(t *testing.T) {
	s := newStage(t, progressive(), newStepTarget())
	a, b := newClip("A"), newClip("B")

	wait(t, s.Load(0, a, false, 0))
	wait(t, s.Load(0, b, false, -1))
	wait(t, s.ClearAll())

	assert.Eventually(t, func() bool { return a.closed.Load() && b.closed.Load() }, time.Second, time.Millisecond)
}
