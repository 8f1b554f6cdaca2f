package stage_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/e7canasta/orion-playout/modules/frame"
	"github.com/e7canasta/orion-playout/modules/producer"
	"github.com/e7canasta/orion-playout/modules/stage"
)

func progressive() frame.Format {
	return frame.Format{Name: "test-p25", Width: 4, Height: 4, FieldMode: frame.Progressive, Rate: frame.Rate{Num: 25, Den: 1}}
}

func interlaced() frame.Format {
	return frame.Format{Name: "test-i50", Width: 4, Height: 4, FieldMode: frame.UpperFieldFirst, Rate: frame.Rate{Num: 25, Den: 1}}
}

// clip is a scripted producer. Each content frame carries the clip name as
// its payload.
type clip struct {
	name string
	nb   int64

	mu     sync.Mutex
	last   *frame.Frame
	hints  []producer.Hints
	pulls  int
	late   bool
	panics bool
	paused bool
	closed atomic.Bool
}

func newClip(name string) *clip {
	return &clip{name: name, nb: -1}
}

func (c *clip) Receive(h producer.Hints) *frame.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hints = append(c.hints, h)
	c.pulls++
	if c.panics {
		panic("decoder exploded")
	}
	if c.late {
		return frame.Late()
	}
	c.last = frame.New([]byte(c.name), 1, 1)
	return c.last
}

func (c *clip) LastFrame() *frame.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return frame.Empty()
	}
	return c.last
}

func (c *clip) Name() string        { return c.name }
func (c *clip) Info() producer.Info { return producer.Info{"type": "clip", "name": c.name} }
func (c *clip) NbFrames() int64     { return c.nb }

func (c *clip) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *clip) Call(param string) (string, error) {
	return c.name + ":" + param, nil
}

func (c *clip) SetPaused(p bool) {
	c.mu.Lock()
	c.paused = p
	c.mu.Unlock()
}

func (c *clip) isPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *clip) setLate(late bool) {
	c.mu.Lock()
	c.late = late
	c.mu.Unlock()
}

func (c *clip) setPanics(p bool) {
	c.mu.Lock()
	c.panics = p
	c.mu.Unlock()
}

func (c *clip) lastHints() producer.Hints {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.hints) == 0 {
		return producer.HintNone
	}
	return c.hints[len(c.hints)-1]
}

func (c *clip) pullCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pulls
}

// source returns the clip name carried by a composed layer frame.
func source(f *frame.Frame) string {
	for f != nil && len(f.Children) > 0 {
		f = f.Children[0]
	}
	if f == nil || !f.HasContent() {
		return ""
	}
	return string(f.Data)
}

type tickSet struct {
	frames map[int]*frame.Frame
	ticket *stage.Ticket
}

// stepTarget hands every frame set to the test, which decides when to
// release the ticket.
type stepTarget struct {
	sets chan tickSet
}

func newStepTarget() *stepTarget {
	return &stepTarget{sets: make(chan tickSet, 16)}
}

func (t *stepTarget) Send(frames map[int]*frame.Frame, ticket *stage.Ticket) {
	t.sets <- tickSet{frames: frames, ticket: ticket}
}

func (t *stepTarget) next(tb testing.TB) tickSet {
	tb.Helper()
	select {
	case s := <-t.sets:
		return s
	case <-time.After(2 * time.Second):
		tb.Fatal("timeout waiting for frame set")
	}
	return tickSet{}
}

// advance releases held (if any) and waits for n frame sets, releasing all
// but the last, which is returned still held.
func (t *stepTarget) advance(tb testing.TB, held *stage.Ticket, n int) tickSet {
	tb.Helper()
	var set tickSet
	for i := 0; i < n; i++ {
		if held != nil {
			held.Release()
		}
		set = t.next(tb)
		held = set.ticket
	}
	return set
}

func newStage(tb testing.TB, format frame.Format, target stage.Target, opts ...stage.Option) *stage.Stage {
	tb.Helper()
	s, err := stage.New(format, target, opts...)
	if err != nil {
		tb.Fatalf("stage.New: %v", err)
	}
	tb.Cleanup(s.Close)
	return s
}

func opacity(v float64) frame.Transform {
	t := frame.DefaultTransform()
	t.Opacity = v
	return t
}
