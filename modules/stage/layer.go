package stage

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/e7canasta/orion-playout/internal/monitor"
	"github.com/e7canasta/orion-playout/modules/frame"
	"github.com/e7canasta/orion-playout/modules/producer"
)

// State is a layer's playback state.
type State int

const (
	StateEmpty State = iota
	StateLoaded
	StatePlaying
	StatePaused
	StateStopped
)

// String returns the state name used in info snapshots.
func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "empty"
	}
}

// layer holds the foreground/background producers of one index.
// Only the stage executor touches a layer, except receive which runs on a
// tick fan-out goroutine while the executor waits for it.
type layer struct {
	index      int
	foreground producer.Producer
	background producer.Producer

	paused  bool
	stopped bool

	// autoPlayDelta is the number of remaining foreground frames at which the
	// background starts playing; -1 disables auto-play.
	autoPlayDelta int
	frameNumber   int64

	subject *monitor.Subject
	logger  *slog.Logger
}

func newLayer(index int, parent *monitor.Subject, logger *slog.Logger) *layer {
	l := &layer{
		index:         index,
		foreground:    producer.Empty(),
		background:    producer.Empty(),
		autoPlayDelta: -1,
		subject:       monitor.NewSubject(layerPath(index)),
		logger:        logger,
	}
	l.subject.AttachParent(parent)
	return l
}

func layerPath(index int) string {
	return fmt.Sprintf("layer/%d", index)
}

func (l *layer) state() State {
	switch {
	case l.stopped:
		return StateStopped
	case !producer.IsEmpty(l.foreground) && l.paused:
		return StatePaused
	case !producer.IsEmpty(l.foreground):
		return StatePlaying
	case !producer.IsEmpty(l.background):
		return StateLoaded
	default:
		return StateEmpty
	}
}

func (l *layer) load(p producer.Producer, preview bool, autoPlayDelta int) {
	if l.background != p {
		l.dispose(l.background)
	}
	l.background = p
	l.autoPlayDelta = autoPlayDelta
	l.stopped = false

	if preview {
		l.play()
		l.receive(producer.HintNone)
		l.setPaused(true)
	}

	if l.autoPlayDelta > -1 && producer.IsEmpty(l.foreground) {
		l.play()
	}
}

func (l *layer) play() {
	if !producer.IsEmpty(l.background) {
		old := l.foreground
		l.foreground = l.background
		l.background = producer.Empty()
		l.frameNumber = 0
		l.autoPlayDelta = -1
		if old != l.foreground {
			l.dispose(old)
		}
	}
	l.stopped = false
	l.setPaused(false)
}

func (l *layer) pause() {
	l.setPaused(true)
}

func (l *layer) resume() {
	l.setPaused(false)
}

func (l *layer) stop() {
	l.dispose(l.foreground)
	l.foreground = producer.Empty()
	l.autoPlayDelta = -1
	l.frameNumber = 0
	l.paused = false
	l.stopped = true
}

func (l *layer) setPaused(paused bool) {
	l.paused = paused
	if p, ok := l.foreground.(producer.Pausable); ok {
		p.SetPaused(paused)
	}
}

// receive pulls one frame. Late frames resolve to the foreground's last
// frame; a panicking producer stops the layer and yields Empty.
func (l *layer) receive(hints producer.Hints) (f *frame.Frame) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("producer panicked, stopping layer",
				"layer", l.index,
				"producer", l.foreground.Name(),
				"panic", r)
			l.stop()
			f = frame.Empty()
		}
	}()

	if l.paused {
		if l.foreground.LastFrame().IsEmpty() {
			l.foreground.Receive(hints)
		}
		return l.foreground.LastFrame()
	}

	f = l.foreground.Receive(hints)
	switch {
	case f.IsLate():
		return l.foreground.LastFrame()
	case f.IsEOF():
		if l.autoPlayDelta > -1 && !producer.IsEmpty(l.background) {
			l.play()
			return l.receive(hints)
		}
		return frame.Empty()
	case f.IsEmpty():
		return f
	}

	l.frameNumber++
	if l.autoPlayDelta > -1 {
		if nb := producer.NbFrames(l.foreground); nb >= 0 {
			if nb-l.frameNumber-int64(l.autoPlayDelta) < 1 {
				l.play()
				return l.receive(hints)
			}
		}
	}
	return f
}

// publish emits the per-tick layer state to the monitor tree.
func (l *layer) publish() {
	l.subject.Send(monitor.NewEvent("/paused", l.paused))
	if !producer.IsEmpty(l.foreground) {
		l.subject.Send(monitor.NewEvent("/foreground/producer", l.foreground.Name()))
		l.subject.Send(monitor.NewEvent("/foreground/frame", l.frameNumber, producer.NbFrames(l.foreground)))
	}
}

// moveTo re-homes the layer after a swap.
func (l *layer) moveTo(index int, parent *monitor.Subject) {
	l.index = index
	l.subject.DetachParent()
	l.subject.SetPath(layerPath(index))
	l.subject.AttachParent(parent)
}

// close disposes both producers and detaches the monitor.
func (l *layer) close() {
	l.dispose(l.foreground)
	l.dispose(l.background)
	l.foreground = producer.Empty()
	l.background = producer.Empty()
	l.subject.DetachParent()
}

// dispose closes p off the executor goroutine. Closing a bridge producer
// unregisters it from another stage, which must not block this one.
func (l *layer) dispose(p producer.Producer) {
	c, ok := p.(io.Closer)
	if !ok || producer.IsEmpty(p) {
		return
	}
	logger := l.logger
	go func() {
		if err := c.Close(); err != nil {
			logger.Warn("failed to close producer", "producer", p.Name(), "error", err)
		}
	}()
}

func (l *layer) info() producer.Info {
	nb := producer.NbFrames(l.foreground)
	info := producer.Info{
		"status":       l.state().String(),
		"paused":       l.paused,
		"auto_delta":   l.autoPlayDelta,
		"frame-number": l.frameNumber,
		"nb_frames":    nb,
		"foreground":   producer.Info{"producer": l.foreground.Info()},
		"background":   producer.Info{"producer": l.background.Info()},
	}
	if nb >= 0 {
		info["frames-left"] = nb - l.frameNumber
	}
	return info
}

func (l *layer) delayInfo() producer.Info {
	return producer.Info{
		"producer":     l.foreground.Name(),
		"frame-age-ms": l.foreground.LastFrame().Age().Milliseconds(),
	}
}
