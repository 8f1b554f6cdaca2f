package stage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/orion-playout/internal/diagnostics"
	"github.com/e7canasta/orion-playout/internal/monitor"
	"github.com/e7canasta/orion-playout/modules/executor"
	"github.com/e7canasta/orion-playout/modules/frame"
	"github.com/e7canasta/orion-playout/modules/producer"
	"github.com/e7canasta/orion-playout/modules/tween"
)

// stageSeq orders stages created with the same channel index.
var stageSeq atomic.Uint64

// Stage is the per-channel composition actor. See the package doc.
type Stage struct {
	channelIndex int
	seq          uint64

	exec    *executor.Executor
	target  Target
	logger  *slog.Logger
	graph   *diagnostics.Graph
	subject *monitor.Subject

	// Owned by the executor goroutine.
	format     frame.Format
	layers     map[int]*layer
	transforms map[int]*tween.Tweened[frame.Transform]
	consumers  map[int]map[uuid.UUID]LayerConsumer
	lastTick   time.Time
}

// Option configures a Stage.
type Option func(*Stage)

// WithLogger sets the stage logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Stage) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithChannelIndex sets the channel index used for cross-stage lock ordering
// and log attributes.
func WithChannelIndex(index int) Option {
	return func(s *Stage) {
		s.channelIndex = index
	}
}

// WithGraph sets the diagnostics graph receiving produce-time and tick-time.
func WithGraph(g *diagnostics.Graph) Option {
	return func(s *Stage) {
		s.graph = g
	}
}

// New creates a stage composing frames for format and sending them to target.
// The tick loop does not run until SpawnToken is called.
func New(format frame.Format, target Target, opts ...Option) (*Stage, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if !format.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format.Name)
	}

	s := &Stage{
		seq:        stageSeq.Add(1),
		target:     target,
		logger:     slog.Default(),
		subject:    monitor.NewSubject("stage"),
		format:     format,
		layers:     make(map[int]*layer),
		transforms: make(map[int]*tween.Tweened[frame.Transform]),
		consumers:  make(map[int]map[uuid.UUID]LayerConsumer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "stage", "channel", s.channelIndex)

	s.graph.SetColor("produce-time", diagnostics.RGB(0, 1, 0))
	s.graph.SetColor("tick-time", diagnostics.RGB(0, 0.6, 0.9))

	s.exec = executor.New(fmt.Sprintf("stage-%d", s.channelIndex), executor.WithLogger(s.logger))
	return s, nil
}

// ChannelIndex returns the index given with WithChannelIndex.
func (s *Stage) ChannelIndex() int { return s.channelIndex }

// Monitor returns the stage's monitor subject. Layer subjects hang off it.
func (s *Stage) Monitor() *monitor.Subject { return s.subject }

// SpawnToken starts one more pipeline slot.
func (s *Stage) SpawnToken() error {
	return s.exec.BeginInvoke(s.tick, executor.Normal)
}

// Close stops the executor and disposes every layer's producers.
func (s *Stage) Close() {
	s.exec.Stop()
	for _, l := range s.layers {
		l.close()
	}
	s.layers = make(map[int]*layer)
}

// control runs fn on the High lane.
func (s *Stage) control(fn func() error) *executor.Future[struct{}] {
	return executor.Submit(s.exec, executor.High, func() (struct{}, error) {
		return struct{}{}, fn()
	})
}

func failed(err error) *executor.Future[struct{}] {
	return executor.Resolved(struct{}{}, err)
}

// getLayer returns the layer at index, creating it on first reference.
func (s *Stage) getLayer(index int) *layer {
	l, ok := s.layers[index]
	if !ok {
		l = newLayer(index, s.subject, s.logger)
		s.layers[index] = l
	}
	return l
}

// Load cues p as the background of layer index. With preview the first frame
// is shown paused. autoPlayDelta >= 0 plays p automatically when the current
// foreground has that many frames left (or immediately if nothing plays);
// -1 disables auto-play.
func (s *Stage) Load(index int, p producer.Producer, preview bool, autoPlayDelta int) *executor.Future[struct{}] {
	if index < 0 {
		return failed(ErrInvalidIndex)
	}
	if p == nil {
		return failed(ErrNilProducer)
	}
	return s.control(func() error {
		s.getLayer(index).load(p, preview, autoPlayDelta)
		return nil
	})
}

// Play promotes the background of layer index to foreground and unpauses.
func (s *Stage) Play(index int) *executor.Future[struct{}] {
	return s.layerOp(index, (*layer).play)
}

// Pause freezes layer index on its last frame.
func (s *Stage) Pause(index int) *executor.Future[struct{}] {
	return s.layerOp(index, (*layer).pause)
}

// Resume unpauses layer index.
func (s *Stage) Resume(index int) *executor.Future[struct{}] {
	return s.layerOp(index, (*layer).resume)
}

// Stop drops the foreground of layer index. The background stays cued.
func (s *Stage) Stop(index int) *executor.Future[struct{}] {
	return s.layerOp(index, (*layer).stop)
}

func (s *Stage) layerOp(index int, op func(*layer)) *executor.Future[struct{}] {
	if index < 0 {
		return failed(ErrInvalidIndex)
	}
	return s.control(func() error {
		op(s.getLayer(index))
		return nil
	})
}

// Clear removes layer index. Its transform, if any, keeps ticking.
func (s *Stage) Clear(index int) *executor.Future[struct{}] {
	if index < 0 {
		return failed(ErrInvalidIndex)
	}
	return s.control(func() error {
		if l, ok := s.layers[index]; ok {
			l.close()
			delete(s.layers, index)
		}
		return nil
	})
}

// ClearAll removes every layer.
func (s *Stage) ClearAll() *executor.Future[struct{}] {
	return s.control(func() error {
		s.clearLayers()
		return nil
	})
}

func (s *Stage) clearLayers() {
	for _, l := range s.layers {
		l.close()
	}
	s.layers = make(map[int]*layer)
}

// Foreground returns the producer playing on layer index (the null producer
// if none).
func (s *Stage) Foreground(index int) *executor.Future[producer.Producer] {
	return s.producerQuery(index, func(l *layer) producer.Producer { return l.foreground })
}

// Background returns the producer cued on layer index.
func (s *Stage) Background(index int) *executor.Future[producer.Producer] {
	return s.producerQuery(index, func(l *layer) producer.Producer { return l.background })
}

func (s *Stage) producerQuery(index int, pick func(*layer) producer.Producer) *executor.Future[producer.Producer] {
	if index < 0 {
		return executor.Resolved[producer.Producer](nil, ErrInvalidIndex)
	}
	return executor.Submit(s.exec, executor.High, func() (producer.Producer, error) {
		l, ok := s.layers[index]
		if !ok {
			return producer.Empty(), nil
		}
		return pick(l), nil
	})
}

// Call forwards param to the foreground (or background) producer of layer
// index. Producers that do not accept calls return producer.ErrNotCallable.
func (s *Stage) Call(index int, foreground bool, param string) *executor.Future[string] {
	if index < 0 {
		return executor.Resolved("", ErrInvalidIndex)
	}
	return executor.Submit(s.exec, executor.High, func() (string, error) {
		l, ok := s.layers[index]
		if !ok {
			return "", producer.ErrNotCallable
		}
		p := l.background
		if foreground {
			p = l.foreground
		}
		return producer.Call(p, param)
	})
}

// SetFormat switches the video format. The next tick uses its field mode.
func (s *Stage) SetFormat(format frame.Format) *executor.Future[struct{}] {
	if !format.IsValid() {
		return failed(fmt.Errorf("%w: %q", ErrInvalidFormat, format.Name))
	}
	return s.control(func() error {
		s.format = format
		s.lastTick = time.Time{}
		s.subject.Send(monitor.NewEvent("/format", format.Name))
		return nil
	})
}

// Format returns the current video format.
func (s *Stage) Format(ctx context.Context) (frame.Format, error) {
	return executor.Invoke(ctx, s.exec, executor.High, func() (frame.Format, error) {
		return s.format, nil
	})
}

// AddLayerConsumer registers sink to receive layer index's pulled frame every
// tick. token identifies the registration for RemoveLayerConsumer.
func (s *Stage) AddLayerConsumer(token uuid.UUID, index int, sink LayerConsumer) *executor.Future[struct{}] {
	if index < 0 {
		return failed(ErrInvalidIndex)
	}
	if sink == nil {
		return failed(ErrNilConsumer)
	}
	return s.control(func() error {
		set, ok := s.consumers[index]
		if !ok {
			set = make(map[uuid.UUID]LayerConsumer)
			s.consumers[index] = set
		}
		set[token] = sink
		return nil
	})
}

// RemoveLayerConsumer unregisters the sink added with token. Other consumers
// of the same layer are unaffected.
func (s *Stage) RemoveLayerConsumer(token uuid.UUID, index int) *executor.Future[struct{}] {
	if index < 0 {
		return failed(ErrInvalidIndex)
	}
	return s.control(func() error {
		if set, ok := s.consumers[index]; ok {
			delete(set, token)
			if len(set) == 0 {
				delete(s.consumers, index)
			}
		}
		return nil
	})
}

// sortedLayerIndices returns the known layer indices in ascending order.
func (s *Stage) sortedLayerIndices() []int {
	indices := make([]int, 0, len(s.layers))
	for i := range s.layers {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}
