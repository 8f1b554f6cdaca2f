package framebridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/e7canasta/orion-playout/modules/executor"
	"github.com/e7canasta/orion-playout/modules/frame"
	"github.com/e7canasta/orion-playout/modules/producer"
	"github.com/e7canasta/orion-playout/modules/stage"
)

// LayerSource is the part of a stage a LayerProducer taps.
type LayerSource interface {
	AddLayerConsumer(token uuid.UUID, index int, sink stage.LayerConsumer) *executor.Future[struct{}]
	RemoveLayerConsumer(token uuid.UUID, index int) *executor.Future[struct{}]
}

// LayerProducer re-consumes one layer of a stage as a producer of another
// layer (possibly on another channel).
type LayerProducer struct {
	src   LayerSource
	index int
	b     *bridge

	mu   sync.Mutex
	last *frame.Frame

	closeOnce sync.Once
}

// NewLayerProducer registers a consumer on src's layer index and waits (up to
// the first-frame timeout) for its first frame. It must not be called from
// src's executor.
func NewLayerProducer(ctx context.Context, src LayerSource, index int, opts ...Option) (*LayerProducer, error) {
	c := newConfig(LayerCapacity, opts)
	c.name = fmt.Sprintf("layer-producer[%d]", index)

	p := &LayerProducer{
		src:   src,
		index: index,
		b:     newBridge(c),
		last:  frame.Empty(),
	}

	if _, err := src.AddLayerConsumer(p.b.ID(), index, p.b).Wait(ctx); err != nil {
		p.b.Stop()
		return nil, fmt.Errorf("framebridge: register layer consumer %d: %w", index, err)
	}

	p.b.BlockUntilFirstFrame(c.timeout)
	p.b.logger.Info("initialized", "layer", index)
	return p, nil
}

// Receive returns the next relayed frame, repeating the last one on underflow.
func (p *LayerProducer) Receive(producer.Hints) *frame.Frame {
	f := p.b.Receive()

	p.mu.Lock()
	defer p.mu.Unlock()

	if f.IsLate() {
		return p.last
	}
	p.last = f
	return f
}

func (p *LayerProducer) LastFrame() *frame.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *LayerProducer) Name() string {
	return p.b.name
}

func (p *LayerProducer) Info() producer.Info {
	st := p.b.Stats()
	return producer.Info{
		"type":       "layer-producer",
		"layer":      p.index,
		"queued":     st.Queued,
		"dropped":    st.Dropped,
		"age-millis": p.b.AgeMillis(),
	}
}

// Stats returns the underlying bridge counters.
func (p *LayerProducer) Stats() Stats {
	return p.b.Stats()
}

// Close unregisters from the source stage and stops the bridge. It does not
// wait for the unregistration, so it is safe on any executor.
func (p *LayerProducer) Close() error {
	p.closeOnce.Do(func() {
		p.src.RemoveLayerConsumer(p.b.ID(), p.index)
		p.b.Stop()
		p.b.logger.Info("uninitialized", "layer", p.index)
	})
	return nil
}
