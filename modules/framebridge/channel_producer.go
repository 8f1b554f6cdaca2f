package framebridge

import (
	"fmt"
	"sync"

	"github.com/e7canasta/orion-playout/modules/frame"
	"github.com/e7canasta/orion-playout/modules/framebus"
	"github.com/e7canasta/orion-playout/modules/producer"
)

// ChannelOutput is the part of a channel output a ChannelProducer taps.
type ChannelOutput interface {
	Index() int
	Format() frame.Format
	AddConsumer(id string, sink framebus.Sink) error
	RemoveConsumer(id string) error
}

// FormatSource reports the current format of a consuming channel.
type FormatSource interface {
	Format() frame.Format
}

// StaticFormat is a FormatSource that never changes.
type StaticFormat frame.Format

func (f StaticFormat) Format() frame.Format { return frame.Format(f) }

// ChannelProducer re-consumes a channel's composited output as a layer
// producer of another channel.
//
// Rate adaptation is exact: when the destination rate is twice the source
// rate every frame is shown twice; when the source rate is twice the
// destination rate every other frame is skipped. Other ratios pass through.
// Both rates are read on every Receive, so a format change on either channel
// takes effect on the next destination tick.
type ChannelProducer struct {
	out ChannelOutput
	dst FormatSource
	b   *bridge
	id  string

	mu          sync.Mutex
	pending     []*frame.Frame
	last        *frame.Frame
	frameNumber uint64

	closeOnce sync.Once
}

// NewChannelProducer subscribes to out and waits (up to the first-frame
// timeout) for its first frame. dst reports the format of the consuming
// channel.
func NewChannelProducer(out ChannelOutput, dst FormatSource, opts ...Option) (*ChannelProducer, error) {
	c := newConfig(ChannelCapacity, opts)
	c.name = fmt.Sprintf("channel-producer[%d]", out.Index())

	p := &ChannelProducer{
		out:  out,
		dst:  dst,
		b:    newBridge(c),
		last: frame.Empty(),
	}
	p.id = "channel-consumer-" + p.b.ID().String()

	if err := out.AddConsumer(p.id, p.b); err != nil {
		p.b.Stop()
		return nil, fmt.Errorf("framebridge: subscribe to channel %d: %w", out.Index(), err)
	}

	p.b.BlockUntilFirstFrame(c.timeout)
	double, half := p.adaptation()
	p.b.logger.Info("initialized",
		"source_rate", out.Format().Rate.String(),
		"dest_rate", dst.Format().Rate.String(),
		"double", double,
		"half", half,
	)
	return p, nil
}

// adaptation compares the live source and destination rates.
func (p *ChannelProducer) adaptation() (double, half bool) {
	src, dst := p.out.Format().Rate, p.dst.Format().Rate
	return dst.IsDoubleOf(src), src.IsDoubleOf(dst)
}

// Receive returns the next frame for the destination tick.
func (p *ChannelProducer) Receive(producer.Hints) *frame.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()

	double, half := p.adaptation()
	for {
		if len(p.pending) > 0 {
			f := p.pending[0]
			p.pending = p.pending[1:]
			p.last = f
			return f
		}

		src := p.b.Receive()
		if !src.HasContent() {
			return frame.Late()
		}

		p.frameNumber++
		if half && p.frameNumber%2 == 0 {
			continue
		}

		f := frame.Wrap(src)
		p.pending = append(p.pending, f)
		if double {
			p.pending = append(p.pending, f)
		}
	}
}

func (p *ChannelProducer) LastFrame() *frame.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *ChannelProducer) Name() string {
	return p.b.name
}

func (p *ChannelProducer) Info() producer.Info {
	st := p.b.Stats()
	double, half := p.adaptation()
	return producer.Info{
		"type":          "channel-producer",
		"channel-index": p.out.Index(),
		"queued":        st.Queued,
		"dropped":       st.Dropped,
		"age-millis":    p.b.AgeMillis(),
		"double":        double,
		"half":          half,
	}
}

// Stats returns the underlying bridge counters.
func (p *ChannelProducer) Stats() Stats {
	return p.b.Stats()
}

// Close unsubscribes from the source channel and stops the bridge.
func (p *ChannelProducer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.out.RemoveConsumer(p.id)
		p.b.Stop()
		p.b.logger.Info("uninitialized")
	})
	return err
}
