package channel

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/e7canasta/orion-playout/internal/diagnostics"
	"github.com/e7canasta/orion-playout/modules/executor"
	"github.com/e7canasta/orion-playout/modules/frame"
	"github.com/e7canasta/orion-playout/modules/framebus"
	"github.com/e7canasta/orion-playout/modules/stage"
)

// Output publishes composited frames to the channel's consumers on its own
// executor. Without a consumer owning a synchronisation clock it paces the
// channel to the format's frame rate.
type Output struct {
	index  int
	exec   *executor.Executor
	bus    framebus.Bus
	pacing bool
	logger *slog.Logger
	graph  *diagnostics.Graph

	mu     sync.RWMutex
	format frame.Format

	// Owned by the executor goroutine.
	deadline time.Time
}

// OutputOption configures an Output.
type OutputOption func(*Output)

// WithPacing enables or disables rate pacing (enabled by default).
func WithPacing(enabled bool) OutputOption {
	return func(o *Output) { o.pacing = enabled }
}

// WithOutputLogger sets the output logger.
func WithOutputLogger(l *slog.Logger) OutputOption {
	return func(o *Output) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOutputGraph sets the graph receiving frame-time.
func WithOutputGraph(g *diagnostics.Graph) OutputOption {
	return func(o *Output) { o.graph = g }
}

// NewOutput creates the output of channel index.
func NewOutput(index int, format frame.Format, opts ...OutputOption) *Output {
	o := &Output{
		index:  index,
		bus:    framebus.New(),
		pacing: true,
		logger: slog.Default(),
		format: format,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "output", "channel", index)
	o.graph.SetColor("frame-time", diagnostics.RGB(0.5, 1, 0.2))

	o.exec = executor.New(fmt.Sprintf("output-%d", index), executor.WithLogger(o.logger))
	return o
}

// Index returns the channel index.
func (o *Output) Index() int { return o.index }

// Format returns the current format.
func (o *Output) Format() frame.Format {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.format
}

// SetFormat switches the pacing rate.
func (o *Output) SetFormat(format frame.Format) {
	o.mu.Lock()
	o.format = format
	o.mu.Unlock()
}

// AddConsumer attaches sink under id.
func (o *Output) AddConsumer(id string, sink framebus.Sink) error {
	if err := o.bus.SubscribeSink(id, sink); err != nil {
		return fmt.Errorf("channel %d: add consumer %q: %w", o.index, id, err)
	}
	o.logger.Info("consumer added", "consumer", id)
	return nil
}

// Subscribe attaches a Go channel under id. Frames are dropped when ch is full.
func (o *Output) Subscribe(id string, ch chan<- *frame.Frame) error {
	if err := o.bus.Subscribe(id, ch); err != nil {
		return fmt.Errorf("channel %d: subscribe %q: %w", o.index, id, err)
	}
	return nil
}

// RemoveConsumer detaches the consumer registered under id.
func (o *Output) RemoveConsumer(id string) error {
	if err := o.bus.Unsubscribe(id); err != nil {
		return fmt.Errorf("channel %d: remove consumer %q: %w", o.index, id, err)
	}
	o.logger.Info("consumer removed", "consumer", id)
	return nil
}

// Consumers returns the attached consumer ids, sorted.
func (o *Output) Consumers() []string { return o.bus.Consumers() }

// Stats returns the fan-out counters.
func (o *Output) Stats() framebus.BusStats { return o.bus.Stats() }

// Send takes over ticket: it is released once f has been published (and
// paced). If the output is closed, before or while f is queued, the ticket is
// released without publishing.
func (o *Output) Send(f *frame.Frame, ticket *stage.Ticket) {
	err := o.exec.BeginInvokeOr(func() {
		defer ticket.Release()
		o.publish(f)
	}, executor.Normal, func(error) {
		ticket.Release()
	})
	if err != nil {
		ticket.Release()
	}
}

func (o *Output) publish(f *frame.Frame) {
	start := time.Now()
	o.bus.Publish(f)

	if o.pacing && !o.bus.HasSyncClock() {
		o.pace()
	}

	format := o.Format()
	o.graph.SetValue("frame-time", time.Since(start).Seconds()*format.Rate.Float()*0.5)
}

// pace sleeps until the next frame deadline. A deadline already missed by
// more than a frame restarts the cadence from now.
func (o *Output) pace() {
	interval := o.Format().Rate.FrameDuration()
	if interval <= 0 {
		return
	}

	now := time.Now()
	if o.deadline.IsZero() || now.Sub(o.deadline) > interval {
		o.deadline = now
	}
	o.deadline = o.deadline.Add(interval)

	if d := time.Until(o.deadline); d > 0 {
		time.Sleep(d)
	}
}

// Close stops the executor and the bus. Queued frames are discarded.
func (o *Output) Close() {
	o.exec.Stop()
	_ = o.bus.Close()
}
