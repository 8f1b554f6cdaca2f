package framebridge

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/orion-playout/modules/frame"
	"github.com/e7canasta/orion-playout/modules/framebridge/internal/queue"
)

const (
	// LayerCapacity is the queue size of a layer bridge.
	LayerCapacity = 2
	// ChannelCapacity is the queue size of a channel bridge.
	ChannelCapacity = 3
	// DefaultFirstFrameTimeout bounds BlockUntilFirstFrame in the producers.
	DefaultFirstFrameTimeout = 2 * time.Second
)

// Stats is a counter snapshot of a bridge.
type Stats = queue.Stats

// Bridge is a bounded, non-blocking, first-frame-synchronised relay.
type Bridge interface {
	// ID identifies the bridge in consumer registrations.
	ID() uuid.UUID

	// Send pushes f. Returns false if the bridge is full or stopped.
	Send(f *frame.Frame) bool

	// BlockUntilFirstFrame waits up to timeout for the first accepted Send.
	// On timeout it logs a warning and returns false; it never fails. A stop
	// also releases the wait and returns false.
	BlockUntilFirstFrame(timeout time.Duration) bool

	// Receive pops the oldest frame, frame.Late() when empty, frame.EOF()
	// once stopped.
	Receive() *frame.Frame

	// AgeMillis is the age of the last received frame when it was received.
	AgeMillis() int64

	// Stop closes the bridge. Idempotent.
	Stop()

	Stats() Stats
}

// Option configures a Bridge.
type Option func(*config)

type config struct {
	capacity int
	timeout  time.Duration
	name     string
	logger   *slog.Logger
}

// WithCapacity sets the queue size.
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// WithFirstFrameTimeout sets the barrier timeout used by the producers.
func WithFirstFrameTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithName sets the name used in logs.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newConfig(capacity int, opts []Option) config {
	c := config{
		capacity: capacity,
		timeout:  DefaultFirstFrameTimeout,
		name:     "bridge",
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

type bridge struct {
	id     uuid.UUID
	name   string
	q      *queue.Queue
	logger *slog.Logger
}

// New creates a bridge (capacity LayerCapacity unless WithCapacity is given).
func New(opts ...Option) Bridge {
	return newBridge(newConfig(LayerCapacity, opts))
}

func newBridge(c config) *bridge {
	id := uuid.New()
	return &bridge{
		id:     id,
		name:   c.name,
		q:      queue.New(c.capacity),
		logger: c.logger.With("component", "framebridge", "bridge", c.name, "id", id.String()),
	}
}

func (b *bridge) ID() uuid.UUID { return b.id }

func (b *bridge) Send(f *frame.Frame) bool { return b.q.Push(f) }

func (b *bridge) Receive() *frame.Frame { return b.q.Pop() }

func (b *bridge) AgeMillis() int64 { return b.q.AgeMillis() }

func (b *bridge) Stats() Stats { return b.q.Stats() }

func (b *bridge) Stop() { b.q.Stop() }

func (b *bridge) BlockUntilFirstFrame(timeout time.Duration) bool {
	if b.q.WaitFirst(timeout) {
		return true
	}
	if b.q.Stopped() {
		b.logger.Info("stopped before first frame")
		return false
	}
	b.logger.Warn("timed out while waiting for first frame", "timeout", timeout)
	return false
}
