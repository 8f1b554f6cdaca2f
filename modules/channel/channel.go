// Package channel assembles a video channel: a stage composing layers, a
// mixer compositing each frame set and an output fanning the composite out to
// consumers at the channel's rate.
//
//	stage ──(frame set, ticket)──▶ mixer ──(composite, ticket)──▶ output ──▶ consumers
//
// The ticket is released once the output has published (and paced) the
// composite, which lets the stage tick again. PipelineTokens tickets are in
// flight at once.
package channel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/e7canasta/orion-playout/internal/diagnostics"
	"github.com/e7canasta/orion-playout/internal/monitor"
	"github.com/e7canasta/orion-playout/modules/frame"
	"github.com/e7canasta/orion-playout/modules/producer"
	"github.com/e7canasta/orion-playout/modules/stage"
)

// DefaultPipelineTokens is the default number of frames in flight.
const DefaultPipelineTokens = 2

// Config configures a channel.
type Config struct {
	Index          int
	Format         frame.Format
	PipelineTokens int
	Pacing         bool
	Logger         *slog.Logger
	Registry       *diagnostics.Registry
}

// DefaultConfig returns a paced config with DefaultPipelineTokens.
func DefaultConfig(index int, format frame.Format) Config {
	return Config{
		Index:          index,
		Format:         format,
		PipelineTokens: DefaultPipelineTokens,
		Pacing:         true,
	}
}

// Channel is a running stage, mixer and output.
type Channel struct {
	index    int
	stage    *stage.Stage
	mixer    *Mixer
	output   *Output
	graph    *diagnostics.Graph
	registry *diagnostics.Registry
	subject  *monitor.Subject
	logger   *slog.Logger
}

// New builds the channel and starts its pipeline.
func New(cfg Config) (*Channel, error) {
	if cfg.PipelineTokens < 1 {
		cfg.PipelineTokens = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = diagnostics.Default()
	}
	logger := cfg.Logger.With("channel", cfg.Index)

	graph := diagnostics.NewGraph(fmt.Sprintf("channel-%d", cfg.Index))
	graph.SetText(cfg.Format.Name)

	output := NewOutput(cfg.Index, cfg.Format,
		WithPacing(cfg.Pacing),
		WithOutputLogger(cfg.Logger),
		WithOutputGraph(graph),
	)
	mixer := NewMixer(output, graph)

	st, err := stage.New(cfg.Format, mixer,
		stage.WithChannelIndex(cfg.Index),
		stage.WithLogger(cfg.Logger),
		stage.WithGraph(graph),
	)
	if err != nil {
		output.Close()
		return nil, fmt.Errorf("channel %d: %w", cfg.Index, err)
	}

	c := &Channel{
		index:    cfg.Index,
		stage:    st,
		mixer:    mixer,
		output:   output,
		graph:    graph,
		registry: cfg.Registry,
		subject:  monitor.NewSubject(fmt.Sprintf("channel/%d", cfg.Index)),
		logger:   logger,
	}
	st.Monitor().AttachParent(c.subject)
	c.registry.Register(graph)

	for i := 0; i < cfg.PipelineTokens; i++ {
		if err := st.SpawnToken(); err != nil {
			c.Close()
			return nil, fmt.Errorf("channel %d: spawn token: %w", cfg.Index, err)
		}
	}

	logger.Info("channel initialized", "format", cfg.Format.Name, "pipeline_tokens", cfg.PipelineTokens, "pacing", cfg.Pacing)
	return c, nil
}

// Index returns the channel index.
func (c *Channel) Index() int { return c.index }

// Stage returns the channel's stage.
func (c *Channel) Stage() *stage.Stage { return c.stage }

// Output returns the channel's output.
func (c *Channel) Output() *Output { return c.output }

// Format returns the current format.
func (c *Channel) Format() frame.Format { return c.output.Format() }

// Monitor returns the channel subject ("channel/N"); the stage hangs off it.
func (c *Channel) Monitor() *monitor.Subject { return c.subject }

// Graph returns the channel's diagnostics graph.
func (c *Channel) Graph() *diagnostics.Graph { return c.graph }

// SetFormat switches the channel to format.
func (c *Channel) SetFormat(ctx context.Context, format frame.Format) error {
	if _, err := c.stage.SetFormat(format).Wait(ctx); err != nil {
		return fmt.Errorf("channel %d: set format: %w", c.index, err)
	}
	c.output.SetFormat(format)
	c.graph.SetText(format.Name)
	c.logger.Info("format changed", "format", format.Name)
	return nil
}

// Info returns the channel, stage and output state.
func (c *Channel) Info(ctx context.Context) (producer.Info, error) {
	stageInfo, err := c.stage.Info().Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("channel %d: info: %w", c.index, err)
	}

	stats := c.output.Stats()
	return producer.Info{
		"index":  c.index,
		"format": c.Format().Name,
		"stage":  stageInfo,
		"output": producer.Info{
			"consumers": c.output.Consumers(),
			"published": stats.TotalPublished,
			"dropped":   stats.TotalDropped,
		},
	}, nil
}

// Close stops the stage (disposing its producers), then the output.
func (c *Channel) Close() error {
	c.stage.Close()
	c.output.Close()
	c.stage.Monitor().DetachParent()
	c.registry.Unregister(c.graph)
	c.logger.Info("channel closed")
	return nil
}
