package channel

import (
	"sort"
	"time"

	"github.com/e7canasta/orion-playout/internal/diagnostics"
	"github.com/e7canasta/orion-playout/modules/frame"
	"github.com/e7canasta/orion-playout/modules/stage"
)

// Mixer is the stage target of a channel: it composites a frame set in
// layer order and hands the result to the output.
type Mixer struct {
	output *Output
	graph  *diagnostics.Graph
}

// NewMixer creates a mixer feeding output.
func NewMixer(output *Output, graph *diagnostics.Graph) *Mixer {
	graph.SetColor("mix-time", diagnostics.RGB(1, 0, 0.9))
	return &Mixer{output: output, graph: graph}
}

// Send implements stage.Target. The ticket reference passes to the output.
func (m *Mixer) Send(frames map[int]*frame.Frame, ticket *stage.Ticket) {
	start := time.Now()

	composite := Compose(frames)

	m.graph.SetValue("mix-time", time.Since(start).Seconds()*m.output.Format().Rate.Float()*0.5)
	m.output.Send(composite, ticket)
}

// Compose builds the composite of frames, lowest layer index first (bottom).
func Compose(frames map[int]*frame.Frame) *frame.Frame {
	indices := make([]int, 0, len(frames))
	for i := range frames {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	ordered := make([]*frame.Frame, 0, len(indices))
	for _, i := range indices {
		ordered = append(ordered, frames[i])
	}
	return frame.Compose(ordered...)
}
