// Package diagnostics collects named numeric samples and colour hints from
// pipeline components. Graphs are read by the HTTP /diag endpoint.
//
// Nothing here returns an error: instrumentation must never affect the
// component being measured.
package diagnostics

import (
	"fmt"
	"sort"
	"sync"
)

// Color is a display hint for a sample series.
type Color struct {
	R, G, B, A float32
}

// RGB returns an opaque colour.
func RGB(r, g, b float32) Color { return Color{R: r, G: g, B: b, A: 1} }

// Hex renders the colour as #RRGGBBAA.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", to8(c.R), to8(c.G), to8(c.B), to8(c.A))
}

func to8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}

// Graph holds the latest value of each named series for one component.
type Graph struct {
	mu     sync.RWMutex
	name   string
	text   string
	values map[string]float64
	colors map[string]Color
	tags   map[string]uint64
}

// NewGraph creates an unregistered graph.
func NewGraph(name string) *Graph {
	return &Graph{
		name:   name,
		values: make(map[string]float64),
		colors: make(map[string]Color),
		tags:   make(map[string]uint64),
	}
}

// Name returns the graph name.
func (g *Graph) Name() string {
	if g == nil {
		return ""
	}
	return g.name
}

// SetValue records the latest sample for series name.
func (g *Graph) SetValue(name string, v float64) {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.values[name] = v
	g.mu.Unlock()
}

// SetColor sets the display colour for series name.
func (g *Graph) SetColor(name string, c Color) {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.colors[name] = c
	g.mu.Unlock()
}

// SetText sets a free-form caption (e.g. "channel 1 1080i5000").
func (g *Graph) SetText(text string) {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.text = text
	g.mu.Unlock()
}

// SetTag counts a discrete event (dropped frame, late frame).
func (g *Graph) SetTag(name string) {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.tags[name]++
	g.mu.Unlock()
}

// Series is one named sample series in a snapshot.
type Series struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Color string  `json:"color,omitempty"`
}

// Snapshot is a point-in-time copy of a graph.
type Snapshot struct {
	Name   string            `json:"name"`
	Text   string            `json:"text,omitempty"`
	Series []Series          `json:"series"`
	Tags   map[string]uint64 `json:"tags,omitempty"`
}

// Value returns the sample for name from the snapshot.
func (s Snapshot) Value(name string) (float64, bool) {
	for _, v := range s.Series {
		if v.Name == name {
			return v.Value, true
		}
	}
	return 0, false
}

// Snapshot copies the graph state. Series are sorted by name.
func (g *Graph) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := Snapshot{
		Name:   g.name,
		Text:   g.text,
		Series: make([]Series, 0, len(g.values)),
	}
	for name, v := range g.values {
		s := Series{Name: name, Value: v}
		if c, ok := g.colors[name]; ok {
			s.Color = c.Hex()
		}
		snap.Series = append(snap.Series, s)
	}
	sort.Slice(snap.Series, func(i, j int) bool { return snap.Series[i].Name < snap.Series[j].Name })

	if len(g.tags) > 0 {
		snap.Tags = make(map[string]uint64, len(g.tags))
		for k, v := range g.tags {
			snap.Tags[k] = v
		}
	}
	return snap
}
