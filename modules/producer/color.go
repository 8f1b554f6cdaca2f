package producer

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"strings"
	"sync/atomic"

	"github.com/e7canasta/orion-playout/modules/frame"
)

var namedColors = map[string]color.RGBA{
	"EMPTY":  {0, 0, 0, 0},
	"BLACK":  {0, 0, 0, 255},
	"WHITE":  {255, 255, 255, 255},
	"RED":    {255, 0, 0, 255},
	"GREEN":  {0, 255, 0, 255},
	"BLUE":   {0, 0, 255, 255},
	"YELLOW": {255, 255, 0, 255},
	"ORANGE": {255, 165, 0, 255},
	"PINK":   {255, 192, 203, 255},
	"GRAY":   {128, 128, 128, 255},
	"TEAL":   {0, 128, 128, 255},
}

// ParseColor accepts a colour name (RED, BLUE, ...), #RRGGBB or #AARRGGBB.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, fmt.Errorf("producer: unknown colour %q", s)
	}

	b, err := hex.DecodeString(s[1:])
	if err != nil {
		return color.RGBA{}, fmt.Errorf("producer: invalid colour %q: %w", s, err)
	}
	switch len(b) {
	case 3:
		return color.RGBA{R: b[0], G: b[1], B: b[2], A: 255}, nil
	case 4:
		return color.RGBA{A: b[0], R: b[1], G: b[2], B: b[3]}, nil
	default:
		return color.RGBA{}, fmt.Errorf("producer: invalid colour %q", s)
	}
}

// Color is a solid colour source. Every Receive returns the same frame.
type Color struct {
	name   string
	rgba   color.RGBA
	frame  *frame.Frame
	pulled atomic.Bool
}

// NewColor creates a source filling the format raster with c (BGRA).
func NewColor(format frame.Format, c color.RGBA) *Color {
	n := format.Width * format.Height
	data := make([]byte, n*4)
	for i := 0; i < n; i++ {
		data[i*4+0] = c.B
		data[i*4+1] = c.G
		data[i*4+2] = c.R
		data[i*4+3] = c.A
	}
	return &Color{
		name:  fmt.Sprintf("#%02X%02X%02X%02X", c.A, c.R, c.G, c.B),
		rgba:  c,
		frame: frame.New(data, format.Width, format.Height),
	}
}

// RGBA returns the colour.
func (p *Color) RGBA() color.RGBA { return p.rgba }

func (p *Color) Receive(Hints) *frame.Frame {
	p.pulled.Store(true)
	return p.frame
}

func (p *Color) LastFrame() *frame.Frame {
	if !p.pulled.Load() {
		return frame.Empty()
	}
	return p.frame
}

func (p *Color) Name() string { return "color[" + p.name + "]" }

func (p *Color) Info() Info {
	return Info{
		"type":  "color-producer",
		"color": p.name,
	}
}
