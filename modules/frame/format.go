package frame

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// FieldMode describes how a frame is scanned.
type FieldMode int

const (
	Progressive FieldMode = iota
	UpperFieldFirst
	LowerFieldFirst
)

// String returns the field mode name.
func (m FieldMode) String() string {
	switch m {
	case UpperFieldFirst:
		return "upper"
	case LowerFieldFirst:
		return "lower"
	default:
		return "progressive"
	}
}

// Rate is an exact frame rate Num/Den frames per second.
type Rate struct {
	Num int64
	Den int64
}

// Float returns the rate as frames per second.
func (r Rate) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Equal compares two rates exactly (25/1 == 50/2).
func (r Rate) Equal(o Rate) bool {
	return r.Num*o.Den == o.Num*r.Den
}

// IsDoubleOf reports whether r is exactly twice o.
func (r Rate) IsDoubleOf(o Rate) bool {
	return r.Den != 0 && o.Den != 0 && r.Num*o.Den == 2*o.Num*r.Den
}

// FrameDuration returns the duration of one frame at this rate.
func (r Rate) FrameDuration() time.Duration {
	if r.Num == 0 {
		return 0
	}
	return time.Duration(int64(time.Second) * r.Den / r.Num)
}

// String returns "num/den".
func (r Rate) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Format describes a channel's video raster and timing.
type Format struct {
	Name      string
	Width     int
	Height    int
	FieldMode FieldMode
	Rate      Rate
}

// FieldsPerFrame returns 2 for interlaced formats and 1 for progressive.
func (f Format) FieldsPerFrame() int {
	if f.FieldMode == Progressive {
		return 1
	}
	return 2
}

// IsValid reports whether f describes a usable raster.
func (f Format) IsValid() bool {
	return f.Width > 0 && f.Height > 0 && f.Rate.Num > 0 && f.Rate.Den > 0
}

var formats = map[string]Format{
	"pal":       {Name: "PAL", Width: 720, Height: 576, FieldMode: UpperFieldFirst, Rate: Rate{25, 1}},
	"ntsc":      {Name: "NTSC", Width: 720, Height: 486, FieldMode: LowerFieldFirst, Rate: Rate{30000, 1001}},
	"576p2500":  {Name: "576p2500", Width: 1024, Height: 576, FieldMode: Progressive, Rate: Rate{25, 1}},
	"720p2500":  {Name: "720p2500", Width: 1280, Height: 720, FieldMode: Progressive, Rate: Rate{25, 1}},
	"720p5000":  {Name: "720p5000", Width: 1280, Height: 720, FieldMode: Progressive, Rate: Rate{50, 1}},
	"720p5994":  {Name: "720p5994", Width: 1280, Height: 720, FieldMode: Progressive, Rate: Rate{60000, 1001}},
	"720p6000":  {Name: "720p6000", Width: 1280, Height: 720, FieldMode: Progressive, Rate: Rate{60, 1}},
	"1080i5000": {Name: "1080i5000", Width: 1920, Height: 1080, FieldMode: UpperFieldFirst, Rate: Rate{25, 1}},
	"1080i5994": {Name: "1080i5994", Width: 1920, Height: 1080, FieldMode: UpperFieldFirst, Rate: Rate{30000, 1001}},
	"1080i6000": {Name: "1080i6000", Width: 1920, Height: 1080, FieldMode: UpperFieldFirst, Rate: Rate{30, 1}},
	"1080p2500": {Name: "1080p2500", Width: 1920, Height: 1080, FieldMode: Progressive, Rate: Rate{25, 1}},
	"1080p2997": {Name: "1080p2997", Width: 1920, Height: 1080, FieldMode: Progressive, Rate: Rate{30000, 1001}},
	"1080p3000": {Name: "1080p3000", Width: 1920, Height: 1080, FieldMode: Progressive, Rate: Rate{30, 1}},
	"1080p5000": {Name: "1080p5000", Width: 1920, Height: 1080, FieldMode: Progressive, Rate: Rate{50, 1}},
	"1080p6000": {Name: "1080p6000", Width: 1920, Height: 1080, FieldMode: Progressive, Rate: Rate{60, 1}},
}

// FormatByName looks up a named format (case-insensitive).
func FormatByName(name string) (Format, bool) {
	f, ok := formats[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// FormatNames returns the known format names, sorted.
func FormatNames() []string {
	names := make([]string, 0, len(formats))
	for n := range formats {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
