package frame

import "math"

// deinterlaceEpsilon is the deviation from neutral vertical geometry above
// which a layer needs deinterlaced input.
const deinterlaceEpsilon = 0.0001

// Levels is a per-layer input/output levels adjustment.
type Levels struct {
	MinInput  float64 `json:"min_input" msgpack:"min_input"`
	MaxInput  float64 `json:"max_input" msgpack:"max_input"`
	Gamma     float64 `json:"gamma" msgpack:"gamma"`
	MinOutput float64 `json:"min_output" msgpack:"min_output"`
	MaxOutput float64 `json:"max_output" msgpack:"max_output"`
}

// Transform describes how the mixer renders a layer's frame.
// Values are unitless; translations and scales are relative to the output
// raster (1.0 = full width/height).
type Transform struct {
	Opacity    float64 `json:"opacity" msgpack:"opacity"`
	Brightness float64 `json:"brightness" msgpack:"brightness"`
	Contrast   float64 `json:"contrast" msgpack:"contrast"`
	Saturation float64 `json:"saturation" msgpack:"saturation"`
	Volume     float64 `json:"volume" msgpack:"volume"`
	Levels     Levels  `json:"levels" msgpack:"levels"`

	FillTranslation [2]float64 `json:"fill_translation" msgpack:"fill_translation"`
	FillScale       [2]float64 `json:"fill_scale" msgpack:"fill_scale"`
	ClipTranslation [2]float64 `json:"clip_translation" msgpack:"clip_translation"`
	ClipScale       [2]float64 `json:"clip_scale" msgpack:"clip_scale"`

	// IsKey marks the layer as a key (matte) source for the layer above.
	IsKey bool `json:"is_key" msgpack:"is_key"`
	// IsMix marks a transform that is part of a transition mix.
	IsMix bool `json:"is_mix" msgpack:"is_mix"`

	FieldMode FieldMode `json:"field_mode" msgpack:"field_mode"`
}

// DefaultTransform returns the neutral transform: fully opaque, unscaled,
// untranslated, no colour adjustment.
func DefaultTransform() Transform {
	return Transform{
		Opacity:    1,
		Brightness: 1,
		Contrast:   1,
		Saturation: 1,
		Volume:     1,
		Levels: Levels{
			MinInput:  0,
			MaxInput:  1,
			Gamma:     1,
			MinOutput: 0,
			MaxOutput: 1,
		},
		FillScale: [2]float64{1, 1},
		ClipScale: [2]float64{1, 1},
		FieldMode: Progressive,
	}
}

// Interpolate blends every numeric field toward dest. Flags are sticky across
// a transition (set if set on either end); field mode follows dest.
func (t Transform) Interpolate(dest Transform, progress float64) Transform {
	lerp := func(a, b float64) float64 { return a + (b-a)*progress }
	lerp2 := func(a, b [2]float64) [2]float64 {
		return [2]float64{lerp(a[0], b[0]), lerp(a[1], b[1])}
	}

	return Transform{
		Opacity:    lerp(t.Opacity, dest.Opacity),
		Brightness: lerp(t.Brightness, dest.Brightness),
		Contrast:   lerp(t.Contrast, dest.Contrast),
		Saturation: lerp(t.Saturation, dest.Saturation),
		Volume:     lerp(t.Volume, dest.Volume),
		Levels: Levels{
			MinInput:  lerp(t.Levels.MinInput, dest.Levels.MinInput),
			MaxInput:  lerp(t.Levels.MaxInput, dest.Levels.MaxInput),
			Gamma:     lerp(t.Levels.Gamma, dest.Levels.Gamma),
			MinOutput: lerp(t.Levels.MinOutput, dest.Levels.MinOutput),
			MaxOutput: lerp(t.Levels.MaxOutput, dest.Levels.MaxOutput),
		},
		FillTranslation: lerp2(t.FillTranslation, dest.FillTranslation),
		FillScale:       lerp2(t.FillScale, dest.FillScale),
		ClipTranslation: lerp2(t.ClipTranslation, dest.ClipTranslation),
		ClipScale:       lerp2(t.ClipScale, dest.ClipScale),
		IsKey:           t.IsKey || dest.IsKey,
		IsMix:           t.IsMix || dest.IsMix,
		FieldMode:       dest.FieldMode,
	}
}

// NeedsDeinterlace reports whether the vertical geometry deviates from neutral
// enough that interlaced fields would be torn.
func (t Transform) NeedsDeinterlace() bool {
	return math.Abs(t.FillScale[1]-1) > deinterlaceEpsilon ||
		math.Abs(t.FillTranslation[1]) > deinterlaceEpsilon
}
