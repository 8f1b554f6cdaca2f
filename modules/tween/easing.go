package tween

import (
	"sort"
	"strings"

	"github.com/tanema/gween/ease"
)

// Easing maps normalized progress t ∈ [0,1] to eased progress.
type Easing func(t float64) float64

// DefaultEasing is the registry fallback; it always exists.
const DefaultEasing = "linear"

// easings holds the Penner set keyed by lower-case name without the "ease" prefix.
var easings = map[string]ease.TweenFunc{
	"linear": ease.Linear, "none": ease.Linear,

	"inquad": ease.InQuad, "outquad": ease.OutQuad, "inoutquad": ease.InOutQuad, "outinquad": ease.OutInQuad,
	"incubic": ease.InCubic, "outcubic": ease.OutCubic, "inoutcubic": ease.InOutCubic, "outincubic": ease.OutInCubic,
	"inquart": ease.InQuart, "outquart": ease.OutQuart, "inoutquart": ease.InOutQuart, "outinquart": ease.OutInQuart,
	"inquint": ease.InQuint, "outquint": ease.OutQuint, "inoutquint": ease.InOutQuint, "outinquint": ease.OutInQuint,
	"insine": ease.InSine, "outsine": ease.OutSine, "inoutsine": ease.InOutSine, "outinsine": ease.OutInSine,
	"inexpo": ease.InExpo, "outexpo": ease.OutExpo, "inoutexpo": ease.InOutExpo, "outinexpo": ease.OutInExpo,
	"incirc": ease.InCirc, "outcirc": ease.OutCirc, "inoutcirc": ease.InOutCirc, "outincirc": ease.OutInCirc,
	"inelastic": ease.InElastic, "outelastic": ease.OutElastic, "inoutelastic": ease.InOutElastic, "outinelastic": ease.OutInElastic,
	"inback": ease.InBack, "outback": ease.OutBack, "inoutback": ease.InOutBack, "outinback": ease.OutInBack,
	"inbounce": ease.InBounce, "outbounce": ease.OutBounce, "inoutbounce": ease.InOutBounce, "outinbounce": ease.OutInBounce,
}

// normalize accepts "EASEINSINE", "easeInSine", "in_sine" and "insine" alike.
func normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer("_", "", "-", "", " ", "").Replace(n)
	if n != "ease" {
		n = strings.TrimPrefix(n, "ease")
	}
	return n
}

// Lookup resolves an easing by name. ok is false for unknown names, in which
// case the returned easing is linear.
func Lookup(name string) (Easing, bool) {
	fn, ok := easings[normalize(name)]
	if !ok {
		fn = ease.Linear
	}
	return adapt(fn), ok
}

// Names returns the registered easing names, sorted.
func Names() []string {
	names := make([]string, 0, len(easings))
	for n := range easings {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// adapt evaluates a Penner function over the unit interval (b=0, c=1, d=1).
func adapt(fn ease.TweenFunc) Easing {
	return func(t float64) float64 {
		return float64(fn(float32(t), 0, 1, 1))
	}
}
