// Package gradient maps survival percentages onto the continuous colour scales used
// by the heat-map cards and the legend.
package gradient

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// RGB is an 8-bit colour.
type RGB struct {
	R, G, B uint8
}

// CSS renders the colour as an rgb() expression.
func (c RGB) CSS() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// Hex renders the colour as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Stop anchors a colour at a percentage.
type Stop struct {
	Percent float64
	Color   RGB
}

// Scheme is a named, immutable set of sorted stops spanning 0 to 100.
type Scheme struct {
	name  string
	stops []Stop
}

// Name returns the scheme identifier.
func (s Scheme) Name() string { return s.name }

// Stops returns a copy of the scheme's stops.
func (s Scheme) Stops() []Stop { return append([]Stop(nil), s.stops...) }

func newScheme(name string, stops ...Stop) Scheme {
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].Percent < stops[j].Percent })
	if len(stops) == 0 || stops[0].Percent != 0 || stops[len(stops)-1].Percent != 100 {
		panic("gradient: scheme " + name + " must span 0..100")
	}
	return Scheme{name: name, stops: stops}
}

var (
	// Clinical runs from deep blue through green and amber to dark red.
	Clinical = newScheme("clinical",
		Stop{0, RGB{0, 32, 96}},
		Stop{20, RGB{0, 150, 200}},
		Stop{40, RGB{0, 200, 100}},
		Stop{60, RGB{150, 220, 0}},
		Stop{80, RGB{255, 165, 0}},
		Stop{100, RGB{139, 0, 0}},
	)
	Viridis = newScheme("viridis",
		Stop{0, RGB{68, 1, 84}},
		Stop{25, RGB{59, 82, 139}},
		Stop{50, RGB{33, 145, 140}},
		Stop{75, RGB{94, 201, 98}},
		Stop{100, RGB{253, 231, 37}},
	)
	Plasma = newScheme("plasma",
		Stop{0, RGB{13, 8, 135}},
		Stop{25, RGB{126, 3, 168}},
		Stop{50, RGB{203, 70, 121}},
		Stop{75, RGB{248, 149, 64}},
		Stop{100, RGB{240, 249, 33}},
	)

	schemes = map[string]Scheme{
		Clinical.name: Clinical,
		Viridis.name:  Viridis,
		Plasma.name:   Plasma,
	}
)

// Lookup returns the scheme registered under name (case-insensitive).
func Lookup(name string) (Scheme, bool) {
	s, ok := schemes[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Names lists the registered schemes in sorted order.
func Names() []string {
	names := make([]string, 0, len(schemes))
	for name := range schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TextTone is the foreground colour class for text drawn over a gradient colour.
type TextTone string

const (
	TextLight TextTone = "light"
	TextDark  TextTone = "dark"
)

// ColorFor interpolates the scheme at percent. Input is clamped to [0,100] and NaN
// is treated as 0.
func ColorFor(percent float64, scheme Scheme) RGB {
	p := clamp(percent)
	stops := scheme.stops

	lo, hi := stops[0], stops[len(stops)-1]
	for i := 0; i < len(stops)-1; i++ {
		if p >= stops[i].Percent && p <= stops[i+1].Percent {
			lo, hi = stops[i], stops[i+1]
			break
		}
	}

	factor := 0.0
	if span := hi.Percent - lo.Percent; span > 0 {
		factor = (p - lo.Percent) / span
	}
	return RGB{
		R: lerp(lo.Color.R, hi.Color.R, factor),
		G: lerp(lo.Color.G, hi.Color.G, factor),
		B: lerp(lo.Color.B, hi.Color.B, factor),
	}
}

// TextColorFor picks dark text from 50% upwards and light text below.
func TextColorFor(percent float64) TextTone {
	if clamp(percent) >= 50 {
		return TextDark
	}
	return TextLight
}

func clamp(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return math.Max(0, math.Min(100, p))
}

func lerp(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + f*(float64(b)-float64(a))))
}
