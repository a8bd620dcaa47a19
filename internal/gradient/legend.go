package gradient

import (
	"fmt"
	"strconv"
	"strings"
)

// SwatchPercents are the sample points rendered under the legend bar.
var SwatchPercents = []float64{10, 30, 50, 70, 90}

// Swatch is one legend sample.
type Swatch struct {
	Percent float64  `json:"percent"`
	Color   string   `json:"color"`
	Text    TextTone `json:"text"`
}

// Legend describes how the dashboard draws a scheme's colour bar.
type Legend struct {
	Scheme   string   `json:"scheme"`
	Gradient string   `json:"gradient"`
	Swatches []Swatch `json:"swatches"`
}

// LinearGradientCSS renders the scheme as a left-to-right CSS gradient.
func LinearGradientCSS(scheme Scheme) string {
	parts := make([]string, 0, len(scheme.stops))
	for _, stop := range scheme.stops {
		parts = append(parts, fmt.Sprintf("%s %s%%", stop.Color.CSS(), strconv.FormatFloat(stop.Percent, 'f', -1, 64)))
	}
	return "linear-gradient(to right, " + strings.Join(parts, ", ") + ")"
}

// NewLegend builds the legend for scheme.
func NewLegend(scheme Scheme) Legend {
	swatches := make([]Swatch, 0, len(SwatchPercents))
	for _, p := range SwatchPercents {
		swatches = append(swatches, Swatch{Percent: p, Color: ColorFor(p, scheme).CSS(), Text: TextColorFor(p)})
	}
	return Legend{Scheme: scheme.name, Gradient: LinearGradientCSS(scheme), Swatches: swatches}
}
