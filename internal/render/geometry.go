// Package render turns survival curves into chart geometry: step paths, hit regions,
// axis ticks and standalone SVG documents. Coordinates are relative to the plot area,
// with the origin at its top-left corner.
package render

import (
	"math"
	"strconv"
	"strings"

	"github.com/nexcar/rwe-km/internal/km"
)

// Viewport is the chart size, its margins and the pointer tolerances in pixels.
type Viewport struct {
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	MarginTop    float64 `json:"margin_top"`
	MarginRight  float64 `json:"margin_right"`
	MarginBottom float64 `json:"margin_bottom"`
	MarginLeft   float64 `json:"margin_left"`
	HitRadius    float64 `json:"hit_radius"`
	FirstBand    float64 `json:"first_band"`
}

// DefaultViewport matches the dashboard's 800x350 chart.
func DefaultViewport() Viewport {
	return Viewport{
		Width:        800,
		Height:       350,
		MarginTop:    40,
		MarginRight:  80,
		MarginBottom: 60,
		MarginLeft:   80,
		HitRadius:    10,
		FirstBand:    10,
	}
}

// ChartWidth is the plot area width.
func (v Viewport) ChartWidth() float64 { return math.Max(0, v.Width-v.MarginLeft-v.MarginRight) }

// ChartHeight is the plot area height.
func (v Viewport) ChartHeight() float64 { return math.Max(0, v.Height-v.MarginTop-v.MarginBottom) }

// Scale maps months and probabilities onto plot coordinates.
type Scale struct {
	maxTime float64
	width   float64
	height  float64
}

// NewScale builds a scale for the domain [0, maxTime]. A non-positive maxTime is
// treated as the domain [0, 1].
func NewScale(v Viewport, maxTime float64) Scale {
	if maxTime <= 0 || math.IsNaN(maxTime) {
		maxTime = 1
	}
	return Scale{maxTime: maxTime, width: v.ChartWidth(), height: v.ChartHeight()}
}

// MaxTime is the upper bound of the time domain.
func (s Scale) MaxTime() float64 { return s.maxTime }

// X maps months to a horizontal pixel position.
func (s Scale) X(months float64) float64 { return months / s.maxTime * s.width }

// Y maps a probability to a vertical pixel position; 1 is at the top.
func (s Scale) Y(prob float64) float64 { return s.height - prob*s.height }

// Command is one SVG path instruction.
type Command struct {
	Op string  `json:"op"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Marker is a plotted data point.
type Marker struct {
	Index   int     `json:"index"`
	Time    float64 `json:"time"`
	Percent float64 `json:"percent"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// Path is the step-after geometry of a curve.
type Path struct {
	Commands []Command `json:"commands"`
	Markers  []Marker  `json:"markers"`
}

// String renders the path as an SVG "d" attribute.
func (p Path) String() string {
	var b strings.Builder
	for i, c := range p.Commands {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.Op)
		b.WriteByte(' ')
		b.WriteString(formatCoord(c.X))
		b.WriteByte(' ')
		b.WriteString(formatCoord(c.Y))
	}
	return b.String()
}

// BuildStepPath draws the curve as a step function scaled to its own time domain.
func BuildStepPath(curve *km.Curve, v Viewport) Path {
	if curve == nil || curve.Len() == 0 {
		return Path{}
	}
	return BuildStepPathScaled(curve, NewScale(v, curve.MaxTime()))
}

// BuildStepPathScaled draws the curve on a shared scale so several curves overlay.
// Each step holds the previous probability until the next time point, then drops.
func BuildStepPathScaled(curve *km.Curve, s Scale) Path {
	if curve == nil || curve.Len() == 0 {
		return Path{}
	}
	n := curve.Len()
	path := Path{
		Commands: make([]Command, 0, 2*n-1),
		Markers:  make([]Marker, 0, n),
	}
	t0, p0 := curve.Point(0)
	path.Commands = append(path.Commands, Command{Op: "M", X: s.X(t0), Y: s.Y(p0)})
	path.Markers = append(path.Markers, Marker{Index: 0, Time: t0, Percent: math.Round(p0 * 100), X: s.X(t0), Y: s.Y(p0)})

	prev := p0
	for i := 1; i < n; i++ {
		t, p := curve.Point(i)
		x := s.X(t)
		path.Commands = append(path.Commands,
			Command{Op: "L", X: x, Y: s.Y(prev)},
			Command{Op: "L", X: x, Y: s.Y(p)},
		)
		path.Markers = append(path.Markers, Marker{Index: i, Time: t, Percent: math.Round(p * 100), X: x, Y: s.Y(p)})
		prev = p
	}
	return path
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
