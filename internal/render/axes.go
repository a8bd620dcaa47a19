package render

import (
	"math"
	"strconv"
)

// MonthTickStep is the spacing of x-axis ticks.
const MonthTickStep = 6

// YTickPercents are the y-axis tick positions.
var YTickPercents = []float64{0, 25, 50, 75, 100}

// Tick is an axis label position.
type Tick struct {
	Value float64 `json:"value"`
	Pos   float64 `json:"pos"`
	Label string  `json:"label"`
}

// Line is a grid line segment.
type Line struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Axes carries ticks and grid lines for a scale.
type Axes struct {
	XTicks    []Tick `json:"x_ticks"`
	YTicks    []Tick `json:"y_ticks"`
	GridLines []Line `json:"grid_lines"`
}

// BuildAxes places month ticks every six months up to the time horizon and
// percentage ticks at quarters.
func BuildAxes(s Scale) Axes {
	var axes Axes
	limit := math.Floor(s.maxTime + 1e-9)
	for m := 0.0; m <= limit; m += MonthTickStep {
		x := s.X(m)
		axes.XTicks = append(axes.XTicks, Tick{Value: m, Pos: x, Label: strconv.Itoa(int(m))})
		axes.GridLines = append(axes.GridLines, Line{X1: x, Y1: 0, X2: x, Y2: s.height})
	}
	for _, pct := range YTickPercents {
		y := s.Y(pct / 100)
		axes.YTicks = append(axes.YTicks, Tick{Value: pct, Pos: y, Label: strconv.Itoa(int(pct)) + "%"})
		axes.GridLines = append(axes.GridLines, Line{X1: 0, Y1: y, X2: s.width, Y2: y})
	}
	return axes
}
