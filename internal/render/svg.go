package render

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/nexcar/rwe-km/internal/km"
)

// Series is one curve drawn into an SVG document.
type Series struct {
	Label  string
	Curve  *km.Curve
	Stroke string
	Dashed bool
}

// Document configures RenderSVG.
type Document struct {
	Title    string
	Viewport Viewport
	Series   []Series
}

// RenderSVG writes a standalone chart with axes, grid lines and one step path per
// series. All series share the widest time domain.
func RenderSVG(doc Document) string {
	v := doc.Viewport
	if v.Width == 0 || v.Height == 0 {
		v = DefaultViewport()
	}
	maxTime := 0.0
	for _, s := range doc.Series {
		if s.Curve != nil && s.Curve.Len() > 0 {
			maxTime = math.Max(maxTime, s.Curve.MaxTime())
		}
	}
	scale := NewScale(v, maxTime)
	axes := BuildAxes(scale)

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		formatCoord(v.Width), formatCoord(v.Height), formatCoord(v.Width), formatCoord(v.Height))
	b.WriteByte('\n')
	if doc.Title != "" {
		fmt.Fprintf(&b, `  <text x="%s" y="%s" text-anchor="middle" font-size="14" font-weight="600">%s</text>`+"\n",
			formatCoord(v.Width/2), formatCoord(v.MarginTop/2), html.EscapeString(doc.Title))
	}
	fmt.Fprintf(&b, `  <g transform="translate(%s,%s)">`+"\n", formatCoord(v.MarginLeft), formatCoord(v.MarginTop))

	for _, l := range axes.GridLines {
		fmt.Fprintf(&b, `    <line x1="%s" y1="%s" x2="%s" y2="%s" stroke="#e5e7eb" stroke-width="1"/>`+"\n",
			formatCoord(l.X1), formatCoord(l.Y1), formatCoord(l.X2), formatCoord(l.Y2))
	}
	for _, t := range axes.XTicks {
		fmt.Fprintf(&b, `    <text x="%s" y="%s" text-anchor="middle" font-size="11">%s</text>`+"\n",
			formatCoord(t.Pos), formatCoord(scale.height+18), t.Label)
	}
	for _, t := range axes.YTicks {
		fmt.Fprintf(&b, `    <text x="-8" y="%s" text-anchor="end" dominant-baseline="middle" font-size="11">%s</text>`+"\n",
			formatCoord(t.Pos), t.Label)
	}

	for i, s := range doc.Series {
		if s.Curve == nil || s.Curve.Len() == 0 {
			continue
		}
		stroke := s.Stroke
		if stroke == "" {
			stroke = defaultStrokes[i%len(defaultStrokes)]
		}
		dash := ""
		if s.Dashed {
			dash = ` stroke-dasharray="6 4"`
		}
		path := BuildStepPathScaled(s.Curve, scale)
		fmt.Fprintf(&b, `    <path d="%s" fill="none" stroke="%s" stroke-width="2"%s/>`+"\n", path.String(), html.EscapeString(stroke), dash)
		if s.Label != "" {
			last := path.Markers[len(path.Markers)-1]
			fmt.Fprintf(&b, `    <text x="%s" y="%s" font-size="11" fill="%s">%s</text>`+"\n",
				formatCoord(last.X+6), formatCoord(last.Y), html.EscapeString(stroke), html.EscapeString(s.Label))
		}
	}

	b.WriteString("  </g>\n</svg>\n")
	return b.String()
}

var defaultStrokes = []string{"#2563eb", "#9ca3af", "#dc2626"}
