package render

import (
	"math"

	"github.com/nexcar/rwe-km/internal/km"
)

// Region is the horizontal pointer band that activates one point.
type Region struct {
	Index int     `json:"index"`
	X0    float64 `json:"x0"`
	X1    float64 `json:"x1"`
}

// Hit describes the point under the pointer.
type Hit struct {
	Marker
	Months int `json:"months"`
}

// HitRegions lists the hover band of every point. The first point owns [0, FirstBand);
// every other point owns [x-HitRadius, x+HitRadius].
func HitRegions(curve *km.Curve, v Viewport) []Region {
	if curve == nil || curve.IsEmpty() || curve.Len() == 0 {
		return nil
	}
	s := NewScale(v, curve.MaxTime())
	regions := make([]Region, 0, curve.Len())
	for i := 0; i < curve.Len(); i++ {
		t, _ := curve.Point(i)
		if i == 0 {
			regions = append(regions, Region{Index: 0, X0: 0, X1: v.FirstBand})
			continue
		}
		x := s.X(t)
		regions = append(regions, Region{Index: i, X0: x - v.HitRadius, X1: x + v.HitRadius})
	}
	return regions
}

func (r Region) contains(x float64) bool {
	if r.Index == 0 {
		return x >= r.X0 && x < r.X1
	}
	return x >= r.X0 && x <= r.X1
}

// HitTest returns the point closest to pointerX among the regions containing it.
// Ties go to the earlier point. The empty sentinel never hits.
func HitTest(pointerX float64, curve *km.Curve, v Viewport) (Hit, bool) {
	if math.IsNaN(pointerX) {
		return Hit{}, false
	}
	regions := HitRegions(curve, v)
	if len(regions) == 0 {
		return Hit{}, false
	}
	s := NewScale(v, curve.MaxTime())

	best, bestDist := -1, math.Inf(1)
	for _, r := range regions {
		if !r.contains(pointerX) {
			continue
		}
		t, _ := curve.Point(r.Index)
		if d := math.Abs(s.X(t) - pointerX); d < bestDist {
			best, bestDist = r.Index, d
		}
	}
	if best < 0 {
		return Hit{}, false
	}

	t, p := curve.Point(best)
	return Hit{
		Marker: Marker{Index: best, Time: t, Percent: math.Round(p * 100), X: s.X(t), Y: s.Y(p)},
		Months: int(math.Round(t)),
	}, true
}
