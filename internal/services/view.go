package services

import (
	"math"
	"time"

	"github.com/nexcar/rwe-km/internal/engine"
	"github.com/nexcar/rwe-km/internal/gradient"
	"github.com/nexcar/rwe-km/internal/km"
	"github.com/nexcar/rwe-km/internal/models"
	"github.com/nexcar/rwe-km/internal/persona"
	"github.com/nexcar/rwe-km/internal/render"
)

// View is everything a thin client needs to draw the dashboard.
type View struct {
	Version    uint64            `json:"version"`
	RequestID  string            `json:"request_id,omitempty"`
	Phase      engine.Phase      `json:"phase"`
	Mode       engine.ViewMode   `json:"mode"`
	Query      models.Query      `json:"query"`
	Indication string            `json:"indication_label"`
	Source     engine.Source     `json:"source,omitempty"`
	Notice     string            `json:"notice,omitempty"`
	CohortSize int               `json:"cohort_size"`
	Title      string            `json:"title"`
	Curve      *CurveView        `json:"curve,omitempty"`
	Benchmark  *BenchmarkView    `json:"benchmark,omitempty"`
	Selection  *engine.Selection `json:"selection,omitempty"`
	Grid       *persona.Grid     `json:"grid,omitempty"`
	Legend     gradient.Legend   `json:"legend"`
	Viewport   render.Viewport   `json:"viewport"`
	LoadedAt   *time.Time        `json:"loaded_at,omitempty"`
}

// CurveView carries a curve, its statistics and its geometry.
type CurveView struct {
	PatientCount     int               `json:"n"`
	Times            []float64         `json:"x"`
	Probabilities    []float64         `json:"y"`
	IsEmpty          bool              `json:"is_empty"`
	Synthetic        bool              `json:"synthetic"`
	Confidence       km.Confidence     `json:"confidence"`
	Stats            Stats             `json:"stats"`
	Path             string            `json:"path"`
	Markers          []render.Marker   `json:"markers"`
	HitRegions       []render.Region   `json:"hit_regions"`
	Axes             render.Axes       `json:"axes"`
	SurvivalColor    string            `json:"survival_color,omitempty"`
	SurvivalTextTone gradient.TextTone `json:"survival_text,omitempty"`
}

// Stats are the headline numbers. Nil values are shown as "not applicable".
type Stats struct {
	TimelineMonths int      `json:"timeline_months"`
	SurvivalAt     *float64 `json:"survival_at,omitempty"`
	SurvivalAt12   *float64 `json:"survival_at_12,omitempty"`
	MedianMonths   *float64 `json:"median_months,omitempty"`
	MedianReached  bool     `json:"median_reached"`
}

// BenchmarkView compares the displayed curve with a standard-of-care reference.
type BenchmarkView struct {
	Label         string   `json:"label"`
	Path          string   `json:"path"`
	TreatmentPath string   `json:"treatment_path"`
	SurvivalAt12  *float64 `json:"survival_at_12,omitempty"`
	MedianMonths  *float64 `json:"median_months,omitempty"`
	HazardRatio   *float64 `json:"hazard_ratio,omitempty"`
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

func curveStats(c *km.Curve, timeline int) Stats {
	stats := Stats{TimelineMonths: timeline}
	stats.SurvivalAt = optional(c.SurvivalAt(float64(timeline)))
	stats.SurvivalAt12 = optional(c.SurvivalAt(12))
	stats.MedianMonths = optional(c.MedianSurvivalTime())
	stats.MedianReached = c.MedianReached()
	return stats
}

func (s *DashboardService) curveView(c *km.Curve, timeline int) *CurveView {
	path := render.BuildStepPath(c, s.viewport)
	cv := &CurveView{
		PatientCount:  c.PatientCount(),
		Times:         c.Times(),
		Probabilities: c.Probabilities(),
		IsEmpty:       c.IsEmpty(),
		Synthetic:     c.IsSynthetic(),
		Confidence:    c.Confidence(),
		Stats:         curveStats(c, timeline),
		Path:          path.String(),
		Markers:       path.Markers,
		HitRegions:    render.HitRegions(c, s.viewport),
		Axes:          render.BuildAxes(render.NewScale(s.viewport, c.MaxTime())),
	}
	if cv.Stats.SurvivalAt != nil {
		pct := *cv.Stats.SurvivalAt
		cv.SurvivalColor = s.painter.ColorFor(pct, s.scheme).CSS()
		cv.SurvivalTextTone = gradient.TextColorFor(pct)
	}
	return cv
}

// benchmarkView is drawn on a shared scale so treatment and reference overlay.
func (s *DashboardService) benchmarkView(c *km.Curve) *BenchmarkView {
	if c.IsEmpty() {
		return nil
	}
	at12, ok := c.SurvivalAt(12)
	if !ok {
		return nil
	}
	horizon := int(math.Max(12, math.Ceil(c.MaxTime())))
	ref := km.SyntheticBenchmark(c.PatientCount(), at12/100, horizon)
	scale := render.NewScale(s.viewport, math.Max(c.MaxTime(), ref.MaxTime()))

	bv := &BenchmarkView{
		Label:         "Standard of care",
		Path:          render.BuildStepPathScaled(ref, scale).String(),
		TreatmentPath: render.BuildStepPathScaled(c, scale).String(),
		SurvivalAt12:  optional(ref.SurvivalAt(12)),
		MedianMonths:  optional(ref.MedianSurvivalTime()),
	}
	bv.HazardRatio = optional(km.HazardRatio(c, ref))
	return bv
}
