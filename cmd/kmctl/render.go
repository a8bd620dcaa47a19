package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/spf13/cobra"

	"github.com/nexcar/rwe-km/internal/km"
	"github.com/nexcar/rwe-km/internal/render"
)

type renderSummary struct {
	PatientCount  int           `json:"n"`
	Confidence    km.Confidence `json:"confidence"`
	Timeline      int           `json:"timeline_months"`
	SurvivalAt    *float64      `json:"survival_at,omitempty"`
	MedianMonths  *float64      `json:"median_months,omitempty"`
	MedianReached bool          `json:"median_reached"`
	HazardRatio   *float64      `json:"hazard_ratio,omitempty"`
	Path          string        `json:"path"`
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	var (
		file      string
		timeline  int
		svg       bool
		benchmark bool
		title     string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Summarise a curve and draw its step path",
		Long:  "Read a curve in the backend's {n, x, y} shape and print its statistics and SVG path, or a standalone SVG chart with --svg.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if timeline <= 0 {
				return fmt.Errorf("--timeline must be positive")
			}
			in, err := openInput(cmd, file)
			if err != nil {
				return err
			}
			defer in.Close()

			var curve km.Curve
			if err := json.NewDecoder(in).Decode(&curve); err != nil {
				return fmt.Errorf("decode curve: %w", err)
			}
			root.logger(cmd).Debug("curve loaded", slog.Int("points", curve.Len()), slog.Int("n", curve.PatientCount()))

			var reference *km.Curve
			if benchmark && !curve.IsEmpty() {
				if at12, ok := curve.SurvivalAt(12); ok {
					horizon := int(math.Max(12, math.Ceil(curve.MaxTime())))
					reference = km.SyntheticBenchmark(curve.PatientCount(), at12/100, horizon)
				}
			}

			viewport := render.DefaultViewport()
			if svg {
				doc := render.Document{Title: title, Viewport: viewport, Series: []render.Series{{Label: title, Curve: &curve}}}
				if reference != nil {
					doc.Series = append(doc.Series, render.Series{Label: "Standard of care", Curve: reference, Dashed: true})
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), render.RenderSVG(doc))
				return err
			}

			summary := summarise(&curve, timeline, viewport)
			if reference != nil {
				if hr, ok := km.HazardRatio(&curve, reference); ok {
					summary.HazardRatio = &hr
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "curve JSON file, - for stdin")
	cmd.Flags().IntVar(&timeline, "timeline", 12, "timeline in months for survival-at")
	cmd.Flags().BoolVar(&svg, "svg", false, "print a standalone SVG chart")
	cmd.Flags().BoolVar(&benchmark, "benchmark", false, "include the synthetic standard-of-care benchmark")
	cmd.Flags().StringVar(&title, "title", "Overall Cohort", "chart title")
	return cmd
}

func summarise(curve *km.Curve, timeline int, v render.Viewport) renderSummary {
	s := renderSummary{
		PatientCount:  curve.PatientCount(),
		Confidence:    curve.Confidence(),
		Timeline:      timeline,
		MedianReached: curve.MedianReached(),
		Path:          render.BuildStepPath(curve, v).String(),
	}
	if pct, ok := curve.SurvivalAt(float64(timeline)); ok {
		s.SurvivalAt = &pct
	}
	if median, ok := curve.MedianSurvivalTime(); ok {
		s.MedianMonths = &median
	}
	return s
}
