package main

import (
	"testing"

	"github.com/nexcar/rwe-km/internal/km"
	"github.com/nexcar/rwe-km/internal/models"
	"github.com/nexcar/rwe-km/internal/persona"
)

func TestBuildResponseProducesValidCurves(t *testing.T) {
	layout := persona.DefaultLayout()
	for _, ind := range []string{"nhl", "all"} {
		resp := buildResponse(layout, models.AnalysisRequest{Indication: ind, AnalysisType: "pfs", FilterType: "all"})
		grid, _ := layout.For(ind)
		if want := len(grid.Rows)*len(grid.Columns) - 1; len(resp.PersonaKMObjects) != want {
			t.Fatalf("%s: expected %d personas, got %d", ind, want, len(resp.PersonaKMObjects))
		}
		if _, err := km.NewCurve(resp.OverallKM.N, resp.OverallKM.X, resp.OverallKM.Y); err != nil {
			t.Fatalf("%s: overall curve invalid: %v", ind, err)
		}
		sum := 0
		for _, p := range resp.PersonaKMObjects {
			if _, err := km.NewCurve(p.N, p.X, p.Y); err != nil {
				t.Fatalf("%s: persona %q invalid: %v", ind, p.Persona, err)
			}
			sum += p.N
		}
		if sum != resp.CohortSize {
			t.Fatalf("%s: cohort %d does not match persona total %d", ind, resp.CohortSize, sum)
		}
	}
}

func TestBuildResponseNarrowsFilteredCohort(t *testing.T) {
	layout := persona.DefaultLayout()
	global := buildResponse(layout, models.AnalysisRequest{Indication: "nhl", FilterType: "all"})
	region := buildResponse(layout, models.AnalysisRequest{Indication: "nhl", FilterType: "zone", FilterValue: "North"})
	if region.CohortSize >= global.CohortSize {
		t.Fatalf("expected filtered cohort smaller than %d, got %d", global.CohortSize, region.CohortSize)
	}
}
