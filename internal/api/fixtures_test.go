package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nexcar/rwe-km/internal/engine"
	"github.com/nexcar/rwe-km/internal/models"
	"github.com/nexcar/rwe-km/internal/services"
)

type stubBackend struct {
	resp *models.AnalysisResponse
}

func (s *stubBackend) CheckHealth(context.Context) error { return nil }

func (s *stubBackend) FetchSurvivalAnalysis(context.Context, models.Query) (*models.AnalysisResponse, error) {
	return s.resp, nil
}

func sampleResponse() *models.AnalysisResponse {
	return &models.AnalysisResponse{
		CohortSize: 40,
		OverallKM:  &models.KMSeries{N: 40, X: []float64{0, 3, 6, 9, 12}, Y: []float64{1.0, 0.6, 0.55, 0.48, 0.40}},
		PersonaKMObjects: []models.PersonaSeries{
			{Persona: "Early Relapse | Bulky | IPI High (3–5)", N: 28, X: []float64{0, 6, 12}, Y: []float64{1, 0.5, 0.3}},
		},
	}
}

func newTestDashboard(t *testing.T) *services.DashboardService {
	t.Helper()
	svc, err := services.NewDashboardService(services.Options{
		Orchestrator: engine.New(engine.Options{Backend: &stubBackend{resp: sampleResponse()}}),
		Scheme:       "clinical",
		DefaultQuery: models.Query{Indication: models.IndicationNHL, AnalysisType: models.AnalysisPFS, TimelineMonths: 12},
	})
	require.NoError(t, err)
	return svc
}

func mustStruct(t *testing.T, v any) *structpb.Struct {
	t.Helper()
	s, err := ToStruct(v)
	require.NoError(t, err)
	return s
}
