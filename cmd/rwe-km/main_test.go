package main

import (
	"testing"

	"github.com/nexcar/rwe-km/internal/config"
	"github.com/nexcar/rwe-km/internal/models"
)

func TestInitialQuery(t *testing.T) {
	q, err := initialQuery(config.DashboardConfig{Indication: "B-ALL", AnalysisType: "os", TimelineMonths: 24})
	if err != nil {
		t.Fatalf("initialQuery: %v", err)
	}
	if q.Indication != models.IndicationBALL || q.AnalysisType != models.AnalysisOS || q.TimelineMonths != 24 {
		t.Fatalf("unexpected query %+v", q)
	}

	if _, err := initialQuery(config.DashboardConfig{Indication: "nhl", AnalysisType: "pfs"}); err == nil {
		t.Fatal("expected error for zero timeline")
	}
	if _, err := initialQuery(config.DashboardConfig{Indication: "cll", AnalysisType: "pfs", TimelineMonths: 12}); err == nil {
		t.Fatal("expected error for unknown indication")
	}
}
