package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/goleak"

	"github.com/nexcar/rwe-km/internal/metrics"
	"github.com/nexcar/rwe-km/internal/models"
	"github.com/nexcar/rwe-km/internal/persona"
	"github.com/nexcar/rwe-km/internal/utils"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	keyNBLow = "Primary Refractory | Non-Bulky | IPI Low (0–2)"
	keyBLow  = "Primary Refractory | Bulky | IPI Low (0–2)"
)

type fakeBackend struct {
	mu         sync.Mutex
	healthErr  error
	fetchErr   error
	responses  map[models.Indication]*models.AnalysisResponse
	gates      map[string]chan struct{}
	fetchCalls int
}

func (f *fakeBackend) CheckHealth(context.Context) error { return f.healthErr }

func (f *fakeBackend) FetchSurvivalAnalysis(ctx context.Context, q models.Query) (*models.AnalysisResponse, error) {
	f.mu.Lock()
	f.fetchCalls++
	gate := f.gates[q.Filters.SelectedInstitute]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.responses[q.Indication], nil
}

func nhlResponse() *models.AnalysisResponse {
	return &models.AnalysisResponse{
		CohortSize: 60,
		OverallKM:  &models.KMSeries{N: 60, X: []float64{0, 6, 12}, Y: []float64{1, 0.8, 0.7}},
		PersonaKMObjects: []models.PersonaSeries{
			{Persona: keyNBLow, N: 25, X: []float64{0, 6, 12}, Y: []float64{1, 0.7, 0.48}},
			{Persona: keyBLow, N: 20, X: []float64{0, 6, 12}, Y: []float64{1, 0.9, 0.6}},
			{Persona: "Late Relapse | Bulky | IPI High (3–5)", N: 15, X: []float64{0, 6}, Y: []float64{1, 1.2}},
		},
	}
}

func ballResponse() *models.AnalysisResponse {
	return &models.AnalysisResponse{
		CohortSize: 30,
		OverallKM:  &models.KMSeries{N: 30, X: []float64{0, 12}, Y: []float64{1, 0.55}},
		PersonaKMObjects: []models.PersonaSeries{
			{Persona: "Refractory | Blast <5%", N: 30, X: []float64{0, 12}, Y: []float64{1, 0.55}},
		},
	}
}

func newTestOrchestrator(backend Backend) (*Orchestrator, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	var seq int
	var mu sync.Mutex
	return New(Options{
		Backend:  backend,
		Logger:   logger,
		Resolver: persona.NewResolver(logger),
		NewRequestID: func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("req-%d", seq)
		},
	}), &buf
}

func nhlQuery() models.Query {
	return models.Query{Indication: models.IndicationNHL, AnalysisType: models.AnalysisPFS, TimelineMonths: 12}
}

func TestLoadAppliesLiveDataset(t *testing.T) {
	backend := &fakeBackend{responses: map[models.Indication]*models.AnalysisResponse{models.IndicationNHL: nhlResponse()}}
	o, logs := newTestOrchestrator(backend)

	s, err := o.Load(context.Background(), nhlQuery())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Phase != PhaseReady || s.Mode != ViewOverall || s.Dataset.Source != SourceLive {
		t.Fatalf("unexpected state %+v", s)
	}
	if s.Displayed != s.Dataset.Overall || s.Displayed.PatientCount() != 60 {
		t.Fatalf("overall curve should be displayed")
	}
	if len(s.Dataset.Personas) != 2 {
		t.Fatalf("invalid persona curve should be dropped, got %d", len(s.Dataset.Personas))
	}
	if !strings.Contains(logs.String(), "dropping invalid persona curve") {
		t.Fatalf("dropped persona should be logged")
	}
}

func TestLoadFallsBackWhenUnhealthy(t *testing.T) {
	backend := &fakeBackend{healthErr: errors.New("down")}
	o, _ := newTestOrchestrator(backend)

	s, err := o.Load(context.Background(), nhlQuery())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Dataset.Source != SourceSynthetic || s.Dataset.Notice == "" {
		t.Fatalf("expected synthetic dataset with notice, got %+v", s.Dataset)
	}
	if !s.Displayed.IsSynthetic() || s.Dataset.CohortSize != 175 {
		t.Fatalf("unexpected fallback curve")
	}
	if backend.fetchCalls != 0 {
		t.Fatalf("unhealthy backend should not be queried")
	}
}

func TestLoadFallsBackOnTransportAndIntegrityErrors(t *testing.T) {
	transport := &fakeBackend{fetchErr: errors.New("connection reset")}
	o, _ := newTestOrchestrator(transport)
	s, _ := o.Load(context.Background(), nhlQuery())
	if s.Dataset.Source != SourceSynthetic {
		t.Fatalf("transport failure should fall back")
	}

	broken := nhlResponse()
	broken.OverallKM.Y = []float64{1, 0.6, 0.7}
	integrity := &fakeBackend{responses: map[models.Indication]*models.AnalysisResponse{models.IndicationNHL: broken}}
	o, _ = newTestOrchestrator(integrity)
	s, _ = o.Load(context.Background(), nhlQuery())
	if s.Dataset.Source != SourceSynthetic || len(s.Dataset.Personas) != 0 {
		t.Fatalf("integrity failure should discard the response, got %+v", s.Dataset)
	}
	if !strings.Contains(s.Dataset.Notice, "validation") {
		t.Fatalf("unexpected notice %q", s.Dataset.Notice)
	}
}

func TestLoadRejectsInvalidQuery(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeBackend{})
	_, err := o.Load(context.Background(), models.Query{Indication: "cll", AnalysisType: models.AnalysisPFS, TimelineMonths: 12})
	if !utils.IsKind(err, utils.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if o.Snapshot().Phase != PhaseIdle {
		t.Fatalf("invalid query should not start a load")
	}
}

func TestSelectResolvesExactPersona(t *testing.T) {
	backend := &fakeBackend{responses: map[models.Indication]*models.AnalysisResponse{models.IndicationNHL: nhlResponse()}}
	o, _ := newTestOrchestrator(backend)
	if _, err := o.Load(context.Background(), nhlQuery()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	s, err := o.Select(persona.Subgroup{RowTitle: "Primary Refractory", Bulk: persona.BulkNonBulky, Risk: persona.RiskLow, PatientCount: 25})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if s.Mode != ViewPersona || s.Selection.Key != keyNBLow || s.Selection.Match != persona.OutcomeExact {
		t.Fatalf("unexpected selection %+v", s.Selection)
	}
	if pct, _ := s.Displayed.SurvivalAt(12); pct != 48 {
		t.Fatalf("displayed persona survival = %v", pct)
	}

	s, _ = o.Select(persona.Subgroup{RowTitle: "Primary Refractory", Bulk: persona.BulkBulky, Risk: persona.RiskLow, PatientCount: 20})
	if s.Mode != ViewPersona || s.Selection.Key != keyBLow {
		t.Fatalf("re-click in persona mode should switch curves, got %+v", s.Selection)
	}
}

func TestSelectZeroPatientsSkipsResolver(t *testing.T) {
	backend := &fakeBackend{responses: map[models.Indication]*models.AnalysisResponse{models.IndicationNHL: nhlResponse()}}
	o, logs := newTestOrchestrator(backend)
	if _, err := o.Load(context.Background(), nhlQuery()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	logs.Reset()

	s, err := o.Select(persona.Subgroup{RowTitle: "Primary Refractory", Bulk: persona.BulkNonBulky, Risk: persona.RiskLow})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if s.Selection.Outcome != SelectionEmpty || s.Selection.Match != "" {
		t.Fatalf("zero-patient subgroup must bypass resolution, got %+v", s.Selection)
	}
	if !s.Displayed.IsEmpty() || s.Displayed.Len() != 25 {
		t.Fatalf("expected empty sentinel")
	}
	if logs.Len() != 0 {
		t.Fatalf("resolver should not log for empty subgroup: %s", logs.String())
	}
}

func TestSelectMissShowsUnresolved(t *testing.T) {
	backend := &fakeBackend{responses: map[models.Indication]*models.AnalysisResponse{models.IndicationNHL: nhlResponse()}}
	o, _ := newTestOrchestrator(backend)
	if _, err := o.Load(context.Background(), nhlQuery()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	s, _ := o.Select(persona.Subgroup{RowTitle: "Early Relapse", Bulk: persona.BulkBulky, Risk: persona.RiskHigh, PatientCount: 4})
	if s.Mode != ViewPersona || s.Selection.Outcome != SelectionUnresolved || !s.Displayed.IsEmpty() {
		t.Fatalf("unexpected state %+v", s.Selection)
	}
}

func TestSelectBeforeLoad(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeBackend{})
	if _, err := o.Select(persona.Subgroup{RowTitle: "Late Relapse", PatientCount: 3}); !errors.Is(err, ErrNoDataset) {
		t.Fatalf("expected ErrNoDataset, got %v", err)
	}
}

func TestResetReturnsToOverall(t *testing.T) {
	backend := &fakeBackend{responses: map[models.Indication]*models.AnalysisResponse{models.IndicationNHL: nhlResponse()}}
	o, _ := newTestOrchestrator(backend)
	if _, err := o.Load(context.Background(), nhlQuery()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := o.Select(persona.Subgroup{RowTitle: "Primary Refractory", Bulk: persona.BulkBulky, Risk: persona.RiskLow, PatientCount: 20}); err != nil {
		t.Fatalf("Select: %v", err)
	}
	s := o.Reset()
	if s.Mode != ViewOverall || s.Selection != nil || s.Displayed != s.Dataset.Overall {
		t.Fatalf("unexpected state after reset %+v", s)
	}
	if again := o.Reset(); again.Version != s.Version {
		t.Fatalf("reset in overall mode should be a no-op")
	}
}

func TestIndicationChangeReturnsToOverall(t *testing.T) {
	backend := &fakeBackend{
		responses: map[models.Indication]*models.AnalysisResponse{
			models.IndicationNHL:  nhlResponse(),
			models.IndicationBALL: ballResponse(),
		},
		gates: make(map[string]chan struct{}),
	}
	o, _ := newTestOrchestrator(backend)
	if _, err := o.Load(context.Background(), nhlQuery()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := o.Select(persona.Subgroup{RowTitle: "Primary Refractory", Bulk: persona.BulkBulky, Risk: persona.RiskLow, PatientCount: 20}); err != nil {
		t.Fatalf("Select: %v", err)
	}

	gate := make(chan struct{})
	backend.mu.Lock()
	backend.gates["gate"] = gate
	backend.mu.Unlock()

	q := models.Query{Indication: models.IndicationBALL, AnalysisType: models.AnalysisPFS, TimelineMonths: 12, Filters: models.Filters{SelectedInstitute: "gate"}}
	done := make(chan State)
	go func() {
		s, _ := o.Load(context.Background(), q)
		done <- s
	}()

	waitFor(t, func() bool { return o.Snapshot().Phase == PhaseLoading })
	mid := o.Snapshot()
	if mid.Mode != ViewOverall || mid.Selection != nil || mid.Dataset != nil {
		t.Fatalf("indication change should invalidate selection immediately, got %+v", mid)
	}

	close(gate)
	s := <-done
	if s.Dataset.Query.Indication != models.IndicationBALL || s.Displayed.PatientCount() != 30 {
		t.Fatalf("unexpected dataset after indication change")
	}
}

func TestFilterChangeReResolvesSelection(t *testing.T) {
	backend := &fakeBackend{responses: map[models.Indication]*models.AnalysisResponse{models.IndicationNHL: nhlResponse()}}
	o, _ := newTestOrchestrator(backend)
	if _, err := o.Load(context.Background(), nhlQuery()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := o.Select(persona.Subgroup{RowTitle: "Primary Refractory", Bulk: persona.BulkBulky, Risk: persona.RiskLow, PatientCount: 20}); err != nil {
		t.Fatalf("Select: %v", err)
	}

	q := nhlQuery()
	q.Filters = models.Filters{ActiveLevel: models.LevelRegion, SelectedRegion: "South"}
	s, err := o.Load(context.Background(), q)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Mode != ViewPersona || s.Selection.Key != keyBLow {
		t.Fatalf("selection should survive a filter change, got %+v", s.Selection)
	}
	if cur, _ := s.Dataset.Curve(keyBLow); s.Displayed != cur {
		t.Fatalf("displayed curve should come from the new dataset")
	}
}

func resolutionCount(t *testing.T, reg *prometheus.Registry, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "rwe_km_resolutions_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestReloadInPersonaModeCountsResolution(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	backend := &fakeBackend{responses: map[models.Indication]*models.AnalysisResponse{models.IndicationNHL: nhlResponse()}}
	o, _ := newTestOrchestrator(backend)
	if _, err := o.Load(context.Background(), nhlQuery()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := o.Select(persona.Subgroup{RowTitle: "Primary Refractory", Bulk: persona.BulkBulky, Risk: persona.RiskLow, PatientCount: 20}); err != nil {
		t.Fatalf("Select: %v", err)
	}

	before := resolutionCount(t, reg, string(SelectionResolved))
	q := nhlQuery()
	q.Filters = models.Filters{ActiveLevel: models.LevelRegion, SelectedRegion: "South"}
	if _, err := o.Load(context.Background(), q); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := resolutionCount(t, reg, string(SelectionResolved)) - before; got != 1 {
		t.Fatalf("reload should count one resolved selection, got %v", got)
	}

	before = resolutionCount(t, reg, string(SelectionResolved))
	o.Reset()
	if _, err := o.Load(context.Background(), q); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := resolutionCount(t, reg, string(SelectionResolved)) - before; got != 0 {
		t.Fatalf("overall-mode reload should not count a resolution, got %v", got)
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	backend := &fakeBackend{
		responses: map[models.Indication]*models.AnalysisResponse{
			models.IndicationNHL:  nhlResponse(),
			models.IndicationBALL: ballResponse(),
		},
		gates: map[string]chan struct{}{"slow": make(chan struct{})},
	}
	o, logs := newTestOrchestrator(backend)

	slow := nhlQuery()
	slow.Filters = models.Filters{ActiveLevel: models.LevelInstitute, SelectedInstitute: "slow"}
	done := make(chan State)
	go func() {
		s, _ := o.Load(context.Background(), slow)
		done <- s
	}()
	waitFor(t, func() bool { return o.Snapshot().RequestID == "req-1" })

	fast := models.Query{Indication: models.IndicationBALL, AnalysisType: models.AnalysisOS, TimelineMonths: 24}
	latest, err := o.Load(context.Background(), fast)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	close(backend.gates["slow"])
	stale := <-done
	if stale.RequestID != latest.RequestID {
		t.Fatalf("late response should return the current state")
	}
	final := o.Snapshot()
	if final.Dataset.Query.Indication != models.IndicationBALL || final.Version != latest.Version {
		t.Fatalf("late response must not overwrite the newer dataset, got %+v", final.Dataset.Query)
	}
	if !strings.Contains(logs.String(), "discarding superseded survival response") {
		t.Fatalf("stale response should be logged")
	}
}

func TestSubscribeReceivesStates(t *testing.T) {
	backend := &fakeBackend{responses: map[models.Indication]*models.AnalysisResponse{models.IndicationNHL: nhlResponse()}}
	o, _ := newTestOrchestrator(backend)

	var mu sync.Mutex
	var versions []uint64
	cancel := o.Subscribe(func(s State) {
		mu.Lock()
		versions = append(versions, s.Version)
		mu.Unlock()
	})
	if _, err := o.Load(context.Background(), nhlQuery()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cancel()
	o.Reset()
	if _, err := o.Select(persona.Subgroup{RowTitle: "Primary Refractory", PatientCount: 0}); err != nil {
		t.Fatalf("Select: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(versions) != 2 || versions[0] != 1 || versions[1] != 2 {
		t.Fatalf("expected loading and ready notifications, got %v", versions)
	}
}
