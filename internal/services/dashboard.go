package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nexcar/rwe-km/internal/engine"
	"github.com/nexcar/rwe-km/internal/gradient"
	"github.com/nexcar/rwe-km/internal/models"
	"github.com/nexcar/rwe-km/internal/persona"
	"github.com/nexcar/rwe-km/internal/render"
	"github.com/nexcar/rwe-km/internal/utils"
)

// DashboardService turns orchestrator state into views for the transports.
type DashboardService struct {
	logger       *slog.Logger
	orchestrator *engine.Orchestrator
	layout       *persona.Layout
	resolver     *persona.Resolver
	painter      persona.Painter
	scheme       gradient.Scheme
	viewport     render.Viewport
	defaultQuery models.Query
}

// Options configures NewDashboardService.
type Options struct {
	Logger       *slog.Logger
	Orchestrator *engine.Orchestrator
	Layout       *persona.Layout
	Resolver     *persona.Resolver
	Painter      persona.Painter
	Scheme       string
	Viewport     render.Viewport
	DefaultQuery models.Query
}

// NewDashboardService constructs the dashboard facade.
func NewDashboardService(opts Options) (*DashboardService, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Orchestrator == nil {
		return nil, fmt.Errorf("dashboard service requires an orchestrator")
	}
	scheme, ok := gradient.Lookup(opts.Scheme)
	if !ok {
		if opts.Scheme != "" {
			logger.Warn("unknown colour scheme, using clinical", slog.String("scheme", opts.Scheme))
		}
		scheme = gradient.Clinical
	}
	layout := opts.Layout
	if layout == nil {
		layout = persona.DefaultLayout()
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = persona.NewResolver(logger)
	}
	painter := opts.Painter
	if painter == nil {
		mapper, err := gradient.NewMapper(0)
		if err != nil {
			return nil, err
		}
		painter = mapper
	}
	viewport := opts.Viewport
	if viewport.Width == 0 || viewport.Height == 0 {
		viewport = render.DefaultViewport()
	}

	return &DashboardService{
		logger:       logger,
		orchestrator: opts.Orchestrator,
		layout:       layout,
		resolver:     resolver,
		painter:      painter,
		scheme:       scheme,
		viewport:     viewport,
		defaultQuery: opts.DefaultQuery,
	}, nil
}

// DefaultQuery is the query loaded at start-up.
func (s *DashboardService) DefaultQuery() models.Query { return s.defaultQuery }

// View renders the current state.
func (s *DashboardService) View() View {
	return s.BuildView(s.orchestrator.Snapshot())
}

// Load fetches a dataset and returns the resulting view.
func (s *DashboardService) Load(ctx context.Context, q models.Query) (View, error) {
	if q.Indication == "" {
		q.Indication = s.defaultQuery.Indication
	}
	if q.AnalysisType == "" {
		q.AnalysisType = s.defaultQuery.AnalysisType
	}
	if q.TimelineMonths == 0 {
		q.TimelineMonths = s.defaultQuery.TimelineMonths
	}
	if !q.Filters.Ready() {
		return s.View(), utils.NewError("services.Load", utils.KindInvalidInput,
			fmt.Sprintf("filter level %q requires a selection", q.Filters.ActiveLevel), nil)
	}
	state, err := s.orchestrator.Load(ctx, q)
	return s.BuildView(state), err
}

// Select opens the persona view for sub.
func (s *DashboardService) Select(sub persona.Subgroup) (View, error) {
	state, err := s.orchestrator.Select(sub)
	return s.BuildView(state), err
}

// Reset returns to the overall view.
func (s *DashboardService) Reset() View {
	return s.BuildView(s.orchestrator.Reset())
}

// HitTest finds the point of the displayed curve under pointerX, in plot coordinates.
func (s *DashboardService) HitTest(pointerX float64) (render.Hit, bool) {
	state := s.orchestrator.Snapshot()
	if state.Displayed == nil {
		return render.Hit{}, false
	}
	return render.HitTest(pointerX, state.Displayed, s.viewport)
}

// Subscribe delivers a fresh view after every state change.
func (s *DashboardService) Subscribe(fn func(View)) (cancel func()) {
	return s.orchestrator.Subscribe(func(state engine.State) {
		fn(s.BuildView(state))
	})
}

// Legend describes a named colour scheme; an empty name selects the configured one.
func (s *DashboardService) Legend(name string) (gradient.Legend, error) {
	scheme, err := s.lookupScheme(name)
	if err != nil {
		return gradient.Legend{}, err
	}
	return gradient.NewLegend(scheme), nil
}

// Swatch colours a single percentage under a named scheme.
func (s *DashboardService) Swatch(name string, percent float64) (gradient.Swatch, error) {
	scheme, err := s.lookupScheme(name)
	if err != nil {
		return gradient.Swatch{}, err
	}
	return gradient.Swatch{
		Percent: percent,
		Color:   s.painter.ColorFor(percent, scheme).CSS(),
		Text:    gradient.TextColorFor(percent),
	}, nil
}

func (s *DashboardService) lookupScheme(name string) (gradient.Scheme, error) {
	if name == "" {
		return s.scheme, nil
	}
	scheme, ok := gradient.Lookup(name)
	if !ok {
		return gradient.Scheme{}, utils.NewError("services.lookupScheme", utils.KindInvalidInput, fmt.Sprintf("unknown colour scheme %q", name), nil)
	}
	return scheme, nil
}

// BuildView renders state. It only reads the state.
func (s *DashboardService) BuildView(state engine.State) View {
	v := View{
		Version:    state.Version,
		RequestID:  state.RequestID,
		Phase:      state.Phase,
		Mode:       state.Mode,
		Query:      state.Query,
		Indication: state.Query.Indication.Label(),
		Selection:  state.Selection,
		Legend:     gradient.NewLegend(s.scheme),
		Viewport:   s.viewport,
		Title:      "Overall Cohort",
	}
	if state.Selection != nil {
		v.Title = persona.CanonicalKey(state.Selection.Subgroup)
	}

	ds := state.Dataset
	if ds == nil {
		return v
	}
	loaded := ds.LoadedAt
	v.LoadedAt = &loaded
	v.Source = ds.Source
	v.Notice = ds.Notice
	v.CohortSize = ds.CohortSize

	timeline := ds.Query.TimelineMonths
	if state.Displayed != nil {
		v.Curve = s.curveView(state.Displayed, timeline)
		v.Benchmark = s.benchmarkView(state.Displayed)
	}
	if def, ok := s.layout.For(string(ds.Query.Indication)); ok && len(ds.Personas) > 0 {
		grid := persona.GridBuilder{Resolver: s.resolver, Painter: s.painter, Scheme: s.scheme}.Build(def, ds.Personas, timeline)
		v.Grid = &grid
	}
	return v
}
