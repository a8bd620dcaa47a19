package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexcar/rwe-km/internal/km"
	"github.com/nexcar/rwe-km/internal/metrics"
	"github.com/nexcar/rwe-km/internal/models"
	"github.com/nexcar/rwe-km/internal/persona"
	"github.com/nexcar/rwe-km/internal/utils"
)

// ErrNoDataset is returned by Select before any dataset has been applied.
var ErrNoDataset = errors.New("no dataset loaded")

// Backend is the survival service the orchestrator loads from.
type Backend interface {
	CheckHealth(ctx context.Context) error
	FetchSurvivalAnalysis(ctx context.Context, q models.Query) (*models.AnalysisResponse, error)
}

// fallbackProfile is the illustrative cohort shown when live data is unavailable.
type fallbackProfile struct {
	cohort   int
	baseRate float64
}

var fallbackProfiles = map[models.Indication]fallbackProfile{
	models.IndicationNHL:  {cohort: 175, baseRate: 0.65},
	models.IndicationBALL: {cohort: 88, baseRate: 0.58},
}

var fallbackNotices = map[string]string{
	metrics.ReasonUnhealthy:     "Survival backend unavailable, showing illustrative data",
	metrics.ReasonTransport:     "Survival backend unavailable, showing illustrative data",
	metrics.ReasonDataIntegrity: "Survival data failed validation, showing illustrative data",
}

// Options configures New.
type Options struct {
	Backend      Backend
	Resolver     *persona.Resolver
	Logger       *slog.Logger
	Now          func() time.Time
	NewRequestID func() string
}

// Orchestrator owns the dashboard state. It is the only writer of the displayed curve
// and view mode; callers receive snapshots.
type Orchestrator struct {
	backend  Backend
	resolver *persona.Resolver
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	mu          sync.Mutex
	state       State
	subscribers map[int]func(State)
	nextSub     int
}

// New constructs an Orchestrator in the idle state.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = persona.NewResolver(logger)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewRequestID
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	return &Orchestrator{
		backend:     opts.Backend,
		resolver:    resolver,
		logger:      logger,
		now:         now,
		newID:       newID,
		state:       InitialState(),
		subscribers: make(map[int]func(State)),
	}
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe registers fn to receive every new state. fn runs on the goroutine that
// caused the change and must not call back into the orchestrator. Snapshots can
// arrive out of order under concurrent updates; use Version to discard older ones.
func (o *Orchestrator) Subscribe(fn func(State)) (cancel func()) {
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subscribers[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.subscribers, id)
		o.mu.Unlock()
	}
}

// Load fetches the dataset for q and applies it unless a newer load started in the
// meantime. Backend failures never surface as errors: the state switches to a
// synthetic dataset carrying a notice. Only an invalid query is rejected.
func (o *Orchestrator) Load(ctx context.Context, q models.Query) (State, error) {
	const op = "engine.Load"
	if err := q.Validate(); err != nil {
		return o.Snapshot(), utils.NewError(op, utils.KindInvalidInput, "invalid query", err)
	}

	requestID := o.newID()
	started := o.now()
	o.apply(LoadStarted{Query: q, RequestID: requestID})

	dataset := o.fetch(ctx, q)
	dataset.LoadedAt = o.now()

	o.mu.Lock()
	if o.state.RequestID != requestID {
		current := o.state
		o.mu.Unlock()
		metrics.ObserveStale()
		o.logger.Info("discarding superseded survival response",
			slog.String("request_id", requestID),
			slog.String("current_request_id", current.RequestID))
		return current, nil
	}
	next := Transition(o.state, LoadCompleted{RequestID: requestID, Dataset: dataset})
	var reselected *Selection
	if next.Mode == ViewPersona && next.Selection != nil {
		sel, curve := o.choose(next.Dataset, next.Selection.Subgroup)
		next = Transition(next, PersonaSelected{Selection: sel, Curve: curve})
		reselected = &sel
	}
	o.commitLocked(next)
	subs := o.subscribersLocked()
	o.mu.Unlock()

	metrics.ObserveLoad(o.now().Sub(started), string(dataset.Source))
	if reselected != nil {
		metrics.ObserveResolution(string(reselected.Outcome))
	}
	o.notify(subs, next)
	return next, nil
}

// Select shows the persona curve for sub. A subgroup with no patients shows the empty
// sentinel without consulting the resolver; an unmatched subgroup shows the sentinel
// with an unresolved outcome.
func (o *Orchestrator) Select(sub persona.Subgroup) (State, error) {
	const op = "engine.Select"
	if sub.PatientCount < 0 {
		return o.Snapshot(), utils.NewError(op, utils.KindInvalidInput, fmt.Sprintf("negative patient count %d", sub.PatientCount), nil)
	}

	o.mu.Lock()
	if o.state.Dataset == nil {
		current := o.state
		o.mu.Unlock()
		return current, utils.NewError(op, utils.KindInvalidInput, "select before load", ErrNoDataset)
	}
	sel, curve := o.choose(o.state.Dataset, sub)
	next := Transition(o.state, PersonaSelected{Selection: sel, Curve: curve})
	o.commitLocked(next)
	subs := o.subscribersLocked()
	o.mu.Unlock()

	metrics.ObserveResolution(string(sel.Outcome))
	o.notify(subs, next)
	return next, nil
}

// Reset returns to the overall cohort view.
func (o *Orchestrator) Reset() State {
	return o.apply(ResetView{})
}

func (o *Orchestrator) apply(ev Event) State {
	o.mu.Lock()
	prev := o.state.Version
	next := Transition(o.state, ev)
	o.commitLocked(next)
	subs := o.subscribersLocked()
	o.mu.Unlock()

	if next.Version != prev {
		o.notify(subs, next)
	}
	return next
}

func (o *Orchestrator) choose(ds *Dataset, sub persona.Subgroup) (Selection, *km.Curve) {
	sel := Selection{Subgroup: sub}
	if sub.PatientCount == 0 {
		sel.Outcome = SelectionEmpty
		return sel, km.Empty()
	}

	res := o.resolver.Resolve(sub, ds.Keys())
	sel.Match = res.Outcome
	if res.Found() {
		if curve, ok := ds.Curve(res.Key); ok {
			sel.Key = res.Key
			sel.Outcome = SelectionResolved
			return sel, curve
		}
	}
	sel.Outcome = SelectionUnresolved
	o.logger.Info("no persona curve for subgroup",
		slog.String("subgroup", persona.CanonicalKey(sub)),
		slog.String("source", string(ds.Source)))
	return sel, km.Empty()
}

func (o *Orchestrator) fetch(ctx context.Context, q models.Query) *Dataset {
	if o.backend == nil {
		return o.fallback(q, metrics.ReasonTransport, errors.New("no backend configured"))
	}
	if err := o.backend.CheckHealth(ctx); err != nil {
		return o.fallback(q, metrics.ReasonUnhealthy, err)
	}
	resp, err := o.backend.FetchSurvivalAnalysis(ctx, q)
	if err != nil {
		return o.fallback(q, metrics.ReasonTransport, err)
	}
	if resp.OverallKM == nil {
		return o.fallback(q, metrics.ReasonDataIntegrity, fmt.Errorf("%w: response has no overall curve", km.ErrDataIntegrity))
	}
	overall, err := km.NewCurve(resp.OverallKM.N, resp.OverallKM.X, resp.OverallKM.Y)
	if err != nil {
		return o.fallback(q, metrics.ReasonDataIntegrity, err)
	}

	personas := make([]persona.NamedCurve, 0, len(resp.PersonaKMObjects))
	seen := make(map[string]struct{}, len(resp.PersonaKMObjects))
	for _, p := range resp.PersonaKMObjects {
		if _, dup := seen[p.Persona]; dup {
			o.logger.Warn("dropping duplicate persona curve", slog.String("persona", p.Persona))
			continue
		}
		curve, err := km.NewCurve(p.N, p.X, p.Y)
		if err != nil {
			o.logger.Warn("dropping invalid persona curve", slog.String("persona", p.Persona), slog.Any("error", err))
			continue
		}
		seen[p.Persona] = struct{}{}
		personas = append(personas, persona.NamedCurve{Key: p.Persona, Curve: curve})
	}

	cohort := resp.CohortSize
	if cohort == 0 {
		cohort = overall.PatientCount()
	}
	return &Dataset{Query: q, Source: SourceLive, CohortSize: cohort, Overall: overall, Personas: personas}
}

func (o *Orchestrator) fallback(q models.Query, reason string, cause error) *Dataset {
	profile, ok := fallbackProfiles[q.Indication]
	if !ok {
		profile = fallbackProfiles[models.IndicationNHL]
	}
	horizon := q.TimelineMonths
	if horizon < 12 {
		horizon = 12
	}
	metrics.ObserveFallback(reason)
	o.logger.Warn("using synthetic survival curve",
		slog.String("reason", reason),
		slog.String("indication", string(q.Indication)),
		slog.Any("error", cause))
	return &Dataset{
		Query:      q,
		Source:     SourceSynthetic,
		Notice:     fallbackNotices[reason],
		CohortSize: profile.cohort,
		Overall:    km.Synthetic(profile.cohort, profile.baseRate, horizon),
	}
}

func (o *Orchestrator) commitLocked(next State) {
	o.state = next
}

func (o *Orchestrator) subscribersLocked() []func(State) {
	subs := make([]func(State), 0, len(o.subscribers))
	for _, fn := range o.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func (o *Orchestrator) notify(subs []func(State), s State) {
	for _, fn := range subs {
		fn(s)
	}
}
