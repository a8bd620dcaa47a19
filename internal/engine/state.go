package engine

import (
	"time"

	"github.com/nexcar/rwe-km/internal/km"
	"github.com/nexcar/rwe-km/internal/models"
	"github.com/nexcar/rwe-km/internal/persona"
)

// ViewMode selects which curve the dashboard shows.
type ViewMode string

const (
	ViewOverall ViewMode = "overall"
	ViewPersona ViewMode = "persona"
)

// Phase tracks the load lifecycle.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
)

// Source tells where the displayed dataset came from.
type Source string

const (
	SourceLive      Source = "live"
	SourceSynthetic Source = "synthetic"
)

// SelectionOutcome classifies a subgroup click.
type SelectionOutcome string

const (
	SelectionResolved   SelectionOutcome = "resolved"
	SelectionEmpty      SelectionOutcome = "empty_subgroup"
	SelectionUnresolved SelectionOutcome = "unresolved"
)

// Selection records the clicked subgroup and how it was matched.
type Selection struct {
	Subgroup persona.Subgroup `json:"subgroup"`
	Key      string           `json:"key,omitempty"`
	Outcome  SelectionOutcome `json:"outcome"`
	Match    persona.Outcome  `json:"match,omitempty"`
}

// Dataset is one applied backend response, or its synthetic replacement. It is never
// mutated after it is applied.
type Dataset struct {
	Query      models.Query         `json:"query"`
	Source     Source               `json:"source"`
	Notice     string               `json:"notice,omitempty"`
	CohortSize int                  `json:"cohort_size"`
	Overall    *km.Curve            `json:"overall"`
	Personas   []persona.NamedCurve `json:"-"`
	LoadedAt   time.Time            `json:"loaded_at"`
}

// Keys lists the persona identifiers in backend order.
func (d *Dataset) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, 0, len(d.Personas))
	for _, p := range d.Personas {
		keys = append(keys, p.Key)
	}
	return keys
}

// Curve returns the persona curve stored under key.
func (d *Dataset) Curve(key string) (*km.Curve, bool) {
	if d == nil {
		return nil, false
	}
	for _, p := range d.Personas {
		if p.Key == key {
			return p.Curve, true
		}
	}
	return nil, false
}

// State is a read-only snapshot of the dashboard.
type State struct {
	Query     models.Query `json:"query"`
	Phase     Phase        `json:"phase"`
	RequestID string       `json:"request_id,omitempty"`
	Dataset   *Dataset     `json:"dataset,omitempty"`
	Mode      ViewMode     `json:"mode"`
	Displayed *km.Curve    `json:"displayed,omitempty"`
	Selection *Selection   `json:"selection,omitempty"`
	Version   uint64       `json:"version"`
}

// InitialState is the state before the first load.
func InitialState() State {
	return State{Phase: PhaseIdle, Mode: ViewOverall}
}

// Event is an input to Transition.
type Event interface{ event() }

// LoadStarted begins a fetch for Query under RequestID.
type LoadStarted struct {
	Query     models.Query
	RequestID string
}

// LoadCompleted carries the dataset produced for RequestID.
type LoadCompleted struct {
	RequestID string
	Dataset   *Dataset
}

// PersonaSelected switches to the persona view showing Curve.
type PersonaSelected struct {
	Selection Selection
	Curve     *km.Curve
}

// ResetView returns to the overall cohort.
type ResetView struct{}

func (LoadStarted) event()     {}
func (LoadCompleted) event()   {}
func (PersonaSelected) event() {}
func (ResetView) event()       {}

// Transition computes the next state. It never mutates s; events that do not apply,
// such as a completion for a superseded request, return s unchanged.
func Transition(s State, ev Event) State {
	next := s
	switch e := ev.(type) {
	case LoadStarted:
		if e.Query.Indication != s.Query.Indication {
			next.Dataset = nil
			next.Displayed = nil
			next.Selection = nil
			next.Mode = ViewOverall
		}
		next.Query = e.Query
		next.Phase = PhaseLoading
		next.RequestID = e.RequestID

	case LoadCompleted:
		if e.RequestID != s.RequestID || e.Dataset == nil {
			return s
		}
		next.Phase = PhaseReady
		next.Dataset = e.Dataset
		if next.Mode == ViewOverall {
			next.Displayed = e.Dataset.Overall
		}

	case PersonaSelected:
		if s.Dataset == nil || e.Curve == nil {
			return s
		}
		sel := e.Selection
		next.Mode = ViewPersona
		next.Displayed = e.Curve
		next.Selection = &sel

	case ResetView:
		if s.Mode == ViewOverall && s.Selection == nil {
			return s
		}
		next.Mode = ViewOverall
		next.Selection = nil
		next.Displayed = nil
		if s.Dataset != nil {
			next.Displayed = s.Dataset.Overall
		}

	default:
		return s
	}
	next.Version = s.Version + 1
	return next
}
