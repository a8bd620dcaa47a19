package models

import (
	"fmt"
	"strings"
)

// Indication identifies the disease population a dataset is drawn from.
type Indication string

const (
	IndicationNHL  Indication = "nhl"
	IndicationBALL Indication = "all"
)

// ParseIndication accepts the backend tokens as well as the display labels ("NHL", "B-ALL").
func ParseIndication(value string) (Indication, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "nhl":
		return IndicationNHL, nil
	case "all", "b-all", "ball":
		return IndicationBALL, nil
	default:
		return "", fmt.Errorf("unknown indication %q", value)
	}
}

// Label returns the display name used in the dashboard.
func (i Indication) Label() string {
	if i == IndicationBALL {
		return "B-ALL"
	}
	return "NHL"
}

// AnalysisType selects which survival endpoint the backend estimates.
type AnalysisType string

const (
	AnalysisPFS AnalysisType = "pfs"
	AnalysisOS  AnalysisType = "os"
)

// ParseAnalysisType is case-insensitive.
func ParseAnalysisType(value string) (AnalysisType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "pfs":
		return AnalysisPFS, nil
	case "os":
		return AnalysisOS, nil
	default:
		return "", fmt.Errorf("unknown analysis type %q", value)
	}
}

// FilterLevel is the scope of the sidebar filter.
type FilterLevel string

const (
	LevelGlobal    FilterLevel = "global"
	LevelInstitute FilterLevel = "institute"
	LevelRegion    FilterLevel = "region"
	LevelPhysician FilterLevel = "physician"
)

// Filters mirrors the dashboard sidebar selection.
type Filters struct {
	ActiveLevel       FilterLevel `json:"active_level"`
	SelectedInstitute string      `json:"selected_institute,omitempty"`
	SelectedRegion    string      `json:"selected_region,omitempty"`
	SelectedPhysician string      `json:"selected_physician,omitempty"`
}

// Ready reports whether the filter has enough information to issue a request.
// A non-global level without its selection is still waiting on the user.
func (f Filters) Ready() bool {
	switch f.ActiveLevel {
	case "", LevelGlobal:
		return true
	case LevelInstitute:
		return f.SelectedInstitute != ""
	case LevelRegion:
		return f.SelectedRegion != ""
	case LevelPhysician:
		return f.SelectedPhysician != ""
	default:
		return false
	}
}

// Query is everything that determines which dataset should be displayed.
type Query struct {
	Indication     Indication   `json:"indication"`
	AnalysisType   AnalysisType `json:"analysis_type"`
	TimelineMonths int          `json:"timeline_months"`
	Filters        Filters      `json:"filters"`
}

// Validate checks the query before it reaches the backend.
func (q Query) Validate() error {
	if _, err := ParseIndication(string(q.Indication)); err != nil {
		return err
	}
	if _, err := ParseAnalysisType(string(q.AnalysisType)); err != nil {
		return err
	}
	if q.TimelineMonths <= 0 {
		return fmt.Errorf("timeline_months must be positive, got %d", q.TimelineMonths)
	}
	return nil
}

// AnalysisRequest is the wire body of POST /survival-analysis.
type AnalysisRequest struct {
	Indication         string   `json:"indication"`
	AnalysisType       string   `json:"analysis_type"`
	FilterType         string   `json:"filter_type"`
	FilterValue        string   `json:"filter_value"`
	LinesOfFailure     string   `json:"lines_of_failure"`
	TimelineMonths     int      `json:"timeline_months"`
	ActiveLevel        string   `json:"active_level"`
	SelectedInstitute  string   `json:"selected_institute"`
	SelectedRegions    []string `json:"selected_regions"`
	SelectedPhysicians []string `json:"selected_physicians"`
}

// NewAnalysisRequest maps a dashboard query onto the backend request, including the
// legacy filter_type/filter_value pair older backends still read.
func NewAnalysisRequest(q Query) AnalysisRequest {
	req := AnalysisRequest{
		Indication:         string(q.Indication),
		AnalysisType:       string(q.AnalysisType),
		FilterType:         "global",
		FilterValue:        "all",
		LinesOfFailure:     "all",
		TimelineMonths:     q.TimelineMonths,
		ActiveLevel:        string(LevelGlobal),
		SelectedInstitute:  q.Filters.SelectedInstitute,
		SelectedRegions:    []string{},
		SelectedPhysicians: []string{},
	}
	if q.Filters.ActiveLevel != "" {
		req.ActiveLevel = string(q.Filters.ActiveLevel)
	}

	switch {
	case q.Filters.ActiveLevel == LevelInstitute && q.Filters.SelectedInstitute != "":
		req.FilterType = "account"
		req.FilterValue = q.Filters.SelectedInstitute
	case q.Filters.ActiveLevel == LevelRegion && q.Filters.SelectedRegion != "":
		req.FilterType = "zone"
		req.FilterValue = q.Filters.SelectedRegion
	case q.Filters.ActiveLevel == LevelPhysician && q.Filters.SelectedPhysician != "":
		req.FilterType = "hcp"
		req.FilterValue = q.Filters.SelectedPhysician
	}
	if q.Filters.SelectedRegion != "" {
		req.SelectedRegions = []string{q.Filters.SelectedRegion}
	}
	if q.Filters.SelectedPhysician != "" {
		req.SelectedPhysicians = []string{q.Filters.SelectedPhysician}
	}
	return req
}

// KMSeries is one fitted curve as returned by the backend.
type KMSeries struct {
	N int       `json:"n"`
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// PersonaSeries is a persona-labelled curve.
type PersonaSeries struct {
	Persona string    `json:"persona"`
	N       int       `json:"n"`
	X       []float64 `json:"x"`
	Y       []float64 `json:"y"`
}

// AnalysisResponse is the wire body returned by POST /survival-analysis.
type AnalysisResponse struct {
	CohortSize       int             `json:"cohort_size"`
	OverallKM        *KMSeries       `json:"overall_km"`
	PersonaKMObjects []PersonaSeries `json:"persona_km_objects"`
}

// HealthResponse is the wire body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
