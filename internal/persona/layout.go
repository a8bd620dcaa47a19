package persona

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RowDef selects the persona curves that belong to one heat-map row.
type RowDef struct {
	ID          string   `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	KeyRow      string   `yaml:"key_row" json:"key_row"`
	Exclude     []string `yaml:"exclude" json:"exclude,omitempty"`
}

// ColumnDef fixes the axis values of one heat-map column.
type ColumnDef struct {
	ID     string     `yaml:"id" json:"id"`
	Label  string     `yaml:"label" json:"label"`
	Sub    string     `yaml:"sub" json:"sub"`
	Bulk   BulkStatus `yaml:"bulk" json:"bulk,omitempty"`
	Risk   RiskRange  `yaml:"risk" json:"risk_range,omitempty"`
	Burden Burden     `yaml:"burden" json:"burden,omitempty"`
}

// IndicationLayout is the grid shape for one indication.
type IndicationLayout struct {
	Rows    []RowDef    `yaml:"rows"`
	Columns []ColumnDef `yaml:"columns"`
}

// Layout maps indication tokens to grid shapes.
type Layout struct {
	Indications map[string]IndicationLayout `yaml:"indications"`
}

// For returns the grid shape for indication.
func (l *Layout) For(indication string) (IndicationLayout, bool) {
	if l == nil {
		return IndicationLayout{}, false
	}
	def, ok := l.Indications[strings.ToLower(indication)]
	return def, ok
}

// DefaultLayout is the built-in NHL and B-ALL grid.
func DefaultLayout() *Layout {
	return &Layout{Indications: map[string]IndicationLayout{
		"nhl": {
			Rows: []RowDef{
				{ID: "refractory", Title: "Primary Refractory", Description: "No Response to Frontline Treatment", KeyRow: "Primary Refractory"},
				{ID: "early_relapse", Title: "Early Relapse", Description: "Relapse within 12M from last line of Therapy", KeyRow: "Early Relapse"},
				{ID: "late_relapse", Title: "Late Relapse", Description: "Relapse after 12M from last line of Therapy", KeyRow: "Late Relapse"},
			},
			Columns: []ColumnDef{
				{ID: "nb_low", Label: "Low Risk", Sub: "Non-Bulky", Bulk: BulkNonBulky, Risk: RiskLow},
				{ID: "nb_high", Label: "High Risk", Sub: "Non-Bulky", Bulk: BulkNonBulky, Risk: RiskHigh},
				{ID: "b_low", Label: "Low Risk", Sub: "Bulky", Bulk: BulkBulky, Risk: RiskLow},
				{ID: "b_high", Label: "High Risk", Sub: "Bulky", Bulk: BulkBulky, Risk: RiskHigh},
			},
		},
		"all": {
			Rows: []RowDef{
				{ID: "refractory", Title: "Refractory Population", Description: "Disease that did not respond to the last line of therapy.", KeyRow: "Refractory"},
				{ID: "relapsed", Title: "Relapsed Population", Description: "Disease that returned after a period of improvement.", KeyRow: "Relapsed", Exclude: []string{"Refractory"}},
			},
			Columns: []ColumnDef{
				{ID: "low", Label: "Low Disease Burden", Sub: "Low", Burden: BurdenLow},
				{ID: "high", Label: "High Disease Burden", Sub: "High", Burden: BurdenHigh},
			},
		},
	}}
}

// LoadLayout reads a layout pack from path. An empty path or a missing file yields
// the default layout.
func LoadLayout(path string, logger *slog.Logger) (*Layout, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return DefaultLayout(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("persona layout not found, using defaults", slog.String("path", path))
			return DefaultLayout(), nil
		}
		return nil, fmt.Errorf("read persona layout: %w", err)
	}
	var layout Layout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("parse persona layout: %w", err)
	}
	if err := layout.validate(); err != nil {
		return nil, err
	}
	normalised := make(map[string]IndicationLayout, len(layout.Indications))
	for name, def := range layout.Indications {
		normalised[strings.ToLower(name)] = def
	}
	layout.Indications = normalised
	return &layout, nil
}

func (l *Layout) validate() error {
	if len(l.Indications) == 0 {
		return errors.New("persona layout defines no indications")
	}
	for name, def := range l.Indications {
		if len(def.Rows) == 0 || len(def.Columns) == 0 {
			return fmt.Errorf("persona layout %s needs rows and columns", name)
		}
		for _, row := range def.Rows {
			if row.ID == "" || row.KeyRow == "" {
				return fmt.Errorf("persona layout %s: row requires id and key_row", name)
			}
		}
		for _, col := range def.Columns {
			if col.ID == "" {
				return fmt.Errorf("persona layout %s: column requires id", name)
			}
		}
	}
	return nil
}
