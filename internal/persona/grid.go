package persona

import (
	"strings"

	"github.com/nexcar/rwe-km/internal/gradient"
	"github.com/nexcar/rwe-km/internal/km"
)

// NamedCurve is a persona curve as delivered by the backend.
type NamedCurve struct {
	Key   string
	Curve *km.Curve
}

// Painter colours a percentage under a scheme. *gradient.Mapper satisfies it.
type Painter interface {
	ColorFor(percent float64, scheme gradient.Scheme) gradient.RGB
}

type directPainter struct{}

func (directPainter) ColorFor(p float64, s gradient.Scheme) gradient.RGB { return gradient.ColorFor(p, s) }

// Cell is one heat-map card.
type Cell struct {
	ColumnID        string            `json:"column_id"`
	Key             string            `json:"key,omitempty"`
	Subgroup        Subgroup          `json:"subgroup"`
	PatientCount    int               `json:"n"`
	SurvivalPercent float64           `json:"survival_percent"`
	Available       bool              `json:"available"`
	Confidence      km.Confidence     `json:"confidence"`
	Background      string            `json:"background,omitempty"`
	Text            gradient.TextTone `json:"text,omitempty"`
}

// GridRow groups the cells of one row.
type GridRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	TotalN      int    `json:"total_n"`
	Cells       []Cell `json:"cells"`
}

// Grid is the heat-map of persona survival at a timeline.
type Grid struct {
	TimelineMonths int         `json:"timeline_months"`
	Scheme         string      `json:"scheme"`
	Columns        []ColumnDef `json:"columns"`
	Rows           []GridRow   `json:"rows"`
}

// GridBuilder lays persona curves out according to an indication layout.
type GridBuilder struct {
	Resolver *Resolver
	Painter  Painter
	Scheme   gradient.Scheme
}

// Build assembles the grid. Rows with no matching persona are omitted, and cells
// whose persona is absent carry zero patients so a click yields the empty subgroup.
func (b GridBuilder) Build(def IndicationLayout, curves []NamedCurve, timeline int) Grid {
	resolver := b.Resolver
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	var painter Painter = directPainter{}
	if b.Painter != nil {
		painter = b.Painter
	}

	byKey := make(map[string]*km.Curve, len(curves))
	for _, nc := range curves {
		byKey[nc.Key] = nc.Curve
	}

	grid := Grid{TimelineMonths: timeline, Scheme: b.Scheme.Name(), Columns: def.Columns}
	for _, rowDef := range def.Rows {
		keys := rowKeys(rowDef, curves)
		if len(keys) == 0 {
			continue
		}
		row := GridRow{ID: rowDef.ID, Title: rowDef.Title, Description: rowDef.Description}
		for _, key := range keys {
			row.TotalN += byKey[key].PatientCount()
		}

		for _, col := range def.Columns {
			sub := Subgroup{RowTitle: rowDef.KeyRow, Bulk: col.Bulk, Risk: col.Risk, Burden: col.Burden}
			cell := Cell{ColumnID: col.ID, Confidence: km.ConfidenceNone}
			if res := resolver.Resolve(sub, keys); res.Found() {
				curve := byKey[res.Key]
				sub.PatientCount = curve.PatientCount()
				cell.Key = res.Key
				cell.PatientCount = curve.PatientCount()
				cell.Confidence = curve.Confidence()
				if pct, ok := curve.SurvivalAt(float64(timeline)); ok && curve.PatientCount() > 0 {
					cell.SurvivalPercent = pct
					cell.Available = true
					cell.Background = painter.ColorFor(pct, b.Scheme).CSS()
					cell.Text = gradient.TextColorFor(pct)
				}
			}
			cell.Subgroup = sub
			row.Cells = append(row.Cells, cell)
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid
}

// rowKeys returns the persona keys whose row segment contains the row's key token and
// none of its exclusions, preserving backend order.
func rowKeys(def RowDef, curves []NamedCurve) []string {
	want := normalise(def.KeyRow)
	keys := make([]string, 0)
	for _, nc := range curves {
		row := normalise(ParseKey(nc.Key).Row)
		if !strings.Contains(row, want) {
			continue
		}
		excluded := false
		for _, ex := range def.Exclude {
			if strings.Contains(row, normalise(ex)) {
				excluded = true
				break
			}
		}
		if !excluded {
			keys = append(keys, nc.Key)
		}
	}
	return keys
}
