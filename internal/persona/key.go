// Package persona identifies patient subgroups, resolves them against the persona
// curves a backend returns and lays those curves out as a heat-map grid.
package persona

import (
	"strings"
)

// BulkStatus is the disease-bulk axis used for NHL personas.
type BulkStatus string

const (
	BulkNone     BulkStatus = ""
	BulkBulky    BulkStatus = "Bulky"
	BulkNonBulky BulkStatus = "Non-Bulky"
)

// RiskRange is the IPI score bucket.
type RiskRange string

const (
	RiskNone RiskRange = ""
	RiskLow  RiskRange = "0-2"
	RiskHigh RiskRange = "3-5"
)

// Label renders the bucket as it appears in persona identifiers.
func (r RiskRange) Label() string {
	switch r {
	case RiskLow:
		return "IPI Low (0–2)"
	case RiskHigh:
		return "IPI High (3–5)"
	default:
		return ""
	}
}

// Burden is the blast-percentage axis used for B-ALL personas.
type Burden string

const (
	BurdenNone Burden = ""
	BurdenLow  Burden = "low"
	BurdenHigh Burden = "high"
)

// Label renders the burden as it appears in persona identifiers.
func (b Burden) Label() string {
	switch b {
	case BurdenLow:
		return "Blast <5%"
	case BurdenHigh:
		return "Blast ≥5%"
	default:
		return ""
	}
}

// Subgroup is a clicked heat-map cell.
type Subgroup struct {
	RowTitle     string     `json:"row_title"`
	Bulk         BulkStatus `json:"bulk,omitempty"`
	Risk         RiskRange  `json:"risk_range,omitempty"`
	Burden       Burden     `json:"burden,omitempty"`
	PatientCount int        `json:"patient_count"`
}

// Key returns the structured identifier for the subgroup.
func (s Subgroup) Key() Key {
	return Key{Row: strings.TrimSpace(s.RowTitle), Bulk: s.Bulk, Risk: s.Risk, Burden: s.Burden}
}

// Key is a persona identifier split into its axes. Extra keeps tokens that matched
// no known axis.
type Key struct {
	Row    string
	Bulk   BulkStatus
	Risk   RiskRange
	Burden Burden
	Extra  []string
}

const separator = " | "

// String renders the canonical identifier: row, then bulk, then the risk or burden
// label, joined by " | ".
func (k Key) String() string {
	parts := []string{k.Row}
	if k.Bulk != BulkNone {
		parts = append(parts, string(k.Bulk))
	}
	if label := k.Risk.Label(); label != "" {
		parts = append(parts, label)
	} else if label := k.Burden.Label(); label != "" {
		parts = append(parts, label)
	}
	parts = append(parts, k.Extra...)
	return strings.Join(parts, separator)
}

// CanonicalKey is the identifier an exact backend match must carry.
func CanonicalKey(s Subgroup) string {
	return s.Key().String()
}

// ParseKey splits a backend persona identifier into axes. The first segment is the
// row; later segments are classified as bulk, risk or burden tokens.
func ParseKey(id string) Key {
	segments := strings.Split(id, "|")
	var k Key
	for i, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if i == 0 {
			k.Row = seg
			continue
		}
		norm := normalise(seg)
		switch {
		case k.Bulk == BulkNone && isNonBulky(norm):
			k.Bulk = BulkNonBulky
		case k.Bulk == BulkNone && norm == "bulky":
			k.Bulk = BulkBulky
		case k.Risk == RiskNone && strings.Contains(norm, "0-2"):
			k.Risk = RiskLow
		case k.Risk == RiskNone && strings.Contains(norm, "3-5"):
			k.Risk = RiskHigh
		case k.Risk == RiskNone && norm == "ipi low":
			k.Risk = RiskLow
		case k.Risk == RiskNone && norm == "ipi high":
			k.Risk = RiskHigh
		case k.Burden == BurdenNone && strings.HasPrefix(norm, "blast") && strings.Contains(norm, "<5"):
			k.Burden = BurdenLow
		case k.Burden == BurdenNone && strings.HasPrefix(norm, "blast") && (strings.Contains(norm, ">=5") || strings.Contains(norm, ">5")):
			k.Burden = BurdenHigh
		default:
			k.Extra = append(k.Extra, seg)
		}
	}
	return k
}

func isNonBulky(norm string) bool {
	return norm == "non-bulky" || norm == "non bulky" || norm == "nonbulky"
}

var dashReplacer = strings.NewReplacer(
	"–", "-",
	"—", "-",
	"−", "-",
	"≥", ">=",
	"≤", "<=",
	"＜", "<",
)

// normalise lower-cases, unifies dashes and comparison signs and collapses spaces.
func normalise(s string) string {
	s = dashReplacer.Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}
