package persona

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestResolver(buf *bytes.Buffer) *Resolver {
	return NewResolver(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func TestCanonicalKey(t *testing.T) {
	cases := []struct {
		sub  Subgroup
		want string
	}{
		{Subgroup{RowTitle: "Primary Refractory", Bulk: BulkNonBulky, Risk: RiskLow}, "Primary Refractory | Non-Bulky | IPI Low (0–2)"},
		{Subgroup{RowTitle: "Late Relapse", Bulk: BulkBulky, Risk: RiskHigh}, "Late Relapse | Bulky | IPI High (3–5)"},
		{Subgroup{RowTitle: "Refractory", Burden: BurdenHigh}, "Refractory | Blast ≥5%"},
		{Subgroup{RowTitle: "Relapsed", Burden: BurdenLow}, "Relapsed | Blast <5%"},
		{Subgroup{RowTitle: " Early Relapse "}, "Early Relapse"},
	}
	for _, tc := range cases {
		if got := CanonicalKey(tc.sub); got != tc.want {
			t.Fatalf("CanonicalKey(%+v) = %q, want %q", tc.sub, got, tc.want)
		}
	}
}

func TestParseKey(t *testing.T) {
	cases := []struct {
		in   string
		want Key
	}{
		{"Primary Refractory | Non-Bulky | IPI Low (0–2)", Key{Row: "Primary Refractory", Bulk: BulkNonBulky, Risk: RiskLow}},
		{"Early Relapse|Bulky|IPI High (3-5)", Key{Row: "Early Relapse", Bulk: BulkBulky, Risk: RiskHigh}},
		{"Refractory | Blast >=5%", Key{Row: "Refractory", Burden: BurdenHigh}},
		{"Relapsed | Blast <5% | CNS+", Key{Row: "Relapsed", Burden: BurdenLow, Extra: []string{"CNS+"}}},
		{"Late Relapse | non bulky | ipi low", Key{Row: "Late Relapse", Bulk: BulkNonBulky, Risk: RiskLow}},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, ParseKey(tc.in)); diff != "" {
			t.Fatalf("ParseKey(%q) mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestParseKeyRoundTripsCanonical(t *testing.T) {
	sub := Subgroup{RowTitle: "Early Relapse", Bulk: BulkBulky, Risk: RiskLow}
	if got := ParseKey(CanonicalKey(sub)).String(); got != CanonicalKey(sub) {
		t.Fatalf("round trip = %q", got)
	}
}

func TestResolveExactMatch(t *testing.T) {
	var buf bytes.Buffer
	r := newTestResolver(&buf)
	keys := []string{
		"Primary Refractory | Non-Bulky | IPI Low (0–2)",
		"Primary Refractory | Bulky | IPI Low (0–2)",
	}
	res := r.Resolve(Subgroup{RowTitle: "Primary Refractory", Bulk: BulkNonBulky, Risk: RiskLow, PatientCount: 12}, keys)
	if res.Outcome != OutcomeExact || res.Key != keys[0] {
		t.Fatalf("unexpected resolution %+v", res)
	}
}

func TestResolveExactBeatsSuperstringDecoy(t *testing.T) {
	var buf bytes.Buffer
	r := newTestResolver(&buf)
	keys := []string{
		"Primary Refractory (Extended) | Bulky | IPI High (3–5)",
		"Primary Refractory | Bulky | IPI High (3–5) | Prior ASCT",
		"Primary Refractory | Bulky | IPI High (3–5)",
	}
	res := r.Resolve(Subgroup{RowTitle: "Primary Refractory", Bulk: BulkBulky, Risk: RiskHigh}, keys)
	if res.Outcome != OutcomeExact || res.Key != keys[2] {
		t.Fatalf("unexpected resolution %+v", res)
	}
}

func TestResolveBulkyDoesNotMatchNonBulky(t *testing.T) {
	var buf bytes.Buffer
	r := newTestResolver(&buf)
	keys := []string{"Early Relapse | Non-Bulky | IPI Low (0-2)"}
	res := r.Resolve(Subgroup{RowTitle: "Early Relapse", Bulk: BulkBulky, Risk: RiskLow}, keys)
	if res.Found() {
		t.Fatalf("Bulky must not resolve to a Non-Bulky key: %+v", res)
	}
}

func TestResolveRelaxedPrefersFewestExtras(t *testing.T) {
	var buf bytes.Buffer
	r := newTestResolver(&buf)
	keys := []string{
		"Early Relapse (<12 mo) | Non-Bulky | IPI High (3-5) | Prior ASCT",
		"Early Relapse (<12 mo) | Non-Bulky | IPI High (3-5)",
	}
	res := r.Resolve(Subgroup{RowTitle: "early relapse", Bulk: BulkNonBulky, Risk: RiskHigh}, keys)
	if res.Outcome != OutcomeRelaxed || res.Key != keys[1] || res.Candidates != 2 {
		t.Fatalf("unexpected resolution %+v", res)
	}
	if !strings.Contains(buf.String(), "relaxed match") {
		t.Fatalf("relaxed match should be logged, got %q", buf.String())
	}
}

func TestResolveNone(t *testing.T) {
	var buf bytes.Buffer
	r := newTestResolver(&buf)
	keys := []string{"Late Relapse | Bulky | IPI Low (0–2)"}
	if res := r.Resolve(Subgroup{RowTitle: "Primary Refractory", Bulk: BulkBulky, Risk: RiskLow}, keys); res.Found() {
		t.Fatalf("expected no match, got %+v", res)
	}
	if res := r.Resolve(Subgroup{}, keys); res.Outcome != OutcomeNone {
		t.Fatalf("empty row title must not guess, got %+v", res)
	}
	if res := r.Resolve(Subgroup{RowTitle: "Late Relapse"}, nil); res.Found() {
		t.Fatalf("no keys should never resolve")
	}
}
