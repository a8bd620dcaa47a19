package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const sampleCurve = `{"n":40,"x":[0,6,12,24],"y":[1,0.8,0.6,0.4]}`

func TestRenderSummary(t *testing.T) {
	out, err := run(t, sampleCurve, "render", "--benchmark")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var got renderSummary
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got.PatientCount != 40 || got.Confidence != "high" {
		t.Fatalf("unexpected header %+v", got)
	}
	if got.SurvivalAt == nil || *got.SurvivalAt != 60 {
		t.Fatalf("expected 60%% at 12 months, got %v", got.SurvivalAt)
	}
	if got.MedianMonths == nil || *got.MedianMonths != 24 || !got.MedianReached {
		t.Fatalf("expected median 24, got %v", got.MedianMonths)
	}
	if got.HazardRatio == nil {
		t.Fatal("expected hazard ratio with --benchmark")
	}
	if !strings.HasPrefix(got.Path, "M 0 0 L") {
		t.Fatalf("unexpected path %q", got.Path)
	}
}

func TestRenderSVG(t *testing.T) {
	out, err := run(t, sampleCurve, "render", "--svg", "--title", "A & B")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(out, "<svg") || !strings.Contains(out, "A &amp; B") {
		t.Fatalf("unexpected svg output: %s", out)
	}
}

func TestRenderRejectsInvalidCurve(t *testing.T) {
	if _, err := run(t, `{"n":5,"x":[0,6],"y":[1,1.2]}`, "render"); err == nil {
		t.Fatal("expected error for probability above 1")
	}
	if _, err := run(t, sampleCurve, "render", "--timeline", "0"); err == nil {
		t.Fatal("expected error for non-positive timeline")
	}
}

func TestColor(t *testing.T) {
	out, err := run(t, "", "color", "50", "10")
	if err != nil {
		t.Fatalf("color: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", out)
	}
	if !strings.Contains(lines[1], "rgb(75, 210, 50)") {
		t.Fatalf("unexpected row %q", lines[1])
	}
	if _, err := run(t, "", "color", "--scheme", "sepia", "50"); err == nil {
		t.Fatal("expected error for unknown scheme")
	}
	if _, err := run(t, "", "color", "ten"); err == nil {
		t.Fatal("expected error for non-numeric percent")
	}
}

func TestResolve(t *testing.T) {
	keys := "Early Relapse | Bulky | IPI High (3–5)\nLate Relapse | Non-Bulky | IPI Low (0–2)\n"

	out, err := run(t, keys, "resolve", "--row", "Late Relapse", "--bulk", "non-bulky", "--risk", "0-2")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out != "exact\tLate Relapse | Non-Bulky | IPI Low (0–2)\n" {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = run(t, keys, "resolve", "--row", "Early Relapse", "--bulk", "bulky")
	if err != nil {
		t.Fatalf("resolve relaxed: %v", err)
	}
	if !strings.HasPrefix(out, "relaxed\tEarly Relapse") {
		t.Fatalf("unexpected output %q", out)
	}

	if _, err := run(t, keys, "resolve", "--row", "Primary Refractory"); err == nil {
		t.Fatal("expected no match")
	}
	if _, err := run(t, keys, "resolve", "--row", "Early Relapse", "--risk", "6-9"); err == nil {
		t.Fatal("expected invalid risk error")
	}
}
