package km

import (
	"math"
	"testing"
)

func TestSyntheticShape(t *testing.T) {
	for _, target := range []float64{0.65, 0.58, 0.2, 0.95} {
		c := Synthetic(100, target, 24)
		if !c.IsSynthetic() {
			t.Fatalf("synthetic flag not set")
		}
		probs := c.Probabilities()
		if probs[0] != 1 {
			t.Fatalf("target %v: curve should start at 1.0, got %v", target, probs[0])
		}
		for i := 1; i < len(probs); i++ {
			if probs[i] > probs[i-1] {
				t.Fatalf("target %v: curve rises at %d", target, i)
			}
		}
		at12, _ := c.SurvivalAt(12)
		if math.Abs(at12-target*100) > 1 {
			t.Fatalf("target %v: survival at 12 = %v", target, at12)
		}
		if _, err := NewCurve(c.PatientCount(), c.Times(), c.Probabilities()); err != nil {
			t.Fatalf("synthetic curve fails validation: %v", err)
		}
	}
}

func TestSyntheticClampsTarget(t *testing.T) {
	c := Synthetic(0, 1.5, 12)
	if p := c.Probabilities()[12]; p > 0.99 {
		t.Fatalf("target not clamped, got %v", p)
	}
	c = Synthetic(0, -1, 12)
	if p := c.Probabilities()[12]; p < 0.01 {
		t.Fatalf("target not clamped, got %v", p)
	}
}

func TestBenchmarkAndHazardRatio(t *testing.T) {
	treatment := Synthetic(100, 0.4, 24)
	benchmark := SyntheticBenchmark(100, 0.4, 24)
	at12, _ := benchmark.SurvivalAt(12)
	if at12 != 28 {
		t.Fatalf("benchmark survival at 12 = %v, want 28", at12)
	}

	hr, ok := HazardRatio(treatment, benchmark)
	if !ok {
		t.Fatalf("hazard ratio should be available")
	}
	if hr >= 1 {
		t.Fatalf("treatment with better survival should have HR < 1, got %v", hr)
	}

	floor := SyntheticBenchmark(10, 0.1, 12)
	if got, _ := floor.SurvivalAt(12); got != 20 {
		t.Fatalf("benchmark floor not applied, got %v", got)
	}

	if _, ok := HazardRatio(Empty(), benchmark); ok {
		t.Fatalf("hazard ratio on empty curve should be unavailable")
	}
}
