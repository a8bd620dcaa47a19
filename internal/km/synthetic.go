package km

import "math"

// Benchmark floor and ratio used for the standard-of-care comparison curve.
const (
	benchmarkFloor = 0.20
	benchmarkRatio = 0.70
)

// Synthetic builds a deterministic placeholder curve decaying exponentially so that it
// passes through target at 12 months, then holds at target until horizon. target is a
// probability and is clamped to [0.01, 0.99].
func Synthetic(n int, target float64, horizon int) *Curve {
	if math.IsNaN(target) {
		target = 0.5
	}
	target = math.Max(0.01, math.Min(0.99, target))
	if horizon < 1 {
		horizon = 12
	}
	if n < 0 {
		n = 0
	}

	lambda := -math.Log(target) / 12
	c := &Curve{
		n:         n,
		times:     make([]float64, horizon+1),
		probs:     make([]float64, horizon+1),
		synthetic: true,
	}
	for m := 0; m <= horizon; m++ {
		c.times[m] = float64(m)
		c.probs[m] = math.Max(target, math.Exp(-lambda*float64(m)))
	}
	return c
}

// SyntheticBenchmark builds the standard-of-care reference curve for a treatment
// whose 12-month survival is target.
func SyntheticBenchmark(n int, target float64, horizon int) *Curve {
	return Synthetic(n, math.Max(benchmarkFloor, benchmarkRatio*target), horizon)
}

// HazardRatio approximates treatment versus reference from their medians under an
// exponential model, where the hazard is inversely proportional to the median. A
// value below 1 favours the treatment. ok is false when either median is unavailable
// or zero.
func HazardRatio(treatment, reference *Curve) (float64, bool) {
	if treatment == nil || reference == nil {
		return 0, false
	}
	mt, ok := treatment.MedianSurvivalTime()
	if !ok || mt <= 0 {
		return 0, false
	}
	mr, ok := reference.MedianSurvivalTime()
	if !ok || mr <= 0 {
		return 0, false
	}
	return mr / mt, true
}
