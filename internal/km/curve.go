// Package km models Kaplan-Meier survival curves as immutable step functions and
// derives the summary statistics shown on the dashboard.
package km

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrDataIntegrity marks a series that cannot be a survival curve.
var ErrDataIntegrity = errors.New("survival curve integrity violation")

// EmptyHorizonMonths is the time span of the empty-subgroup sentinel.
const EmptyHorizonMonths = 24

// Curve is a validated survival step function. The zero value is not useful; build
// curves with NewCurve, Empty or Synthetic.
type Curve struct {
	n         int
	times     []float64
	probs     []float64
	empty     bool
	synthetic bool
}

// NewCurve validates the series and returns an immutable curve.
func NewCurve(n int, times, probs []float64) (*Curve, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative patient count %d", ErrDataIntegrity, n)
	}
	if len(times) != len(probs) {
		return nil, fmt.Errorf("%w: %d time points but %d probabilities", ErrDataIntegrity, len(times), len(probs))
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: series has no points", ErrDataIntegrity)
	}
	if times[0] != 0 {
		return nil, fmt.Errorf("%w: series starts at %v, want 0", ErrDataIntegrity, times[0])
	}
	for i := range times {
		if math.IsNaN(times[i]) || math.IsInf(times[i], 0) {
			return nil, fmt.Errorf("%w: time point %d is not finite", ErrDataIntegrity, i)
		}
		if math.IsNaN(probs[i]) || probs[i] < 0 || probs[i] > 1 {
			return nil, fmt.Errorf("%w: probability %v at index %d outside [0,1]", ErrDataIntegrity, probs[i], i)
		}
		if i == 0 {
			continue
		}
		if times[i] <= times[i-1] {
			return nil, fmt.Errorf("%w: time points not strictly increasing at index %d", ErrDataIntegrity, i)
		}
		if probs[i] > probs[i-1] {
			return nil, fmt.Errorf("%w: probability rises at index %d", ErrDataIntegrity, i)
		}
	}

	return &Curve{
		n:     n,
		times: append([]float64(nil), times...),
		probs: append([]float64(nil), probs...),
	}, nil
}

// Empty returns the sentinel shown for a subgroup with no patients.
func Empty() *Curve {
	c := &Curve{
		times: make([]float64, EmptyHorizonMonths+1),
		probs: make([]float64, EmptyHorizonMonths+1),
		empty: true,
	}
	for i := range c.times {
		c.times[i] = float64(i)
	}
	return c
}

// PatientCount is the number of patients the curve was fitted on.
func (c *Curve) PatientCount() int { return c.n }

// IsEmpty reports whether this is the zero-patient sentinel.
func (c *Curve) IsEmpty() bool { return c.empty }

// IsSynthetic reports whether the curve was generated rather than fitted.
func (c *Curve) IsSynthetic() bool { return c.synthetic }

// Len is the number of points.
func (c *Curve) Len() int { return len(c.times) }

// Times returns a copy of the time points in months.
func (c *Curve) Times() []float64 { return append([]float64(nil), c.times...) }

// Probabilities returns a copy of the survival probabilities.
func (c *Curve) Probabilities() []float64 { return append([]float64(nil), c.probs...) }

// Point returns the i-th (time, probability) pair.
func (c *Curve) Point(i int) (float64, float64) { return c.times[i], c.probs[i] }

// MaxTime is the last observed time point.
func (c *Curve) MaxTime() float64 { return c.times[len(c.times)-1] }

// SurvivalAt returns the survival percentage at the given month, rounded to the
// nearest integer. It uses the exact point when present and otherwise the last
// point at or before the requested time. ok is false for the empty sentinel and
// for negative times.
func (c *Curve) SurvivalAt(months float64) (percent float64, ok bool) {
	if c.empty || months < 0 || math.IsNaN(months) {
		return 0, false
	}
	idx := 0
	for i, t := range c.times {
		if t > months {
			break
		}
		idx = i
	}
	return math.Round(c.probs[idx] * 100), true
}

// MedianSurvivalTime returns the first time at which survival is at or below 50%,
// or the maximum observed time when the curve never gets there.
func (c *Curve) MedianSurvivalTime() (float64, bool) {
	if c.empty {
		return 0, false
	}
	for i, p := range c.probs {
		if p <= 0.5 {
			return c.times[i], true
		}
	}
	return c.MaxTime(), true
}

// MedianReached reports whether the curve actually crosses 50%.
func (c *Curve) MedianReached() bool {
	if c.empty {
		return false
	}
	for _, p := range c.probs {
		if p <= 0.5 {
			return true
		}
	}
	return false
}

// Confidence grades how much weight a curve can bear given its patient count.
type Confidence string

const (
	ConfidenceNone     Confidence = "none"
	ConfidenceLow      Confidence = "low"
	ConfidenceModerate Confidence = "moderate"
	ConfidenceHigh     Confidence = "high"
)

// Confidence is low below 10 patients, moderate below 30 and high otherwise.
func (c *Curve) Confidence() Confidence {
	switch {
	case c.empty || c.n == 0:
		return ConfidenceNone
	case c.n < 10:
		return ConfidenceLow
	case c.n < 30:
		return ConfidenceModerate
	default:
		return ConfidenceHigh
	}
}

type curveJSON struct {
	N         int       `json:"n"`
	X         []float64 `json:"x"`
	Y         []float64 `json:"y"`
	IsEmpty   bool      `json:"is_empty,omitempty"`
	Synthetic bool      `json:"synthetic,omitempty"`
}

// MarshalJSON encodes the curve in the backend's {n, x, y} shape.
func (c *Curve) MarshalJSON() ([]byte, error) {
	return json.Marshal(curveJSON{N: c.n, X: c.times, Y: c.probs, IsEmpty: c.empty, Synthetic: c.synthetic})
}

// UnmarshalJSON decodes and validates an {n, x, y} object.
func (c *Curve) UnmarshalJSON(data []byte) error {
	var raw curveJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.IsEmpty {
		*c = *Empty()
		return nil
	}
	built, err := NewCurve(raw.N, raw.X, raw.Y)
	if err != nil {
		return err
	}
	built.synthetic = raw.Synthetic
	*c = *built
	return nil
}
