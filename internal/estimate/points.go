package estimate

import (
	"fmt"
	"math"
	"sort"

	"github.com/joshharrison/loomcast/internal/errs"
)

// PointsTable maps a story-point value to a day range.
type PointsTable interface {
	Range(points float64) (ThreePoint, error)
}

var fibonacci = []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 55, 89, 144, 233, 377, 610, 987}

// FibonacciBounds returns the Fibonacci numbers bracketing value.
// Values above the series are bounded by the last element and themselves.
func FibonacciBounds(value float64) (lower, upper float64) {
	if value <= fibonacci[0] {
		return fibonacci[0], fibonacci[1]
	}
	for i := 1; i < len(fibonacci); i++ {
		if value <= fibonacci[i] {
			return fibonacci[i-1], fibonacci[i]
		}
	}
	return fibonacci[len(fibonacci)-1], value
}

// FibonacciTable brackets the point value by its Fibonacci neighbours and
// converts points to days by dividing by Velocity (points per day).
type FibonacciTable struct {
	Velocity float64
}

func (t FibonacciTable) Range(points float64) (ThreePoint, error) {
	if !(t.Velocity > 0) || math.IsInf(t.Velocity, 0) {
		return ThreePoint{}, errs.New(errs.CodeInvalidConfig, "story point velocity must be positive").
			WithDetail("velocity", t.Velocity)
	}
	if math.IsNaN(points) || points < 0 {
		return ThreePoint{}, errs.InvalidEstimate("", fmt.Sprintf("story points %g out of range", points))
	}
	lower, upper := FibonacciBounds(points)
	return ThreePoint{Optimistic: lower, Likely: points, Pessimistic: upper}.Scale(t.Velocity), nil
}

// LookupTable is an explicit point value to day range table.
type LookupTable map[float64]ThreePoint

func (t LookupTable) Range(points float64) (ThreePoint, error) {
	tp, ok := t[points]
	if !ok {
		return ThreePoint{}, errs.InvalidEstimate("", fmt.Sprintf("no day range configured for %g story points", points)).
			WithDetail("known", t.Points())
	}
	return tp, nil
}

// Points returns the configured point values in ascending order.
func (t LookupTable) Points() []float64 {
	out := make([]float64, 0, len(t))
	for p := range t {
		out = append(out, p)
	}
	sort.Float64s(out)
	return out
}
