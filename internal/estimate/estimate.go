// Package estimate holds the closed set of ways a work package can be
// estimated, plus the tables that turn story points into day ranges.
package estimate

import (
	"fmt"
	"math"
	"time"

	"github.com/joshharrison/loomcast/internal/errs"
)

// Kind names an estimate variant.
type Kind string

const (
	KindFixed       Kind = "fixed"
	KindThreePoint  Kind = "three_point"
	KindStoryPoints Kind = "story_points"
	KindThroughput  Kind = "throughput"
)

// Spec is one of FixedTimeBox, ThreePoint, StoryPoints or EmpiricalThroughput.
// The set is sealed; the sampler switches over it exhaustively.
type Spec interface {
	Kind() Kind
	sealed()
}

// FixedTimeBox finishes on End regardless of calendar or dependencies.
type FixedTimeBox struct {
	End time.Time `json:"end" yaml:"end"`
}

// ThreePoint is an optimistic/likely/pessimistic estimate in working days.
type ThreePoint struct {
	Optimistic  float64 `json:"optimistic" yaml:"optimistic"`
	Likely      float64 `json:"likely" yaml:"likely"`
	Pessimistic float64 `json:"pessimistic" yaml:"pessimistic"`
}

// StoryPoints is mapped to a ThreePoint day range through a PointsTable.
type StoryPoints struct {
	Value float64 `json:"value" yaml:"value"`
}

// EmpiricalThroughput samples daily completions from the named history.
// Items is the number of items the work package has to burn down.
type EmpiricalThroughput struct {
	Series string `json:"series" yaml:"series"`
	Items  int    `json:"items" yaml:"items"`
}

func (FixedTimeBox) Kind() Kind        { return KindFixed }
func (ThreePoint) Kind() Kind          { return KindThreePoint }
func (StoryPoints) Kind() Kind         { return KindStoryPoints }
func (EmpiricalThroughput) Kind() Kind { return KindThroughput }

func (FixedTimeBox) sealed()        {}
func (ThreePoint) sealed()          {}
func (StoryPoints) sealed()         {}
func (EmpiricalThroughput) sealed() {}

// Validate checks optimistic <= likely <= pessimistic, all finite and non-negative.
func (tp ThreePoint) Validate() error {
	for _, v := range []float64{tp.Optimistic, tp.Likely, tp.Pessimistic} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return tp.invalid("non-finite value")
		}
		if v < 0 {
			return tp.invalid("negative value")
		}
	}
	if tp.Optimistic > tp.Likely {
		return tp.invalid(fmt.Sprintf("optimistic %g > likely %g", tp.Optimistic, tp.Likely))
	}
	if tp.Likely > tp.Pessimistic {
		return tp.invalid(fmt.Sprintf("likely %g > pessimistic %g", tp.Likely, tp.Pessimistic))
	}
	return nil
}

func (tp ThreePoint) invalid(reason string) error {
	return errs.InvalidEstimate("", reason).
		WithDetail("optimistic", tp.Optimistic).
		WithDetail("likely", tp.Likely).
		WithDetail("pessimistic", tp.Pessimistic)
}

// Degenerate reports whether the range collapses to a single value.
func (tp ThreePoint) Degenerate() bool {
	return tp.Optimistic == tp.Pessimistic
}

// Expected returns the PERT mean (o + 4l + p) / 6.
func (tp ThreePoint) Expected() float64 {
	return (tp.Optimistic + 4*tp.Likely + tp.Pessimistic) / 6
}

// Scale divides every point by divisor.
func (tp ThreePoint) Scale(divisor float64) ThreePoint {
	return ThreePoint{
		Optimistic:  tp.Optimistic / divisor,
		Likely:      tp.Likely / divisor,
		Pessimistic: tp.Pessimistic / divisor,
	}
}
