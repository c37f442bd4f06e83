// Package sampler draws one duration or throughput value per work package per
// iteration. The randomness source is always passed in; nothing here keeps
// global state, so identical sources and call sequences give identical draws.
package sampler

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/joshharrison/loomcast/internal/errs"
	"github.com/joshharrison/loomcast/internal/estimate"
)

// Rand is the randomness the sampler consumes. *rand.Rand satisfies it, and
// so does any rand.Source that can also pick bounded integers.
type Rand interface {
	Uint64() uint64
	IntN(n int) int
}

// NewRand returns a PCG-backed source for one stream of a seed.
// Streams of the same seed are independent, which lets iterations run in
// any order and still reproduce.
func NewRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Sample is the outcome of a single draw.
type Sample struct {
	Kind       estimate.Kind
	Days       float64   // working days of effort (three point, story points)
	End        time.Time // fixed finish date (fixed time box)
	Throughput float64   // items per working day (empirical throughput)
}

// Sampler resolves estimates against throughput histories and a story point table.
type Sampler struct {
	Histories map[string][]float64
	Points    estimate.PointsTable
}

// Validate checks that spec can be drawn from without drawing.
func (s *Sampler) Validate(spec estimate.Spec) error {
	switch e := spec.(type) {
	case estimate.FixedTimeBox:
		if e.End.IsZero() {
			return errs.InvalidEstimate("", "fixed time box has no end date")
		}
		return nil
	case estimate.ThreePoint:
		return e.Validate()
	case estimate.StoryPoints:
		_, err := s.storyRange(e)
		return err
	case estimate.EmpiricalThroughput:
		_, err := s.series(e.Series)
		return err
	case nil:
		return errs.InvalidEstimate("", "no estimate")
	default:
		return errs.InvalidEstimate("", fmt.Sprintf("unsupported estimate %T", spec))
	}
}

// Draw produces one sample for spec, consuming randomness from rng.
func (s *Sampler) Draw(rng Rand, spec estimate.Spec) (Sample, error) {
	switch e := spec.(type) {
	case estimate.FixedTimeBox:
		return Sample{Kind: estimate.KindFixed, End: e.End}, nil
	case estimate.ThreePoint:
		if err := e.Validate(); err != nil {
			return Sample{}, err
		}
		return Sample{Kind: estimate.KindThreePoint, Days: PERT(rng, e)}, nil
	case estimate.StoryPoints:
		tp, err := s.storyRange(e)
		if err != nil {
			return Sample{}, err
		}
		return Sample{Kind: estimate.KindStoryPoints, Days: PERT(rng, tp)}, nil
	case estimate.EmpiricalThroughput:
		v, err := s.Throughput(rng, e.Series)
		if err != nil {
			return Sample{}, err
		}
		return Sample{Kind: estimate.KindThroughput, Throughput: v}, nil
	case nil:
		return Sample{}, errs.InvalidEstimate("", "no estimate")
	default:
		return Sample{}, errs.InvalidEstimate("", fmt.Sprintf("unsupported estimate %T", spec))
	}
}

// Throughput picks one value uniformly, with replacement, from the named series.
func (s *Sampler) Throughput(rng Rand, name string) (float64, error) {
	series, err := s.series(name)
	if err != nil {
		return 0, err
	}
	return Pick(rng, series), nil
}

// Pick returns a uniformly chosen element of a non-empty series.
func Pick(rng Rand, series []float64) float64 {
	return series[rng.IntN(len(series))]
}

func (s *Sampler) series(name string) ([]float64, error) {
	series, ok := s.Histories[name]
	if !ok {
		return nil, errs.InsufficientHistory("", name, fmt.Sprintf("unknown throughput history %q", name))
	}
	if err := CheckSeries(name, series); err != nil {
		return nil, err
	}
	return series, nil
}

// CheckSeries rejects series that cannot drive a forecast: empty, negative,
// non-finite or never completing anything.
func CheckSeries(name string, series []float64) error {
	if len(series) == 0 {
		return errs.InsufficientHistory("", name, "throughput history is empty")
	}
	var total float64
	for i, v := range series {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return errs.InsufficientHistory("", name, fmt.Sprintf("invalid throughput %g at position %d", v, i))
		}
		total += v
	}
	if total == 0 {
		return errs.InsufficientHistory("", name, "throughput history has no completions")
	}
	return nil
}

func (s *Sampler) storyRange(sp estimate.StoryPoints) (estimate.ThreePoint, error) {
	if s.Points == nil {
		return estimate.ThreePoint{}, errs.New(errs.CodeInvalidConfig, "story points used without a points table")
	}
	tp, err := s.Points.Range(sp.Value)
	if err != nil {
		return estimate.ThreePoint{}, err
	}
	if err := tp.Validate(); err != nil {
		return estimate.ThreePoint{}, err
	}
	return tp, nil
}

// PERT draws from the PERT-Beta distribution of a valid three point estimate,
// scaled into [optimistic, pessimistic]. A degenerate range returns optimistic
// without consuming randomness.
func PERT(rng Rand, tp estimate.ThreePoint) float64 {
	if tp.Degenerate() {
		return tp.Optimistic
	}
	span := tp.Pessimistic - tp.Optimistic
	b := distuv.Beta{
		Alpha: 1 + 4*(tp.Likely-tp.Optimistic)/span,
		Beta:  1 + 4*(tp.Pessimistic-tp.Likely)/span,
		Src:   rng,
	}
	v := tp.Optimistic + b.Rand()*span
	return math.Min(math.Max(v, tp.Optimistic), tp.Pessimistic)
}
