package sampler

import (
	"errors"
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/joshharrison/loomcast/internal/errs"
	"github.com/joshharrison/loomcast/internal/estimate"
)

// maxRand always picks the last element of a series.
type maxRand struct{ seq uint64 }

func (m *maxRand) Uint64() uint64 {
	m.seq += 0x9E3779B97F4A7C15
	return m.seq
}

func (m *maxRand) IntN(n int) int { return n - 1 }

func newSampler() *Sampler {
	return &Sampler{
		Histories: map[string][]float64{
			"team":  {1, 2, 3},
			"empty": {},
			"idle":  {0, 0, 0},
		},
		Points: estimate.FibonacciTable{Velocity: 1},
	}
}

func TestDraw_FixedTimeBoxIgnoresRandomness(t *testing.T) {
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s := newSampler()
	got, err := s.Draw(NewRand(1, 0), estimate.FixedTimeBox{End: end})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.End.Equal(end) || got.Kind != estimate.KindFixed {
		t.Errorf("expected fixed end %s, got %+v", end, got)
	}
}

func TestDraw_ThreePointWithinRange(t *testing.T) {
	s := newSampler()
	rng := NewRand(42, 0)
	tp := estimate.ThreePoint{Optimistic: 1, Likely: 2, Pessimistic: 3}

	values := make([]float64, 10000)
	for i := range values {
		got, err := s.Draw(rng, tp)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Days < 1 || got.Days > 3 {
			t.Fatalf("sample %d out of range: %g", i, got.Days)
		}
		values[i] = got.Days
	}

	// Symmetric estimate: PERT mean is the likely value.
	if mean := stat.Mean(values, nil); math.Abs(mean-2) > 0.05 {
		t.Errorf("expected mean near 2, got %g", mean)
	}
}

func TestDraw_SkewedThreePointMean(t *testing.T) {
	rng := NewRand(7, 3)
	tp := estimate.ThreePoint{Optimistic: 1, Likely: 2, Pessimistic: 9}
	values := make([]float64, 20000)
	for i := range values {
		values[i] = PERT(rng, tp)
	}
	if mean := stat.Mean(values, nil); math.Abs(mean-tp.Expected()) > 0.1 {
		t.Errorf("expected mean near %g, got %g", tp.Expected(), mean)
	}
}

func TestDraw_DegenerateThreePoint(t *testing.T) {
	s := newSampler()
	got, err := s.Draw(NewRand(1, 0), estimate.ThreePoint{Optimistic: 4, Likely: 4, Pessimistic: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Days != 4 {
		t.Errorf("expected 4, got %g", got.Days)
	}
}

func TestDraw_InvalidThreePoint(t *testing.T) {
	s := newSampler()
	_, err := s.Draw(NewRand(1, 0), estimate.ThreePoint{Optimistic: 5, Likely: 2, Pessimistic: 8})
	if !errors.Is(err, errs.ErrInvalidEstimate) {
		t.Errorf("expected InvalidEstimate, got %v", err)
	}
	if err := s.Validate(estimate.ThreePoint{Optimistic: 5, Likely: 2, Pessimistic: 8}); !errors.Is(err, errs.ErrInvalidEstimate) {
		t.Errorf("expected Validate to report InvalidEstimate, got %v", err)
	}
}

func TestDraw_StoryPoints(t *testing.T) {
	s := newSampler()
	rng := NewRand(5, 0)
	for i := 0; i < 1000; i++ {
		got, err := s.Draw(rng, estimate.StoryPoints{Value: 5})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Days < 3 || got.Days > 5 {
			t.Fatalf("expected story point draw in [3,5], got %g", got.Days)
		}
	}

	s.Points = nil
	if _, err := s.Draw(rng, estimate.StoryPoints{Value: 5}); errs.CodeOf(err) != errs.CodeInvalidConfig {
		t.Errorf("expected InvalidConfig without a table, got %v", err)
	}
}

func TestDraw_EmpiricalPicksFromSeries(t *testing.T) {
	s := newSampler()
	rng := NewRand(9, 0)
	seen := make(map[float64]bool)
	for i := 0; i < 300; i++ {
		got, err := s.Draw(rng, estimate.EmpiricalThroughput{Series: "team"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Throughput < 1 || got.Throughput > 3 {
			t.Fatalf("unexpected throughput %g", got.Throughput)
		}
		seen[got.Throughput] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected every history value to be drawn, saw %v", seen)
	}
}

func TestDraw_EmpiricalForcedMax(t *testing.T) {
	s := newSampler()
	rng := &maxRand{}
	got, err := s.Draw(rng, estimate.EmpiricalThroughput{Series: "team"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Throughput != 3 {
		t.Errorf("expected 3, got %g", got.Throughput)
	}
}

func TestDraw_InsufficientHistory(t *testing.T) {
	s := newSampler()
	for _, name := range []string{"empty", "idle", "missing"} {
		_, err := s.Draw(NewRand(1, 0), estimate.EmpiricalThroughput{Series: name})
		if !errors.Is(err, errs.ErrInsufficientHistory) {
			t.Errorf("%s: expected InsufficientHistory, got %v", name, err)
		}
	}
}

func TestDraw_NilEstimate(t *testing.T) {
	s := newSampler()
	if _, err := s.Draw(NewRand(1, 0), nil); !errors.Is(err, errs.ErrInvalidEstimate) {
		t.Errorf("expected InvalidEstimate, got %v", err)
	}
}

func TestDeterminism_SameSeedSameDraws(t *testing.T) {
	tp := estimate.ThreePoint{Optimistic: 1, Likely: 3, Pessimistic: 10}
	a, b := NewRand(123, 4), NewRand(123, 4)
	for i := 0; i < 100; i++ {
		if x, y := PERT(a, tp), PERT(b, tp); x != y {
			t.Fatalf("draw %d differs: %g vs %g", i, x, y)
		}
	}
}

func TestNewSeed(t *testing.T) {
	a, err := NewSeed()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := NewSeed()
	if a == b {
		t.Error("expected two seeds to differ")
	}
}
