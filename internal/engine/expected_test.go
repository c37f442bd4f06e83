package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/joshharrison/loomcast/internal/errs"
	"github.com/joshharrison/loomcast/internal/estimate"
	"github.com/joshharrison/loomcast/internal/graph"
)

func TestExpectedDurations(t *testing.T) {
	doneOn := day(-1)
	pkgs := []graph.WorkPackage{
		{ID: "old", Status: graph.StatusDone, DoneDate: &doneOn, Estimate: threePoint(9, 9, 9)},
		open("pert", threePoint(1, 4, 7), "old"),
		open("points", estimate.StoryPoints{Value: 3}, "pert"),
		open("batch", estimate.EmpiricalThroughput{Series: "team", Items: 10}),
		open("freeze", estimate.FixedTimeBox{End: day(10)}),
	}
	g, err := graph.Build(pkgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := testConfig(1)
	cfg.Points = estimate.LookupTable{3: threePoint(1, 2, 9)}
	cfg.Histories = map[string][]float64{"team": {1, 2, 3, 4}}

	got, err := ExpectedDurations(g, nil, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{0, 4, 3, 4, 0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("%s: expected %g, got %g", pkgs[i].ID, want[i], got[i])
		}
	}
}

func TestExpectedDurations_InvalidEstimate(t *testing.T) {
	g, err := graph.Build([]graph.WorkPackage{open("bad", threePoint(3, 2, 1))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ExpectedDurations(g, nil, testConfig(1)); !errors.Is(err, errs.ErrInvalidEstimate) {
		t.Errorf("expected InvalidEstimate, got %v", err)
	}
}
