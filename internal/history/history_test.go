package history

import (
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/joshharrison/loomcast/internal/calendar"
	"github.com/joshharrison/loomcast/internal/errs"
	"github.com/joshharrison/loomcast/internal/estimate"
	"github.com/joshharrison/loomcast/internal/graph"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func doneStoryPoints(id string, points float64, started, done time.Time) graph.WorkPackage {
	return graph.WorkPackage{
		ID:          id,
		Status:      graph.StatusDone,
		Estimate:    estimate.StoryPoints{Value: points},
		StartedDate: &started,
		DoneDate:    &done,
	}
}

func TestStoryPointVelocity(t *testing.T) {
	// Mon 2026-02-16 .. Fri 2026-02-27: 10 working days, 20 points.
	pkgs := []graph.WorkPackage{
		doneStoryPoints("a", 8, date(2026, 2, 16), date(2026, 2, 20)),
		doneStoryPoints("b", 12, date(2026, 2, 19), date(2026, 2, 27)),
		{ID: "open", Status: graph.StatusOpen, Estimate: estimate.StoryPoints{Value: 5}},
	}
	v, err := StoryPointVelocity(pkgs, calendar.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(v-2) > 1e-9 {
		t.Errorf("expected velocity 2, got %g", v)
	}
}

func TestStoryPointVelocity_CountsWorkingDaysInclusive(t *testing.T) {
	// Started and done the same Wednesday: one day of capacity.
	sameDay := []graph.WorkPackage{doneStoryPoints("a", 3, date(2026, 2, 18), date(2026, 2, 18))}
	v, err := StoryPointVelocity(sameDay, calendar.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(v-3) > 1e-9 {
		t.Errorf("expected velocity 3, got %g", v)
	}

	// Friday to Monday spans two working days, not three calendar days.
	overWeekend := []graph.WorkPackage{doneStoryPoints("b", 4, date(2026, 2, 20), date(2026, 2, 23))}
	v, err = StoryPointVelocity(overWeekend, calendar.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(v-2) > 1e-9 {
		t.Errorf("expected velocity 2, got %g", v)
	}
}

func TestStoryPointVelocity_UsesLastWindow(t *testing.T) {
	cal := &calendar.Calendar{NonWorkingDays: []time.Weekday{}}
	var pkgs []graph.WorkPackage
	// 40 one-day packages; the first ten carry huge estimates that must be ignored.
	for i := 0; i < 40; i++ {
		d := date(2026, 1, 1).AddDate(0, 0, i)
		points := 1.0
		if i < 10 {
			points = 100
		}
		pkgs = append(pkgs, doneStoryPoints(string(rune('A'+i)), points, d, d))
	}
	v, err := StoryPointVelocity(pkgs, cal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(v-1) > 1e-9 {
		t.Errorf("expected velocity 1, got %g", v)
	}
}

func TestStoryPointVelocity_NoData(t *testing.T) {
	pkgs := []graph.WorkPackage{
		{ID: "a", Status: graph.StatusDone, Estimate: estimate.ThreePoint{Optimistic: 1, Likely: 2, Pessimistic: 3}},
	}
	_, err := StoryPointVelocity(pkgs, nil)
	if !errors.Is(err, errs.ErrInsufficientHistory) {
		t.Errorf("expected InsufficientHistory, got %v", err)
	}
}

func TestStoryPointVelocity_WeekendOnly(t *testing.T) {
	pkgs := []graph.WorkPackage{doneStoryPoints("a", 3, date(2026, 2, 21), date(2026, 2, 22))}
	_, err := StoryPointVelocity(pkgs, calendar.Default())
	if !errors.Is(err, errs.ErrInsufficientHistory) {
		t.Errorf("expected InsufficientHistory, got %v", err)
	}
}

func TestUsesStoryPoints(t *testing.T) {
	pkgs := []graph.WorkPackage{doneStoryPoints("a", 3, date(2026, 2, 16), date(2026, 2, 17))}
	if UsesStoryPoints(pkgs) {
		t.Error("expected done packages to be ignored")
	}
	pkgs = append(pkgs, graph.WorkPackage{ID: "b", Status: graph.StatusOpen, Estimate: estimate.StoryPoints{Value: 2}})
	if !UsesStoryPoints(pkgs) {
		t.Error("expected open story point package to be detected")
	}
}

func TestDailyCounts(t *testing.T) {
	completions := []time.Time{
		time.Date(2026, 2, 18, 15, 4, 0, 0, time.UTC),
		time.Date(2026, 2, 16, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 16, 17, 30, 0, 0, time.UTC),
		time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC),
	}
	got := DailyCounts(completions)
	want := []float64{2, 0, 1, 0, 1}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if DailyCounts(nil) != nil {
		t.Error("expected nil for no completions")
	}
}

func TestSeries_SortsByDate(t *testing.T) {
	got := Series([]Point{
		{Date: date(2026, 2, 18), Completed: 3},
		{Date: date(2026, 2, 16), Completed: 1},
		{Date: date(2026, 2, 17), Completed: 0},
	})
	if !slices.Equal(got, []float64{1, 0, 3}) {
		t.Errorf("expected [1 0 3], got %v", got)
	}
}
