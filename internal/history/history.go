// Package history derives forecasting inputs from completed work:
// story point velocity and daily completion series.
package history

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/joshharrison/loomcast/internal/calendar"
	"github.com/joshharrison/loomcast/internal/errs"
	"github.com/joshharrison/loomcast/internal/estimate"
	"github.com/joshharrison/loomcast/internal/graph"
)

// VelocityWindow is how many of the most recently finished story point
// packages feed the velocity.
const VelocityWindow = 30

const velocitySeries = "story_points"

// StoryPointVelocity returns points completed per unit of team capacity,
// using the last VelocityWindow done packages that carry story points and
// both a started and a done date. Capacity is summed from the first start
// to the last done date, inclusive.
func StoryPointVelocity(packages []graph.WorkPackage, cal *calendar.Calendar) (float64, error) {
	if cal == nil {
		cal = calendar.Default()
	}

	var done []graph.WorkPackage
	for _, wp := range packages {
		if !wp.Done() || wp.StartedDate == nil || wp.DoneDate == nil {
			continue
		}
		if _, ok := wp.Estimate.(estimate.StoryPoints); ok {
			done = append(done, wp)
		}
	}
	if len(done) == 0 {
		return 0, errs.InsufficientHistory("", velocitySeries, "no completed work packages with story points and dates")
	}

	sort.SliceStable(done, func(i, j int) bool {
		return done[i].DoneDate.Before(*done[j].DoneDate)
	})
	if len(done) > VelocityWindow {
		done = done[len(done)-VelocityWindow:]
	}

	from := *done[0].StartedDate
	to := *done[len(done)-1].DoneDate
	capacity := 0.0
	for d := calendar.Day(from); !d.After(calendar.Day(to)); d = d.AddDate(0, 0, 1) {
		capacity += cal.Capacity(d)
	}
	if capacity <= 0 {
		return 0, errs.InsufficientHistory("", velocitySeries,
			fmt.Sprintf("no team capacity between %s and %s", from.Format(time.DateOnly), to.Format(time.DateOnly)))
	}

	points := 0.0
	for _, wp := range done {
		points += wp.Estimate.(estimate.StoryPoints).Value
	}
	if points <= 0 {
		return 0, errs.InsufficientHistory("", velocitySeries, "completed work packages carry no story points")
	}
	return points / capacity, nil
}

// UsesStoryPoints reports whether any open package is estimated in story points.
func UsesStoryPoints(packages []graph.WorkPackage) bool {
	return slices.ContainsFunc(packages, func(wp graph.WorkPackage) bool {
		_, ok := wp.Estimate.(estimate.StoryPoints)
		return ok && !wp.Done()
	})
}

// DailyCounts buckets completion timestamps into per-day counts from the first
// to the last completion date, inclusive. Days without completions count zero.
func DailyCounts(completions []time.Time) []float64 {
	if len(completions) == 0 {
		return nil
	}
	days := make([]time.Time, len(completions))
	for i, c := range completions {
		days[i] = calendar.Day(c)
	}
	first := slices.MinFunc(days, func(a, b time.Time) int { return a.Compare(b) })
	last := slices.MaxFunc(days, func(a, b time.Time) int { return a.Compare(b) })

	counts := make([]float64, calendar.DaysBetween(first, last)+1)
	for _, d := range days {
		counts[calendar.DaysBetween(first, d)]++
	}
	return counts
}

// Point is one day of throughput history.
type Point struct {
	Date      time.Time `json:"date" yaml:"date"`
	Completed float64   `json:"completed_issues" yaml:"completed_issues"`
}

// Series returns the completed counts of points in date order.
func Series(points []Point) []float64 {
	sorted := slices.Clone(points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	out := make([]float64, len(sorted))
	for i, p := range sorted {
		out[i] = p.Completed
	}
	return out
}
