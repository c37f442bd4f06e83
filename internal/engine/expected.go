package engine

import (
	"fmt"

	"github.com/joshharrison/loomcast/internal/calendar"
	"github.com/joshharrison/loomcast/internal/errs"
	"github.com/joshharrison/loomcast/internal/estimate"
	"github.com/joshharrison/loomcast/internal/graph"
	"github.com/joshharrison/loomcast/internal/history"
	"github.com/joshharrison/loomcast/internal/sampler"
	"github.com/joshharrison/loomcast/internal/stats"
)

// ExpectedDurations returns one deterministic duration per node of g, in
// working days, for critical path analysis without sampling:
//
//   - three point: the PERT mean
//   - story points: the PERT mean of the mapped range
//   - throughput: items divided by the mean of the series
//   - fixed time boxes and done packages: zero
//
// cfg supplies Points and Histories; a nil Points table is derived from
// velocity as in RunDependencySimulation.
func ExpectedDurations(g *graph.Graph, cal *calendar.Calendar, cfg Config) ([]float64, error) {
	smp := &sampler.Sampler{Histories: cfg.Histories, Points: cfg.Points}
	if smp.Points == nil && history.UsesStoryPoints(g.Nodes) {
		v, err := history.StoryPointVelocity(g.Nodes, cal)
		if err != nil {
			return nil, fmt.Errorf("story point velocity: %w", err)
		}
		smp.Points = estimate.FibonacciTable{Velocity: v}
	}

	out := make([]float64, g.Len())
	for i := range g.Nodes {
		wp := &g.Nodes[i]
		if wp.Done() {
			continue
		}
		if err := smp.Validate(wp.Estimate); err != nil {
			return nil, errs.WithNode(err, wp.ID)
		}
		switch e := wp.Estimate.(type) {
		case estimate.ThreePoint:
			out[i] = e.Expected()
		case estimate.StoryPoints:
			tp, err := smp.Points.Range(e.Value)
			if err != nil {
				return nil, errs.WithNode(err, wp.ID)
			}
			out[i] = tp.Expected()
		case estimate.EmpiricalThroughput:
			out[i] = float64(e.Items) / stats.Mean(cfg.Histories[e.Series])
		case estimate.FixedTimeBox:
		}
	}
	return out, nil
}
