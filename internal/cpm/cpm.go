package cpm

import (
	"fmt"
	"math"
	"sort"

	"github.com/joshharrison/loomcast/internal/graph"
)

const slackTolerance = 1e-9

// Analyze performs critical path method analysis on a dependency graph.
// durations holds each node's working days, indexed like g.Nodes.
func Analyze(g *graph.Graph, durations []float64) (*Result, error) {
	if len(durations) != g.Len() {
		return nil, fmt.Errorf("critical path: %d durations for %d work packages", len(durations), g.Len())
	}
	for i, d := range durations {
		if d < 0 || math.IsNaN(d) {
			return nil, fmt.Errorf("critical path: invalid duration %g for %s", d, g.Nodes[i].ID)
		}
	}

	result := &Result{
		Nodes:     make([]Schedule, g.Len()),
		TopoOrder: g.IDs(g.Order),
	}
	for i := range result.Nodes {
		result.Nodes[i] = Schedule{ID: g.Nodes[i].ID, Duration: durations[i]}
	}

	// Forward pass: ES = max(EF of all predecessors)
	for _, n := range g.Order {
		ts := &result.Nodes[n]
		es := 0.0
		for _, p := range g.Pred[n] {
			es = math.Max(es, result.Nodes[p].EF)
		}
		ts.ES = es
		ts.EF = es + ts.Duration
	}

	total := 0.0
	for _, ts := range result.Nodes {
		total = math.Max(total, ts.EF)
	}
	result.TotalDuration = total

	// Backward pass in reverse topological order
	for i := len(g.Order) - 1; i >= 0; i-- {
		n := g.Order[i]
		ts := &result.Nodes[n]
		lf := total
		for _, s := range g.Succ[n] {
			lf = math.Min(lf, result.Nodes[s].LS)
		}
		ts.LF = lf
		ts.LS = lf - ts.Duration
		ts.Slack = ts.LS - ts.ES
		ts.IsCritical = math.Abs(ts.Slack) <= slackTolerance
	}

	// Critical path: critical packages in topological order
	for _, n := range g.Order {
		if result.Nodes[n].IsCritical {
			result.CriticalPath = append(result.CriticalPath, result.Nodes[n].ID)
		}
	}

	result.Waves = computeWaves(result, g)

	return result, nil
}

// computeWaves assigns each package to the wave after its latest dependency.
func computeWaves(result *Result, g *graph.Graph) []Wave {
	level := make([]int, g.Len())
	maxLevel := -1
	for _, n := range g.Order {
		for _, p := range g.Pred[n] {
			level[n] = max(level[n], level[p]+1)
		}
		maxLevel = max(maxLevel, level[n])
	}

	waves := make([]Wave, maxLevel+1)
	for i := range waves {
		waves[i].Index = i
	}
	for _, n := range g.Order {
		w := &waves[level[n]]
		result.Nodes[n].Wave = level[n]
		w.IDs = append(w.IDs, g.Nodes[n].ID)
		if result.Nodes[n].IsCritical {
			w.IsCritical = true
		}
	}

	// Critical packages first within a wave
	for i := range waves {
		ids := waves[i].IDs
		sort.SliceStable(ids, func(a, b int) bool {
			ia, _ := g.Lookup(ids[a])
			ib, _ := g.Lookup(ids[b])
			return result.Nodes[ia].IsCritical && !result.Nodes[ib].IsCritical
		})
	}

	return waves
}

// DrivingPath returns the chain of nodes that determined the latest finish,
// ending at the leaf with the greatest finish. Each step walks to the
// predecessor whose finish bound the node's start; ties go to the lowest
// index. The walk stops at a node whose start was not set by a dependency.
// dst is reused when it has capacity.
func DrivingPath(g *graph.Graph, start, finish []int, dst []int) []int {
	dst = dst[:0]
	if len(g.Leaves) == 0 {
		return dst
	}
	cur := g.Leaves[0]
	for _, l := range g.Leaves[1:] {
		if finish[l] > finish[cur] {
			cur = l
		}
	}
	for {
		dst = append(dst, cur)
		next := -1
		for _, p := range g.Pred[cur] {
			if finish[p] == start[cur] && (next < 0 || p < next) {
				next = p
			}
		}
		if next < 0 {
			return dst
		}
		cur = next
	}
}
