package graph

import (
	"slices"
	"sort"

	"github.com/joshharrison/loomcast/internal/errs"
)

// Build validates the work packages and orders them into a DAG.
// The input slice is copied; callers may reuse it.
func Build(packages []WorkPackage) (*Graph, error) {
	n := len(packages)
	g := &Graph{
		Nodes: slices.Clone(packages),
		Index: make(map[string]int, n),
		Succ:  make([][]int, n),
		Pred:  make([][]int, n),
	}

	// Index all packages
	for i := range g.Nodes {
		id := g.Nodes[i].ID
		if id == "" {
			return nil, errs.New(errs.CodeInvalidConfig, "work package at position %d has no id", i)
		}
		if _, dup := g.Index[id]; dup {
			return nil, &errs.Error{Code: errs.CodeInvalidConfig, Message: "duplicate work package id", NodeID: id}
		}
		g.Index[id] = i
	}

	// Resolve edges in input order so the first bad reference is reported
	for i := range g.Nodes {
		wp := &g.Nodes[i]
		seen := make(map[int]bool, len(wp.Dependencies))
		for _, dep := range wp.Dependencies {
			j, ok := g.Index[dep]
			if !ok {
				return nil, errs.UnknownDependency(wp.ID, dep)
			}
			if j == i {
				return nil, errs.CycleDetected([]string{wp.ID}, []string{wp.ID, wp.ID})
			}
			if seen[j] {
				continue
			}
			seen[j] = true
			g.Succ[j] = append(g.Succ[j], i)
			g.Pred[i] = append(g.Pred[i], j)
		}
	}
	for i := range g.Succ {
		sort.Ints(g.Succ[i])
		sort.Ints(g.Pred[i])
	}

	for i := 0; i < n; i++ {
		if len(g.Pred[i]) == 0 {
			g.Roots = append(g.Roots, i)
		}
		if len(g.Succ[i]) == 0 {
			g.Leaves = append(g.Leaves, i)
		}
	}

	order, remainder := kahn(g.Succ, g.Pred)
	if len(remainder) > 0 {
		return nil, errs.CycleDetected(g.IDs(remainder), g.IDs(detectCycle(g.Succ)))
	}
	g.Order = order

	return g, nil
}

// kahn returns a topological order that always emits the lowest-index ready
// node first, and the nodes it could not order (input order).
func kahn(succ, pred [][]int) (order, remainder []int) {
	inDegree := make([]int, len(pred))
	var ready []int
	for i := range pred {
		inDegree[i] = len(pred[i])
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order = make([]int, 0, len(pred))
	for len(ready) > 0 {
		node := ready[0]
		ready = ready[1:]
		order = append(order, node)

		for _, s := range succ[node] {
			inDegree[s]--
			if inDegree[s] == 0 {
				pos := sort.SearchInts(ready, s)
				ready = slices.Insert(ready, pos, s)
			}
		}
	}

	for i, d := range inDegree {
		if d > 0 {
			remainder = append(remainder, i)
		}
	}
	return order, remainder
}

// detectCycle returns one cycle as a closed index path (first == last), or nil.
// Uses DFS with coloring: white (unvisited), gray (in progress), black (done).
func detectCycle(succ [][]int) []int {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make([]int, len(succ))
	parent := make([]int, len(succ))

	var dfs func(node int) []int
	dfs = func(node int) []int {
		color[node] = gray
		for _, next := range succ[node] {
			if color[next] == gray {
				cycle := []int{next, node}
				for cur := node; cur != next; {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				slices.Reverse(cycle)
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	for i := range succ {
		if color[i] == white {
			if cycle := dfs(i); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// IDs maps node indices to work package ids.
func (g *Graph) IDs(idx []int) []string {
	if idx == nil {
		return nil
	}
	out := make([]string, len(idx))
	for i, n := range idx {
		out[i] = g.Nodes[n].ID
	}
	return out
}

// Lookup returns the index of the work package with the given id.
func (g *Graph) Lookup(id string) (int, bool) {
	i, ok := g.Index[id]
	return i, ok
}

// Len returns the number of work packages in the graph.
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// Filter returns a new Graph containing only packages matching the predicate.
// Dependencies on filtered-out packages are dropped.
func (g *Graph) Filter(pred func(*WorkPackage) bool) (*Graph, error) {
	keep := make(map[string]bool)
	var filtered []WorkPackage
	for i := range g.Nodes {
		if pred(&g.Nodes[i]) {
			keep[g.Nodes[i].ID] = true
			filtered = append(filtered, g.Nodes[i])
		}
	}
	for i := range filtered {
		var deps []string
		for _, d := range filtered[i].Dependencies {
			if keep[d] {
				deps = append(deps, d)
			}
		}
		filtered[i].Dependencies = deps
	}
	return Build(filtered)
}
