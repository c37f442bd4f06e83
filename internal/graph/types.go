package graph

import (
	"time"

	"github.com/joshharrison/loomcast/internal/estimate"
)

// Status is the completion status of a work package.
type Status string

const (
	StatusOpen Status = "open"
	StatusDone Status = "done"
)

// WorkPackage is a unit of project work with an estimate and dependencies.
type WorkPackage struct {
	ID           string
	Title        string
	Estimate     estimate.Spec
	Dependencies []string   // ids that must finish before this one starts
	StartDate    *time.Time // earliest allowed start
	Status       Status
	DoneDate     *time.Time // completion date of a done package
	StartedDate  *time.Time // when work began, used for velocity
}

// Done reports whether the package is already complete.
func (w *WorkPackage) Done() bool {
	return w.Status == StatusDone
}

// Graph is a dependency DAG stored as an arena. Nodes are addressed by their
// position in the input slice; adjacency lists hold indices, never pointers.
type Graph struct {
	Nodes  []WorkPackage
	Index  map[string]int
	Succ   [][]int // node -> nodes it blocks
	Pred   [][]int // node -> nodes that block it
	Order  []int   // topological order, ties broken by input position
	Roots  []int   // nodes with no dependencies
	Leaves []int   // nodes nothing depends on
}
