package cpm

// Result holds the complete critical path analysis.
type Result struct {
	Nodes         []Schedule // indexed like graph.Graph.Nodes
	CriticalPath  []string   // ordered ids on the critical path
	TotalDuration float64
	Waves         []Wave // parallelizable groups
	TopoOrder     []string
}

// Schedule holds the scheduling info for a single work package, in working days.
type Schedule struct {
	ID         string
	Duration   float64
	ES, EF     float64 // earliest start/finish
	LS, LF     float64 // latest start/finish
	Slack      float64
	IsCritical bool
	Wave       int // which parallel wave this belongs to
}

// Wave represents a group of work packages whose dependencies all sit in earlier waves.
type Wave struct {
	Index      int
	IDs        []string
	IsCritical bool // true if wave contains critical path packages
}
