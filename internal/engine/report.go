package engine

import (
	"crypto/sha1"
	"encoding/binary"
	"time"

	"github.com/google/uuid"

	"github.com/joshharrison/loomcast/internal/stats"
)

// runNamespace scopes run ids derived from simulation inputs and outcomes.
var runNamespace = uuid.MustParse("5b0b8f4e-3c1d-4c59-9f0e-6a8d2f7c1e42")

// Percentile is one row of a forecast table.
type Percentile struct {
	Rank int       `json:"rank" yaml:"rank"`
	Days int       `json:"days" yaml:"days"` // working days from start
	Date time.Time `json:"date" yaml:"date"`
}

// PackageForecast is the per work package breakdown of a dependency run.
type PackageForecast struct {
	ID          string       `json:"id" yaml:"id"`
	Title       string       `json:"title,omitempty" yaml:"title,omitempty"`
	Done        bool         `json:"done" yaml:"done"`
	Percentiles []Percentile `json:"percentiles" yaml:"percentiles"`
	// Criticality is the fraction of iterations in which the package was on
	// the chain that determined the project finish.
	Criticality float64 `json:"criticality" yaml:"criticality"`
	Samples     []int   `json:"-" yaml:"-"` // working days to finish by iteration
}

// Report is the outcome of a simulation run. It is built once and not
// modified by the engine afterwards.
type Report struct {
	RunID        string            `json:"run_id" yaml:"run_id"`
	Source       string            `json:"source,omitempty" yaml:"source,omitempty"`
	Mode         Mode              `json:"mode" yaml:"mode"`
	StartDate    time.Time         `json:"start_date" yaml:"start_date"`
	Iterations   int               `json:"iterations" yaml:"iterations"`
	Seed         uint64            `json:"seed" yaml:"seed"`
	Backlog      int               `json:"backlog,omitempty" yaml:"backlog,omitempty"`
	Velocity     *float64          `json:"velocity,omitempty" yaml:"velocity,omitempty"`
	Percentiles  []Percentile      `json:"percentiles" yaml:"percentiles"`
	Mean         float64           `json:"mean_days" yaml:"mean_days"`
	StdDev       float64           `json:"stddev_days" yaml:"stddev_days"`
	Histogram    []stats.Bin       `json:"histogram,omitempty" yaml:"histogram,omitempty"`
	WorkPackages []PackageForecast `json:"work_packages,omitempty" yaml:"work_packages,omitempty"`
	Results      []int             `json:"results" yaml:"results"` // sorted overall working days
	Samples      []int             `json:"-" yaml:"-"`             // overall working days by iteration
}

// Percentile returns the row for rank.
func (r *Report) Percentile(rank int) (Percentile, bool) {
	for _, p := range r.Percentiles {
		if p.Rank == rank {
			return p, true
		}
	}
	return Percentile{}, false
}

// Package returns the breakdown for a work package id.
func (r *Report) Package(id string) (PackageForecast, bool) {
	for _, wp := range r.WorkPackages {
		if wp.ID == id {
			return wp, true
		}
	}
	return PackageForecast{}, false
}

// assemble builds the immutable report. samples hold day values; daysOf maps
// one to working days and dateOf to its date. daysOf must not decrease, so
// percentiles can be taken before mapping.
func assemble(cfg Config, mode Mode, samples []int, daysOf func(int) int, dateOf func(int) time.Time) Report {
	days := mapDays(samples, daysOf)
	mean, std := stats.MeanStdDev(stats.Floats(days))
	return Report{
		RunID:       runID(cfg, mode, samples),
		Source:      cfg.Source,
		Mode:        mode,
		StartDate:   cfg.StartDate,
		Iterations:  cfg.Iterations,
		Seed:        cfg.Seed,
		Percentiles: percentiles(samples, daysOf, dateOf),
		Mean:        mean,
		StdDev:      std,
		Histogram:   stats.Histogram(days),
		Results:     stats.Sorted(days),
		Samples:     days,
	}
}

func percentiles(samples []int, daysOf func(int) int, dateOf func(int) time.Time) []Percentile {
	table := stats.Summarize(samples)
	out := make([]Percentile, len(table))
	for i, row := range table {
		out[i] = Percentile{Rank: row.Rank, Days: daysOf(row.Value), Date: dateOf(row.Value)}
	}
	return out
}

func mapDays(samples []int, daysOf func(int) int) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = daysOf(s)
	}
	return out
}

func identity(v int) int { return v }

// runID is a name-based UUID over the run's inputs and outcome, so identical
// runs share an id.
func runID(cfg Config, mode Mode, samples []int) string {
	h := sha1.New()
	var buf [8]byte
	h.Write([]byte(mode))
	h.Write([]byte(cfg.Source))
	h.Write([]byte(cfg.StartDate.Format(time.DateOnly)))
	binary.LittleEndian.PutUint64(buf[:], cfg.Seed)
	h.Write(buf[:])
	for _, s := range samples {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(s)))
		h.Write(buf[:])
	}
	return uuid.NewSHA1(runNamespace, h.Sum(nil)).String()
}
