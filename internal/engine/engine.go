// Package engine runs Monte Carlo forecasts. RunDependencySimulation walks a
// dependency graph per iteration; RunThroughputSimulation burns down a flat
// backlog from historical daily throughput. Both validate every input before
// the first iteration and return an immutable Report.
package engine

import (
	"fmt"
	"time"

	"github.com/joshharrison/loomcast/internal/calendar"
	"github.com/joshharrison/loomcast/internal/cpm"
	"github.com/joshharrison/loomcast/internal/errs"
	"github.com/joshharrison/loomcast/internal/estimate"
	"github.com/joshharrison/loomcast/internal/graph"
	"github.com/joshharrison/loomcast/internal/history"
	"github.com/joshharrison/loomcast/internal/sampler"
	"github.com/joshharrison/loomcast/internal/stats"
)

// Input bundles what Run needs for either mode.
type Input struct {
	Packages []graph.WorkPackage
	Calendar *calendar.Calendar
	Backlog  int
	History  []float64
}

// Run dispatches on cfg.Mode. An empty mode selects the dependency mode
// when packages are supplied and the throughput mode otherwise.
func Run(in Input, cfg Config) (Report, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = ModeThroughput
		if len(in.Packages) > 0 {
			mode = ModeDependency
		}
	}
	switch mode {
	case ModeDependency:
		return RunDependencySimulation(in.Packages, in.Calendar, cfg)
	case ModeThroughput:
		return RunThroughputSimulation(in.Backlog, in.History, in.Calendar, cfg)
	default:
		return Report{}, errs.New(errs.CodeInvalidConfig, "unknown simulation mode %q", mode)
	}
}

// node is the per-package data an iteration needs, resolved once.
type node struct {
	id       string
	spec     estimate.Spec
	done     bool
	doneDay  int
	readyDay int // first day dependents of a done package may start
	hasStart bool
	startDay int
	series   []float64 // empirical throughput packages only
	items    float64
}

type dependencyRun struct {
	cfg      Config
	g        *graph.Graph
	sched    *calendar.Scheduler
	smp      *sampler.Sampler
	nodes    []node
	velocity *float64
	overall  []int
	samples  [][]int // node -> iteration -> finish day
}

// RunDependencySimulation forecasts a set of work packages connected by
// dependencies. cal may be nil for a Monday to Friday calendar.
func RunDependencySimulation(packages []graph.WorkPackage, cal *calendar.Calendar, cfg Config) (Report, error) {
	cfg.Mode = ModeDependency
	run, err := prepareDependency(packages, cal, cfg)
	if err != nil {
		return Report{}, err
	}

	log := cfg.Logger.With().Str("mode", string(ModeDependency)).Logger()
	log.Debug().
		Int("iterations", cfg.Iterations).
		Int("packages", run.g.Len()).
		Int("workers", max(cfg.Workers, 1)).
		Msg("starting simulation")

	scratches, err := runIterations(cfg, run.g.Len(), run.iterate)
	if err != nil {
		return Report{}, err
	}

	report := run.report(scratches)
	if p85, ok := report.Percentile(85); ok {
		log.Info().
			Str("run_id", report.RunID).
			Str("p85", p85.Date.Format(time.DateOnly)).
			Msg("simulation finished")
	}
	return report, nil
}

func prepareDependency(packages []graph.WorkPackage, cal *calendar.Calendar, cfg Config) (*dependencyRun, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(packages) == 0 {
		return nil, errs.New(errs.CodeInvalidConfig, "no work packages to simulate")
	}
	g, err := graph.Build(packages)
	if err != nil {
		return nil, err
	}
	if cal == nil {
		cal = calendar.Default()
	}
	sched, err := calendar.NewScheduler(cal, cfg.StartDate, cfg.lookahead())
	if err != nil {
		return nil, err
	}

	run := &dependencyRun{
		cfg:   cfg,
		g:     g,
		sched: sched,
		smp:   &sampler.Sampler{Histories: cfg.Histories, Points: cfg.Points},
		nodes: make([]node, g.Len()),
	}

	if run.smp.Points == nil && history.UsesStoryPoints(g.Nodes) {
		v, err := history.StoryPointVelocity(g.Nodes, cal)
		if err != nil {
			return nil, fmt.Errorf("story point velocity: %w", err)
		}
		run.smp.Points = estimate.FibonacciTable{Velocity: v}
		run.velocity = &v
	}

	for i := range g.Nodes {
		wp := &g.Nodes[i]
		n := node{id: wp.ID, spec: wp.Estimate, done: wp.Done()}
		if n.done {
			if wp.DoneDate != nil {
				n.doneDay = sched.Offset(*wp.DoneDate)
				n.readyDay = sched.After(n.doneDay)
			}
			run.nodes[i] = n
			continue
		}
		if err := run.smp.Validate(wp.Estimate); err != nil {
			return nil, errs.WithNode(err, wp.ID)
		}
		if et, ok := wp.Estimate.(estimate.EmpiricalThroughput); ok {
			if et.Items <= 0 {
				return nil, errs.InvalidEstimate(wp.ID, "throughput estimate needs a positive item count").
					WithDetail("items", et.Items)
			}
			n.series = cfg.Histories[et.Series]
			n.items = float64(et.Items)
		}
		if wp.StartDate != nil {
			n.hasStart = true
			n.startDay = sched.Offset(*wp.StartDate)
		}
		run.nodes[i] = n
	}

	run.overall = make([]int, cfg.Iterations)
	run.samples = make([][]int, g.Len())
	for i := range run.samples {
		run.samples[i] = make([]int, cfg.Iterations)
	}
	return run, nil
}

// iterate performs one forward pass over the graph.
func (r *dependencyRun) iterate(it int, rng sampler.Rand, sc *scratch) error {
	for _, n := range r.g.Order {
		nd := &r.nodes[n]
		if nd.done {
			sc.start[n] = nd.doneDay
			sc.finish[n] = nd.readyDay
			r.samples[n][it] = nd.doneDay
			continue
		}

		// Earliest eligible start
		es := 0
		for _, p := range r.g.Pred[n] {
			es = max(es, sc.finish[p])
		}
		if nd.hasStart {
			es = max(es, nd.startDay)
		}
		sc.start[n] = es

		s, err := r.smp.Draw(rng, nd.spec)
		if err != nil {
			return errs.WithNode(err, nd.id)
		}

		var finish int
		switch s.Kind {
		case estimate.KindFixed:
			finish = r.sched.Offset(s.End)
		case estimate.KindThroughput:
			first := true
			draw := func() float64 {
				if first {
					first = false
					return s.Throughput
				}
				return sampler.Pick(rng, nd.series)
			}
			last, _, err := r.sched.BurnDown(es, nd.items, r.cfg.horizon(), draw)
			if err != nil {
				return errs.WithNode(err, nd.id)
			}
			finish = r.sched.After(last)
		default:
			finish, err = r.sched.Finish(es, s.Days)
			if err != nil {
				return errs.WithNode(err, nd.id)
			}
		}
		sc.finish[n] = finish
		r.samples[n][it] = finish
	}

	overall := sc.finish[r.g.Leaves[0]]
	for _, l := range r.g.Leaves[1:] {
		overall = max(overall, sc.finish[l])
	}
	r.overall[it] = overall

	sc.path = cpm.DrivingPath(r.g, sc.start, sc.finish, sc.path)
	for _, n := range sc.path {
		sc.critical[n]++
	}
	return nil
}

func (r *dependencyRun) report(scratches []*scratch) Report {
	critical := make([]int, r.g.Len())
	for _, sc := range scratches {
		for n, c := range sc.critical {
			critical[n] += c
		}
	}

	daysOf := r.workingDays()
	report := assemble(r.cfg, ModeDependency, r.overall, daysOf, r.sched.Date)
	report.Velocity = r.velocity
	report.WorkPackages = make([]PackageForecast, r.g.Len())
	for n := range r.g.Nodes {
		wp := &r.g.Nodes[n]
		report.WorkPackages[n] = PackageForecast{
			ID:          wp.ID,
			Title:       wp.Title,
			Done:        wp.Done(),
			Percentiles: percentiles(r.samples[n], daysOf, r.sched.Date),
			Criticality: float64(critical[n]) / float64(r.cfg.Iterations),
			Samples:     mapDays(r.samples[n], daysOf),
		}
	}
	return report
}

// workingDays returns a converter from day offsets to working days since the
// start. Offsets before the start count negatively.
func (r *dependencyRun) workingDays() func(int) int {
	memo := make(map[int]int)
	return func(day int) int {
		if n, ok := memo[day]; ok {
			return n
		}
		n := r.sched.WorkingDays(0, day)
		if day < 0 {
			n = -r.sched.WorkingDays(day, 0)
		}
		memo[day] = n
		return n
	}
}

// RunThroughputSimulation forecasts how many working days a flat backlog
// takes, drawing one value of history per working day. cal may be nil.
func RunThroughputSimulation(backlog int, hist []float64, cal *calendar.Calendar, cfg Config) (Report, error) {
	cfg.Mode = ModeThroughput
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	if backlog < 0 {
		return Report{}, errs.New(errs.CodeInvalidConfig, "backlog size %d is negative", backlog)
	}
	name := cfg.Source
	if name == "" {
		name = "history"
	}
	if err := sampler.CheckSeries(name, hist); err != nil {
		return Report{}, err
	}
	if cal == nil {
		cal = calendar.Default()
	}
	sched, err := calendar.NewScheduler(cal, cfg.StartDate, max(cfg.lookahead(), cfg.horizon()))
	if err != nil {
		return Report{}, err
	}

	log := cfg.Logger.With().Str("mode", string(ModeThroughput)).Logger()
	log.Debug().
		Int("iterations", cfg.Iterations).
		Int("backlog", backlog).
		Int("history_days", len(hist)).
		Msg("starting simulation")

	samples := make([]int, cfg.Iterations)
	items := float64(backlog)
	horizon := cfg.horizon()
	step := func(i int, rng sampler.Rand, _ *scratch) error {
		_, working, err := sched.BurnDown(0, items, horizon, func() float64 {
			return sampler.Pick(rng, hist)
		})
		if err != nil {
			return err
		}
		samples[i] = working
		return nil
	}
	if _, err := runIterations(cfg, 0, step); err != nil {
		return Report{}, err
	}

	dateOf := func(workingDays int) time.Time {
		day, _ := sched.NthWorkingDay(0, workingDays)
		return sched.Date(day)
	}
	report := assemble(cfg, ModeThroughput, samples, identity, dateOf)
	report.Backlog = backlog
	velocity := stats.Mean(hist)
	report.Velocity = &velocity

	if p85, ok := report.Percentile(85); ok {
		log.Info().
			Str("run_id", report.RunID).
			Int("p85_days", p85.Days).
			Msg("simulation finished")
	}
	return report, nil
}
