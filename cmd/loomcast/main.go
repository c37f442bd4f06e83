package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/joshharrison/loomcast/internal/calendar"
	"github.com/joshharrison/loomcast/internal/config"
	"github.com/joshharrison/loomcast/internal/cpm"
	"github.com/joshharrison/loomcast/internal/engine"
	"github.com/joshharrison/loomcast/internal/graph"
	"github.com/joshharrison/loomcast/internal/history"
	"github.com/joshharrison/loomcast/internal/logging"
	"github.com/joshharrison/loomcast/internal/project"
	"github.com/joshharrison/loomcast/internal/reporter"
	"github.com/joshharrison/loomcast/internal/sampler"
	"github.com/joshharrison/loomcast/internal/state"
	"github.com/joshharrison/loomcast/internal/ui"
)

var (
	flagConfig    string
	flagEnvFile   string
	flagLogLevel  string
	flagJSON      bool
	flagNoColor   bool
	flagCalendar  string
	flagIters     int
	flagSeed      uint64
	flagWorkers   int
	flagStart     string
	flagFormat    string
	flagTemplate  string
	flagOutput    string
	flagHistories []string
	flagGantt     string
	flagGanttRank int
	flagBacklog   int
	flagHistory   string
	flagExport    string
	flagIssues    string
	flagResolved  string
	flagOpenOnly  bool
	flagLogo      bool
	flagRecord    bool
	flagClean     bool
)

// cfg holds the resolved configuration for the running command.
var cfg *config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:   "loomcast",
		Short: "Forecast project delivery dates with Monte Carlo simulation",
		Long: `Loomcast forecasts when work will be done. It simulates a project's
dependency graph against a team calendar, or burns down a flat backlog
using historical daily throughput, and reports percentile completion dates.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(config.Options{ConfigFile: flagConfig, EnvFile: flagEnvFile})
			if err != nil {
				return err
			}
			if flagLogLevel != "" {
				c.Log.Level = flagLogLevel
			}
			if err := c.Log.Validate(); err != nil {
				return err
			}
			cfg = c
			if flagNoColor {
				ui.SetColor(false)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ./loomcast.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "Env file (default ./.env)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(simulateNCmd())
	rootCmd.AddCommand(graphCmd())
	rootCmd.AddCommand(throughputCmd())
	rootCmd.AddCommand(runsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&flagIters, "iterations", "n", 0, "Number of iterations (default from config)")
	cmd.Flags().Uint64Var(&flagSeed, "seed", 0, "Random seed (default from config, or random)")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "Goroutines to spread iterations over (default from config)")
	cmd.Flags().StringVar(&flagStart, "start", "", "Start date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&flagCalendar, "calendar", "", "Team calendar directory")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Report format: text, json or yaml")
	cmd.Flags().StringVar(&flagTemplate, "template", "", "text/template file for text reports")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write the report to a file")
	cmd.Flags().BoolVar(&flagLogo, "logo", false, "Print the logo before the report")
	cmd.Flags().BoolVar(&flagRecord, "record", false, "Append the forecast to the run log next to the input file")
}

func simulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate <project.yaml>",
		Short: "Forecast a project from its work packages and dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := project.LoadProject(args[0])
			if err != nil {
				return err
			}
			cal, err := loadCalendar()
			if err != nil {
				return err
			}
			ecfg, err := engineConfig(cmd, args[0])
			if err != nil {
				return err
			}
			if ecfg.Histories, err = loadHistories(flagHistories); err != nil {
				return err
			}

			report, err := engine.RunDependencySimulation(proj.Packages, cal, ecfg)
			if err != nil {
				return fmt.Errorf("simulate %s: %w", args[0], err)
			}

			if flagGantt != "" {
				if err := writeGantt(proj, &report); err != nil {
					return err
				}
			}
			if err := record(args[0], &report); err != nil {
				return err
			}
			return writeReport(cmd, &report)
		},
	}

	addRunFlags(cmd)
	cmd.Flags().StringArrayVar(&flagHistories, "history", nil, "Throughput series for throughput estimates, as name=path (repeatable)")
	cmd.Flags().StringVar(&flagGantt, "gantt", "", "Also write a Mermaid gantt chart to this file")
	cmd.Flags().IntVar(&flagGanttRank, "gantt-rank", 85, "Percentile rank used for the gantt chart")

	return cmd
}

func simulateNCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate-n",
		Short: "Forecast how long a backlog of N items takes from throughput history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (flagHistory == "") == (flagExport == "") {
				return fmt.Errorf("exactly one of --history or --export is required")
			}
			source := flagHistory
			var points []history.Point
			var err error
			if flagHistory != "" {
				points, err = project.LoadThroughput(flagHistory)
			} else {
				source = flagExport
				points, err = project.LoadIssueExport(flagExport, exportPaths())
			}
			if err != nil {
				return err
			}

			cal, err := loadCalendar()
			if err != nil {
				return err
			}
			ecfg, err := engineConfig(cmd, source)
			if err != nil {
				return err
			}

			report, err := engine.RunThroughputSimulation(flagBacklog, history.Series(points), cal, ecfg)
			if err != nil {
				return fmt.Errorf("simulate %d items: %w", flagBacklog, err)
			}
			if err := record(source, &report); err != nil {
				return err
			}
			return writeReport(cmd, &report)
		},
	}

	addRunFlags(cmd)
	cmd.Flags().IntVar(&flagBacklog, "backlog", 0, "Number of items to complete")
	cmd.Flags().StringVar(&flagHistory, "history", "", "Throughput YAML file")
	cmd.Flags().StringVar(&flagExport, "export", "", "JSON issue export to derive throughput from")
	cmd.Flags().StringVar(&flagIssues, "issues-path", "", "gjson path to the issue array in --export")
	cmd.Flags().StringVar(&flagResolved, "resolved-path", "", "gjson path to each issue's resolution date")
	_ = cmd.MarkFlagRequired("backlog")

	return cmd
}

func graphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <project.yaml>",
		Short: "Show waves and the critical path on expected durations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := project.LoadProject(args[0])
			if err != nil {
				return err
			}
			g, err := graph.Build(proj.Packages)
			if err != nil {
				return fmt.Errorf("build dependency graph: %w", err)
			}
			cal, err := loadCalendar()
			if err != nil {
				return err
			}

			ecfg := engine.Config{}
			if ecfg.Histories, err = loadHistories(flagHistories); err != nil {
				return err
			}
			durations, err := engine.ExpectedDurations(g, cal, ecfg)
			if err != nil {
				return err
			}

			if flagOpenOnly {
				open := make(map[string]float64)
				for i, wp := range g.Nodes {
					open[wp.ID] = durations[i]
				}
				if g, err = g.Filter(func(wp *graph.WorkPackage) bool { return !wp.Done() }); err != nil {
					return fmt.Errorf("apply filter: %w", err)
				}
				durations = durations[:0]
				for _, wp := range g.Nodes {
					durations = append(durations, open[wp.ID])
				}
			}

			result, err := cpm.Analyze(g, durations)
			if err != nil {
				return fmt.Errorf("CPM analysis: %w", err)
			}

			out := cmd.OutOrStdout()
			if flagJSON {
				return outputJSON(out, result)
			}
			switch flagFormat {
			case "", "plan":
				reporter.PrintPlan(out, g, result)
			case "ascii":
				reporter.PrintDAG(out, g, result)
			case "dot":
				reporter.WriteDOT(out, g, result)
			case "mermaid":
				reporter.WriteMermaid(out, proj.Name, g)
			default:
				return fmt.Errorf("unknown graph format %q (use plan, ascii, dot or mermaid)", flagFormat)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagFormat, "format", "plan", "Output format (plan, ascii, dot, mermaid)")
	cmd.Flags().StringVar(&flagCalendar, "calendar", "", "Team calendar directory")
	cmd.Flags().StringArrayVar(&flagHistories, "history", nil, "Throughput series as name=path (repeatable)")
	cmd.Flags().BoolVar(&flagOpenOnly, "open", false, "Only show packages that are not done")

	return cmd
}

func throughputCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "throughput <export.json>",
		Short: "Convert a JSON issue export into daily throughput YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := project.LoadIssueExport(args[0], exportPaths())
			if err != nil {
				return err
			}
			if flagJSON {
				return outputJSON(cmd.OutOrStdout(), points)
			}
			return withOutput(cmd, func(w io.Writer) error {
				return project.WriteThroughput(w, points)
			})
		},
	}

	cmd.Flags().StringVar(&flagIssues, "issues-path", "", "gjson path to the issue array")
	cmd.Flags().StringVar(&flagResolved, "resolved-path", "", "gjson path to each issue's resolution date")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write the YAML to a file")

	return cmd
}

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [input-file]",
		Short: "List recorded forecasts and how they drifted between runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, source := ".", ""
			if len(args) == 1 {
				dir, source = filepath.Dir(args[0]), filepath.Base(args[0])
			}
			if flagClean {
				if err := state.Clean(dir); err != nil {
					return fmt.Errorf("clean run log: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.Green("Run log removed."))
				return nil
			}

			log, err := state.Open(dir)
			if err != nil {
				return err
			}
			entries := log.For(source)
			if flagJSON {
				return outputJSON(cmd.OutOrStdout(), entries)
			}
			printRuns(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagClean, "clean", false, "Remove the run log")

	return cmd
}

func printRuns(w io.Writer, entries []state.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, ui.Dim("No recorded forecasts. Run simulate with --record."))
		return
	}
	for i, e := range entries {
		fmt.Fprintf(w, "%s  %s  %s  %s\n",
			ui.Bold(e.RecordedAt.Local().Format("2006-01-02 15:04")),
			ui.BoldMagenta(e.Source), e.Mode, ui.Dim(e.RunID))
		var prev []state.Drift
		if i > 0 {
			prev = state.Compare(entries[i-1], e)
		}
		for _, p := range e.Percentiles {
			line := fmt.Sprintf("    %-5s %s", ui.Rank(p.Rank), p.Date.Format("Mon 2006-01-02"))
			for _, d := range prev {
				if d.To.Rank != p.Rank || d.Days == 0 {
					continue
				}
				if d.Days > 0 {
					line += ui.Red(fmt.Sprintf("  +%dd", d.Days))
				} else {
					line += ui.Green(fmt.Sprintf("  %dd", d.Days))
				}
			}
			fmt.Fprintln(w, line)
		}
	}
}

// --- Shared helpers ---

// record appends report to the run log beside input when --record is set.
func record(input string, report *engine.Report) error {
	if !flagRecord {
		return nil
	}
	log, err := state.Open(filepath.Dir(input))
	if err != nil {
		return err
	}
	if _, err := log.Record(report, time.Now()); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func newLogger() zerolog.Logger {
	return logging.New(cfg.Log, os.Stderr)
}

// engineConfig merges config defaults with flags the user set explicitly.
func engineConfig(cmd *cobra.Command, source string) (engine.Config, error) {
	ec := engine.Config{
		Iterations:   cfg.Iterations,
		Seed:         cfg.Seed,
		Workers:      cfg.Workers,
		MaxLookahead: cfg.MaxLookahead,
		MaxHorizon:   cfg.MaxHorizon,
		Source:       filepath.Base(source),
		Logger:       newLogger(),
	}
	if cmd.Flags().Changed("iterations") {
		ec.Iterations = flagIters
	}
	if cmd.Flags().Changed("workers") {
		ec.Workers = flagWorkers
	}
	if cmd.Flags().Changed("seed") {
		ec.Seed = flagSeed
	}
	if ec.Seed == 0 {
		seed, err := sampler.NewSeed()
		if err != nil {
			return engine.Config{}, err
		}
		ec.Seed = seed
	}

	ec.StartDate = calendar.Day(time.Now())
	if flagStart != "" {
		start, err := time.Parse(time.DateOnly, flagStart)
		if err != nil {
			return engine.Config{}, fmt.Errorf("invalid --start %q, expected YYYY-MM-DD", flagStart)
		}
		ec.StartDate = start
	}
	return ec, nil
}

func loadCalendar() (*calendar.Calendar, error) {
	dir := flagCalendar
	if dir == "" {
		dir = cfg.CalendarDir
	}
	if dir == "" {
		return calendar.Default(), nil
	}
	return project.LoadCalendarDir(dir)
}

// loadHistories reads name=path pairs. JSON files are treated as issue exports.
func loadHistories(specs []string) (map[string][]float64, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string][]float64, len(specs))
	for _, spec := range specs {
		name, path, ok := strings.Cut(spec, "=")
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("invalid --history %q, expected name=path", spec)
		}
		var points []history.Point
		var err error
		if strings.EqualFold(filepath.Ext(path), ".json") {
			points, err = project.LoadIssueExport(path, exportPaths())
		} else {
			points, err = project.LoadThroughput(path)
		}
		if err != nil {
			return nil, err
		}
		out[name] = history.Series(points)
	}
	return out, nil
}

func exportPaths() project.ExportPaths {
	paths := project.ExportPaths{Issues: cfg.Export.Issues, Resolved: cfg.Export.Resolved}
	if flagIssues != "" {
		paths.Issues = flagIssues
	}
	if flagResolved != "" {
		paths.Resolved = flagResolved
	}
	return paths
}

func writeReport(cmd *cobra.Command, report *engine.Report) error {
	format := reporter.Format(cfg.Report.Format)
	if flagFormat != "" {
		format = reporter.Format(flagFormat)
	}
	if flagJSON {
		format = reporter.FormatJSON
	}
	tmpl := cfg.Report.Template
	if flagTemplate != "" {
		tmpl = flagTemplate
	}

	rpt := reporter.New(report, language.English)
	if format == reporter.FormatText && tmpl == "" && flagOutput == "" {
		if flagLogo {
			ui.PrintLogo(cmd.ErrOrStderr())
		}
		rpt.PrintSummary(cmd.OutOrStdout())
		return nil
	}
	return withOutput(cmd, func(w io.Writer) error {
		return rpt.Write(w, format, tmpl)
	})
}

func writeGantt(proj *project.Project, report *engine.Report) error {
	g, err := graph.Build(proj.Packages)
	if err != nil {
		return err
	}
	f, err := os.Create(flagGantt)
	if err != nil {
		return fmt.Errorf("create gantt file: %w", err)
	}
	defer f.Close()
	return reporter.WriteGantt(f, proj.Name, g, report, flagGanttRank)
}

// withOutput runs write against --output when set, otherwise stdout.
func withOutput(cmd *cobra.Command, write func(io.Writer) error) error {
	if flagOutput == "" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(flagOutput)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// --- Output helpers ---

func outputJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}
