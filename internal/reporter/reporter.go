package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshharrison/loomcast/internal/engine"
	"github.com/joshharrison/loomcast/internal/ui"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Reporter renders a simulation report.
type Reporter struct {
	Report  *engine.Report
	printer *message.Printer
}

// New creates a Reporter formatting numbers for tag.
func New(report *engine.Report, tag language.Tag) *Reporter {
	return &Reporter{Report: report, printer: message.NewPrinter(tag)}
}

// PrintSummary writes a terminal-friendly forecast table.
func (r *Reporter) PrintSummary(w io.Writer) {
	rep := r.Report
	p := r.printer

	title := "Delivery Forecast"
	if rep.Mode == engine.ModeThroughput {
		title = "Throughput Forecast"
	}
	fmt.Fprintf(w, "\n📈 %s\n", ui.BoldCyan(title))
	fmt.Fprintf(w, "%s\n", ui.Cyan("══════════════════════════"))
	if rep.Source != "" {
		fmt.Fprintf(w, "Source:     %s\n", ui.Dim(rep.Source))
	}
	fmt.Fprintf(w, "Start:      %s\n", ui.Bold(rep.StartDate.Format(time.DateOnly)))
	fmt.Fprintf(w, "Iterations: %s %s\n", p.Sprintf("%d", rep.Iterations), ui.Dim(fmt.Sprintf("(seed %d)", rep.Seed)))
	if rep.Mode == engine.ModeThroughput {
		fmt.Fprintf(w, "Backlog:    %s items\n", p.Sprintf("%d", rep.Backlog))
	}
	fmt.Fprintf(w, "Velocity:   %s\n", r.velocity())
	fmt.Fprintf(w, "Mean:       %s %s\n", p.Sprintf("%.1f", rep.Mean), ui.Dim(p.Sprintf("± %.1f working days", rep.StdDev)))
	fmt.Fprintln(w)

	for _, pc := range rep.Percentiles {
		fmt.Fprintf(w, "  %-6s %8s working days  %s\n",
			ui.Rank(pc.Rank), p.Sprintf("%d", pc.Days),
			ui.Bold(pc.Date.Format("Mon 2006-01-02")))
	}

	if len(rep.WorkPackages) > 0 {
		fmt.Fprintf(w, "\n%s\n", ui.BoldWhite("Work packages"))
		for _, wp := range rep.WorkPackages {
			r.printPackage(w, wp)
		}
	}
	fmt.Fprintf(w, "\n%s\n", ui.Dim("run "+rep.RunID))
}

func (r *Reporter) printPackage(w io.Writer, wp engine.PackageForecast) {
	title := wp.Title
	if len(title) > 36 {
		title = title[:33] + "..."
	}
	p85 := "-"
	for _, pc := range wp.Percentiles {
		if pc.Rank == 85 {
			p85 = pc.Date.Format(time.DateOnly)
		}
	}
	fmt.Fprintf(w, "  %s %-12s %-36s %s %s %s\n",
		ui.StatusIcon(wp.Done, wp.Criticality >= 0.5),
		ui.PackageID(wp.ID), title, p85,
		ui.CriticalityBar(wp.Criticality, 10),
		ui.Dim(r.printer.Sprintf("%3.0f%%", wp.Criticality*100)))
}

func (r *Reporter) velocity() string {
	if r.Report.Velocity == nil {
		return "n/a"
	}
	if r.Report.Mode == engine.ModeThroughput {
		return r.printer.Sprintf("%.2f items/day", *r.Report.Velocity)
	}
	return r.printer.Sprintf("%.2f points/day", *r.Report.Velocity)
}

// JSON returns the report as indented JSON.
func (r *Reporter) JSON() ([]byte, error) {
	return json.MarshalIndent(r.Report, "", "  ")
}

// YAML returns the report as YAML.
func (r *Reporter) YAML() ([]byte, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(r.Report); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// Write renders the report in format. templatePath only applies to text.
func (r *Reporter) Write(w io.Writer, format Format, templatePath string) error {
	var out []byte
	var err error
	switch format {
	case FormatJSON:
		out, err = r.JSON()
		out = append(out, '\n')
	case FormatYAML:
		out, err = r.YAML()
	case FormatText, "":
		var s string
		s, err = r.Text(templatePath)
		out = []byte(s)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// Ranks returns the percentile ranks present in the report, ascending.
func (r *Reporter) Ranks() []int {
	ranks := make([]int, len(r.Report.Percentiles))
	for i, p := range r.Report.Percentiles {
		ranks[i] = p.Rank
	}
	slices.Sort(ranks)
	return ranks
}
