package reporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joshharrison/loomcast/internal/cpm"
	"github.com/joshharrison/loomcast/internal/engine"
	"github.com/joshharrison/loomcast/internal/graph"
	"github.com/joshharrison/loomcast/internal/ui"
)

// PrintPlan writes the dependency structure: waves of packages that can run
// in parallel and the critical path over expected durations.
func PrintPlan(w io.Writer, g *graph.Graph, result *cpm.Result) {
	blocked, done := 0, 0
	for i := range g.Nodes {
		if len(g.Pred[i]) > 0 {
			blocked++
		}
		if g.Nodes[i].Done() {
			done++
		}
	}

	widest := 0
	for _, wave := range result.Waves {
		widest = max(widest, len(wave.IDs))
	}

	fmt.Fprintf(w, "🎯 %s\n", ui.BoldCyan("Project Plan"))
	fmt.Fprintln(w, ui.Cyan("═══════════════════════════"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Packages:  %s total, %s done, %s with dependencies\n",
		ui.Bold(g.Len()), ui.Bold(done), ui.Bold(blocked))
	fmt.Fprintf(w, "⚡ Critical path: %s (%d packages, est. %.1f working days)\n",
		ui.BoldYellow(strings.Join(result.CriticalPath, " → ")), len(result.CriticalPath), result.TotalDuration)
	fmt.Fprintf(w, "Waves:     %s (%d packages in widest wave)\n", ui.Bold(len(result.Waves)), widest)
	fmt.Fprintln(w)

	for _, wave := range result.Waves {
		depStr := ui.Dim("independent")
		if wave.Index > 0 {
			depStr = ui.Dim(fmt.Sprintf("after wave %d", wave.Index))
		}
		fmt.Fprintf(w, "🌊 %s %d (%d packages, %s):\n", ui.BoldWhite("Wave"), wave.Index+1, len(wave.IDs), depStr)
		for _, id := range wave.IDs {
			n, _ := g.Lookup(id)
			s := result.Nodes[n]
			crit := "  " + ui.Dim(fmt.Sprintf("slack %.1f", s.Slack))
			if s.IsCritical {
				crit = "  " + ui.BoldYellow("⚡ critical")
			}
			fmt.Fprintf(w, "  %s %s  %s %s%s\n",
				ui.StatusIcon(g.Nodes[n].Done(), s.IsCritical), ui.PackageID(id), g.Nodes[n].Title,
				ui.Dim(fmt.Sprintf("[%.1fd]", s.Duration)), crit)
		}
		fmt.Fprintln(w)
	}
}

// PrintDAG writes each wave with the packages every package blocks.
func PrintDAG(w io.Writer, g *graph.Graph, result *cpm.Result) {
	fmt.Fprintf(w, "🔗 %s\n", ui.BoldCyan("Dependency Graph"))
	fmt.Fprintln(w, ui.Cyan("═══════════════════════"))
	fmt.Fprintln(w)

	for _, wave := range result.Waves {
		fmt.Fprintf(w, "%s 🌊 Wave %d %s\n", ui.Cyan("──"), wave.Index+1, ui.Cyan("──────────────────────────────"))
		for _, id := range wave.IDs {
			n, _ := g.Lookup(id)
			crit := " "
			if result.Nodes[n].IsCritical {
				crit = ui.BoldYellow("⚡")
			}
			fmt.Fprintf(w, "  %s [%s] %s\n", crit, ui.PackageID(id), g.Nodes[n].Title)
			for _, s := range g.Succ[n] {
				fmt.Fprintf(w, "      %s %s\n", ui.Dim("└──→"), ui.PackageID(g.Nodes[s].ID))
			}
		}
		fmt.Fprintln(w)
	}
}

// WriteDOT writes the graph in Graphviz DOT, highlighting critical packages.
func WriteDOT(w io.Writer, g *graph.Graph, result *cpm.Result) {
	fmt.Fprintln(w, "digraph loomcast {")
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box, style=rounded];")
	fmt.Fprintln(w)

	for n, wp := range g.Nodes {
		label := wp.ID
		if wp.Title != "" {
			label += "\\n" + strings.ReplaceAll(wp.Title, `"`, `\"`)
		}
		attrs := fmt.Sprintf(`label="%s"`, label)
		if result != nil && result.Nodes[n].IsCritical {
			attrs += `, style="rounded,bold", color=red`
		}
		fmt.Fprintf(w, "  %q [%s];\n", wp.ID, attrs)
	}

	fmt.Fprintln(w)
	for n, wp := range g.Nodes {
		for _, s := range g.Succ[n] {
			attrs := ""
			if result != nil && result.Nodes[n].IsCritical && result.Nodes[s].IsCritical {
				attrs = " [color=red, penwidth=2]"
			}
			fmt.Fprintf(w, "  %q -> %q%s;\n", wp.ID, g.Nodes[s].ID, attrs)
		}
	}
	fmt.Fprintln(w, "}")
}

// WriteMermaid writes a Mermaid flowchart of the dependencies inside a
// Markdown document.
func WriteMermaid(w io.Writer, name string, g *graph.Graph) {
	if name == "" {
		name = "Project"
	}
	fmt.Fprintf(w, "# %s Dependencies\n```mermaid\nflowchart TD\n", name)
	for _, wp := range g.Nodes {
		label := wp.ID
		if wp.Title != "" {
			label += "<br/>" + wp.Title
		}
		fmt.Fprintf(w, "    %s[\"%s\"]\n", wp.ID, strings.ReplaceAll(label, `"`, "'"))
	}
	for n, wp := range g.Nodes {
		for _, p := range g.Pred[n] {
			fmt.Fprintf(w, "    %s --> %s\n", g.Nodes[p].ID, wp.ID)
		}
	}
	fmt.Fprintln(w, "```")
}

// WriteGantt writes a Mermaid gantt chart of a dependency report at one
// percentile rank. Each package starts when its latest dependency finishes at
// that rank and ends on its own finish date at that rank.
func WriteGantt(w io.Writer, name string, g *graph.Graph, report *engine.Report, rank int) error {
	finish := make([]time.Time, g.Len())
	for n, wp := range g.Nodes {
		pf, ok := report.Package(wp.ID)
		if !ok {
			return fmt.Errorf("report has no forecast for %s", wp.ID)
		}
		date, ok := rankDate(pf.Percentiles, rank)
		if !ok {
			return fmt.Errorf("report has no p%d for %s", rank, wp.ID)
		}
		finish[n] = date
	}

	if name == "" {
		name = "Project"
	}
	fmt.Fprintf(w, "# %s Timeline (p%d)\n```mermaid\ngantt\n    dateFormat YYYY-MM-DD\n", name, rank)
	for n, wp := range g.Nodes {
		start := report.StartDate
		for _, p := range g.Pred[n] {
			if finish[p].After(start) {
				start = finish[p]
			}
		}
		title := wp.Title
		if title == "" {
			title = wp.ID
		}
		fmt.Fprintf(w, "    %s :%s, %s, %s\n", strings.ReplaceAll(title, ":", " "), wp.ID,
			start.Format(time.DateOnly), finish[n].Format(time.DateOnly))
	}
	fmt.Fprintln(w, "```")
	return nil
}

// rankDate returns the date of the smallest rank >= want, mirroring how a
// percentile request between table rows rounds up.
func rankDate(ps []engine.Percentile, want int) (time.Time, bool) {
	best := -1
	for i, p := range ps {
		if p.Rank >= want && (best < 0 || p.Rank < ps[best].Rank) {
			best = i
		}
	}
	if best < 0 {
		return time.Time{}, false
	}
	return ps[best].Date, true
}
