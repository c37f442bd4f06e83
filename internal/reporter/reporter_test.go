package reporter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/joshharrison/loomcast/internal/cpm"
	"github.com/joshharrison/loomcast/internal/engine"
	"github.com/joshharrison/loomcast/internal/estimate"
	"github.com/joshharrison/loomcast/internal/graph"
	"github.com/joshharrison/loomcast/internal/ui"
)

// 2026-02-16 is a Monday.
var monday = time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)

func makePackages() []graph.WorkPackage {
	one := estimate.ThreePoint{Optimistic: 1, Likely: 1, Pessimistic: 1}
	return []graph.WorkPackage{
		{ID: "a", Title: "Design", Status: graph.StatusOpen, Estimate: one},
		{ID: "b", Title: "Build", Status: graph.StatusOpen, Estimate: one, Dependencies: []string{"a"}},
		{ID: "c", Title: "Ship", Status: graph.StatusOpen, Estimate: one, Dependencies: []string{"b"}},
	}
}

func makeReport(t *testing.T) *engine.Report {
	t.Helper()
	r, err := engine.RunDependencySimulation(makePackages(), nil, engine.Config{
		Iterations: 1000, Seed: 7, StartDate: monday, Source: "launch.yaml",
	})
	if err != nil {
		t.Fatalf("simulation failed: %v", err)
	}
	return &r
}

func makeGraph(t *testing.T) (*graph.Graph, *cpm.Result) {
	t.Helper()
	g, err := graph.Build(makePackages())
	if err != nil {
		t.Fatalf("graph build failed: %v", err)
	}
	result, err := cpm.Analyze(g, []float64{1, 1, 1})
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	return g, result
}

func TestMain(m *testing.M) {
	ui.SetColor(false)
	os.Exit(m.Run())
}

func TestPrintSummary(t *testing.T) {
	rpt := New(makeReport(t), language.English)

	var buf bytes.Buffer
	rpt.PrintSummary(&buf)
	out := buf.String()

	for _, want := range []string{"Delivery Forecast", "launch.yaml", "1,000", "p85", "Thu 2026-02-19", "Design", "Ship", "100%"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected summary to contain %q, got:\n%s", want, out)
		}
	}
}

func TestPrintSummary_Throughput(t *testing.T) {
	r, err := engine.RunThroughputSimulation(12, []float64{2, 4}, nil, engine.Config{
		Iterations: 200, Seed: 1, StartDate: monday,
	})
	if err != nil {
		t.Fatalf("simulation failed: %v", err)
	}

	var buf bytes.Buffer
	New(&r, language.English).PrintSummary(&buf)
	out := buf.String()
	for _, want := range []string{"Throughput Forecast", "Backlog:    12 items", "3.00 items/day", "working days"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected summary to contain %q, got:\n%s", want, out)
		}
	}
}

func TestText_DefaultTemplate(t *testing.T) {
	rpt := New(makeReport(t), language.English)
	out, err := rpt.Text("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"Simulation Report",
		"Data source: launch.yaml",
		"Start date: 2026-02-16",
		"Iterations: 1,000",
		"Velocity: n/a",
		"P50 | 3 | 2026-02-19",
		"P100 | 3 | 2026-02-19",
		"b | 2026-02-18 | 2026-02-18 | 100%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected text to contain %q, got:\n%s", want, out)
		}
	}
}

func TestText_CustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.tmpl")
	tmpl := `{{range .Report.Percentiles}}{{if eq .Rank 85}}85% by {{date .Date}}{{end}}{{end}}`
	if err := os.WriteFile(path, []byte(tmpl), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := New(makeReport(t), language.English).Text(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "85% by 2026-02-19" {
		t.Errorf("unexpected render %q", out)
	}

	if _, err := New(makeReport(t), language.English).Text(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing template")
	}
}

func TestJSON(t *testing.T) {
	rpt := New(makeReport(t), language.English)
	data, err := rpt.JSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, key := range []string{"run_id", "percentiles", "work_packages", "results", "mode"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("expected key %q in json", key)
		}
	}
	if _, ok := decoded["Samples"]; ok {
		t.Error("expected raw samples to be omitted")
	}
	if decoded["mode"] != "dependency" {
		t.Errorf("expected dependency mode, got %v", decoded["mode"])
	}
}

func TestWrite(t *testing.T) {
	rpt := New(makeReport(t), language.English)

	var buf bytes.Buffer
	if err := rpt.Write(&buf, FormatYAML, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "run_id:") || !strings.Contains(buf.String(), "criticality: 1") {
		t.Errorf("unexpected yaml:\n%s", buf.String())
	}

	buf.Reset()
	if err := rpt.Write(&buf, FormatJSON, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "}\n") {
		t.Errorf("expected json terminated by newline, got %q", buf.String())
	}

	if err := rpt.Write(&buf, Format("pdf"), ""); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRanks(t *testing.T) {
	rpt := New(makeReport(t), language.English)
	got := rpt.Ranks()
	want := []int{0, 50, 85, 100}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}

func TestPrintPlan(t *testing.T) {
	g, result := makeGraph(t)
	var buf bytes.Buffer
	PrintPlan(&buf, g, result)
	out := buf.String()

	for _, want := range []string{"Project Plan", "a → b → c", "est. 3.0 working days", "Wave 3", "⚡ critical"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected plan to contain %q, got:\n%s", want, out)
		}
	}
}

func TestPrintDAG(t *testing.T) {
	g, result := makeGraph(t)
	var buf bytes.Buffer
	PrintDAG(&buf, g, result)
	if !strings.Contains(buf.String(), "└──→ b") {
		t.Errorf("expected edge a -> b, got:\n%s", buf.String())
	}
}

func TestWriteDOT(t *testing.T) {
	g, result := makeGraph(t)
	var buf bytes.Buffer
	WriteDOT(&buf, g, result)
	out := buf.String()

	for _, want := range []string{"digraph loomcast {", `"a" [label="a\nDesign", style="rounded,bold", color=red];`, `"a" -> "b" [color=red, penwidth=2];`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected dot to contain %q, got:\n%s", want, out)
		}
	}
}

func TestWriteMermaid(t *testing.T) {
	g, _ := makeGraph(t)
	var buf bytes.Buffer
	WriteMermaid(&buf, "Launch", g)
	out := buf.String()
	for _, want := range []string{"# Launch Dependencies", "flowchart TD", `a["a<br/>Design"]`, "a --> b", "b --> c"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected mermaid to contain %q, got:\n%s", want, out)
		}
	}
}

func TestWriteGantt(t *testing.T) {
	g, _ := makeGraph(t)
	var buf bytes.Buffer
	if err := WriteGantt(&buf, "Launch", g, makeReport(t), 85); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# Launch Timeline (p85)",
		"Design :a, 2026-02-16, 2026-02-17",
		"Build :b, 2026-02-17, 2026-02-18",
		"Ship :c, 2026-02-18, 2026-02-19",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected gantt to contain %q, got:\n%s", want, out)
		}
	}

	if err := WriteGantt(&buf, "Launch", g, &engine.Report{}, 85); err == nil {
		t.Error("expected error for a report without package forecasts")
	}
}
