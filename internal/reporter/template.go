package reporter

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
	"time"

	"github.com/joshharrison/loomcast/internal/engine"
)

const defaultTemplate = `Simulation Report
Data source: {{.Report.Source}}
Mode: {{.Report.Mode}}
Start date: {{date .Report.StartDate}}
Iterations: {{num .Report.Iterations}}
{{- if .Report.Backlog}}
Simulated items: {{num .Report.Backlog}}
{{- end}}
Velocity: {{velocity}}

Percentiles:
Percentile | Days | Date
-----------|------|-----
{{- range .Report.Percentiles}}
P{{.Rank}} | {{.Days}} | {{date .Date}}
{{- end}}
{{- if .Report.WorkPackages}}

Work packages:
ID | P50 | P85 | Criticality
---|-----|-----|------------
{{- range .Report.WorkPackages}}
{{.ID}} | {{pdate .Percentiles 50}} | {{pdate .Percentiles 85}} | {{pct .Criticality}}
{{- end}}
{{- end}}
`

// Text renders the report with a text/template. An empty templatePath uses
// the built-in layout. Templates see the report as .Report and may call
// date, num, pct, pdate and velocity.
func (r *Reporter) Text(templatePath string) (string, error) {
	tmplStr := defaultTemplate
	if templatePath != "" {
		content, err := os.ReadFile(templatePath)
		if err != nil {
			return "", fmt.Errorf("read report template: %w", err)
		}
		tmplStr = string(content)
	}

	tmpl, err := template.New("report").Funcs(r.funcs()).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parse report template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Report *engine.Report }{r.Report}); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

func (r *Reporter) funcs() template.FuncMap {
	return template.FuncMap{
		"date": func(t time.Time) string { return t.Format(time.DateOnly) },
		"num":  func(n int) string { return r.printer.Sprintf("%d", n) },
		"pct":  func(f float64) string { return r.printer.Sprintf("%.0f%%", f*100) },
		"pdate": func(ps []engine.Percentile, rank int) string {
			for _, p := range ps {
				if p.Rank == rank {
					return p.Date.Format(time.DateOnly)
				}
			}
			return "-"
		},
		"velocity": func() string {
			if r.Report.Velocity == nil {
				return "n/a"
			}
			return fmt.Sprintf("%.2f", *r.Report.Velocity)
		},
	}
}
