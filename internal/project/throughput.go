package project

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.yaml.in/yaml/v3"

	"github.com/joshharrison/loomcast/internal/calendar"
	"github.com/joshharrison/loomcast/internal/history"
)

type throughputRecord struct {
	Date            string  `yaml:"date"`
	CompletedIssues float64 `yaml:"completed_issues"`
}

// LoadThroughput reads a YAML list of daily completion counts.
func LoadThroughput(path string) ([]history.Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read throughput: %w", err)
	}
	points, err := ParseThroughput(data)
	if err != nil {
		return nil, fmt.Errorf("throughput %s: %w", path, err)
	}
	return points, nil
}

// ParseThroughput decodes throughput YAML of the form
//
//	- date: 2026-02-09
//	  completed_issues: 5
func ParseThroughput(data []byte) ([]history.Point, error) {
	var recs []throughputRecord
	if err := yaml.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse throughput yaml: %w", err)
	}
	points := make([]history.Point, len(recs))
	for i, r := range recs {
		d, err := parseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		points[i] = history.Point{Date: d, Completed: r.CompletedIssues}
	}
	return points, nil
}

// WriteThroughput encodes points in the format ParseThroughput reads.
func WriteThroughput(w io.Writer, points []history.Point) error {
	recs := make([]throughputRecord, len(points))
	for i, p := range points {
		recs[i] = throughputRecord{Date: p.Date.Format(time.DateOnly), CompletedIssues: p.Completed}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("encode throughput: %w", err)
	}
	return enc.Close()
}

// ExportPaths locate issues and their resolution date inside a JSON issue
// export, in gjson path syntax.
type ExportPaths struct {
	Issues   string // array of issues; empty means the document root
	Resolved string // per issue resolution timestamp
}

// DefaultExportPaths match a Jira search response.
var DefaultExportPaths = ExportPaths{Issues: "issues", Resolved: "fields.resolutiondate"}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// LoadIssueExport reads a JSON issue export and counts resolved issues per day.
func LoadIssueExport(path string, paths ExportPaths) ([]history.Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read issue export: %w", err)
	}
	points, err := ParseIssueExport(data, paths)
	if err != nil {
		return nil, fmt.Errorf("issue export %s: %w", path, err)
	}
	return points, nil
}

// ParseIssueExport counts issues by resolution day, from the first to the
// last resolution inclusive. Unresolved issues are skipped.
func ParseIssueExport(data []byte, paths ExportPaths) ([]history.Point, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("issue export is not valid json")
	}
	if paths.Resolved == "" {
		paths.Resolved = DefaultExportPaths.Resolved
	}

	issues := gjson.ParseBytes(data)
	if paths.Issues != "" {
		issues = issues.Get(paths.Issues)
	}
	if !issues.IsArray() {
		return nil, fmt.Errorf("no issue array at %q", paths.Issues)
	}

	var completions []time.Time
	var parseErr error
	issues.ForEach(func(_, issue gjson.Result) bool {
		v := issue.Get(paths.Resolved)
		if !v.Exists() || v.Type == gjson.Null || strings.TrimSpace(v.String()) == "" {
			return true
		}
		t, err := parseTimestamp(v.String())
		if err != nil {
			parseErr = err
			return false
		}
		completions = append(completions, t)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	if len(completions) == 0 {
		return nil, nil
	}

	counts := history.DailyCounts(completions)
	first := calendar.Day(completions[0])
	for _, c := range completions[1:] {
		if d := calendar.Day(c); d.Before(first) {
			first = d
		}
	}
	points := make([]history.Point, len(counts))
	for i, n := range counts {
		points[i] = history.Point{Date: first.AddDate(0, 0, i), Completed: n}
	}
	return points, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
