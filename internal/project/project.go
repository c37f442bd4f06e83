// Package project loads forecasting inputs from disk: project files, team
// calendars and throughput history.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/joshharrison/loomcast/internal/errs"
	"github.com/joshharrison/loomcast/internal/estimate"
	"github.com/joshharrison/loomcast/internal/graph"
)

// Project is a named set of work packages.
type Project struct {
	Name     string
	Packages []graph.WorkPackage
}

type projectRecord struct {
	Name         string          `yaml:"name"`
	WorkPackages []packageRecord `yaml:"work_packages"`
}

type packageRecord struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Summary     string `yaml:"summary"`
	Status      string `yaml:"status"`
	StartDate   string `yaml:"start_date"`
	StartedDate string `yaml:"started_date"`
	DoneDate    string `yaml:"done_date"`
	// nil when the key is absent; an empty list means "after the previous package"
	Dependencies *[]string      `yaml:"dependencies"`
	Estimate     *estimateRecord `yaml:"estimate"`
}

type estimateRecord struct {
	Type        string  `yaml:"type"`
	Optimistic  float64 `yaml:"optimistic"`
	Likely      float64 `yaml:"likely"`
	MostLikely  float64 `yaml:"most_likely"`
	Pessimistic float64 `yaml:"pessimistic"`
	Value       float64 `yaml:"value"`
	End         string  `yaml:"end"`
	Series      string  `yaml:"series"`
	Items       int     `yaml:"items"`
	Report      string  `yaml:"report"`
}

// LoadProject reads a project YAML file. Reference estimates are resolved
// relative to the file's directory.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	p, err := ParseProject(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", path, err)
	}
	return p, nil
}

// ParseProject decodes project YAML. baseDir anchors relative report paths.
func ParseProject(data []byte, baseDir string) (*Project, error) {
	var rec projectRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse project yaml: %w", err)
	}

	p := &Project{Name: rec.Name, Packages: make([]graph.WorkPackage, 0, len(rec.WorkPackages))}
	previous := ""
	for i, r := range rec.WorkPackages {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return nil, errs.New(errs.CodeInvalidConfig, "work package %d has no id", i+1)
		}
		wp := graph.WorkPackage{ID: id, Title: r.Title}
		if wp.Title == "" {
			wp.Title = r.Summary
		}

		status, err := parseStatus(r.Status)
		if err != nil {
			return nil, errs.WithNode(err, id)
		}
		wp.Status = status

		for _, d := range []struct {
			value string
			dst   **time.Time
		}{
			{r.StartDate, &wp.StartDate},
			{r.StartedDate, &wp.StartedDate},
			{r.DoneDate, &wp.DoneDate},
		} {
			if *d.dst, err = parseOptionalDate(d.value); err != nil {
				return nil, errs.WithNode(err, id)
			}
		}

		if r.Dependencies != nil {
			deps := *r.Dependencies
			if len(deps) == 0 {
				if previous == "" {
					return nil, errs.New(errs.CodeUnknownDependency,
						"empty dependency list on the first work package has no previous package").
						WithDetail("id", id)
				}
				deps = []string{previous}
			}
			wp.Dependencies = deps
		}

		if r.Estimate != nil {
			spec, err := r.Estimate.spec(id, baseDir)
			if err != nil {
				return nil, err
			}
			wp.Estimate = spec
		}

		p.Packages = append(p.Packages, wp)
		previous = id
	}
	return p, nil
}

func (r *estimateRecord) spec(id, baseDir string) (estimate.Spec, error) {
	switch strings.ToLower(r.Type) {
	case "three_point":
		likely := r.Likely
		if likely == 0 {
			likely = r.MostLikely
		}
		return estimate.ThreePoint{Optimistic: r.Optimistic, Likely: likely, Pessimistic: r.Pessimistic}, nil
	case "story_points":
		return estimate.StoryPoints{Value: r.Value}, nil
	case "fixed":
		end, err := parseDate(r.End)
		if err != nil {
			return nil, errs.InvalidEstimate(id, "fixed estimate needs an end date").WithCause(err)
		}
		return estimate.FixedTimeBox{End: end}, nil
	case "throughput":
		return estimate.EmpiricalThroughput{Series: r.Series, Items: r.Items}, nil
	case "reference":
		if r.Report == "" {
			return nil, errs.InvalidEstimate(id, "reference estimate needs a report path")
		}
		path := r.Report
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		tp, err := ReferenceEstimate(path)
		if err != nil {
			return nil, errs.InvalidEstimate(id, "cannot use referenced report").
				WithDetail("report", r.Report).
				WithCause(err)
		}
		return tp, nil
	default:
		return nil, errs.InvalidEstimate(id, fmt.Sprintf("unknown estimate type %q", r.Type))
	}
}

func parseStatus(s string) (graph.Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "open", "todo", "to_do", "in_progress":
		return graph.StatusOpen, nil
	case "done", "closed", "resolved":
		return graph.StatusDone, nil
	default:
		return "", errs.New(errs.CodeInvalidConfig, "invalid status %q", s)
	}
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errs.New(errs.CodeInvalidConfig, "invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func parseOptionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// reportRecord is the subset of a saved report a reference estimate reads.
// JSON reports decode through the YAML decoder as well.
type reportRecord struct {
	Percentiles []struct {
		Rank int     `yaml:"rank"`
		Days float64 `yaml:"days"`
	} `yaml:"percentiles"`
}

// ReferenceEstimate turns a previously saved report into a three point
// estimate from its p0, p50 and p100 durations.
func ReferenceEstimate(path string) (estimate.ThreePoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return estimate.ThreePoint{}, fmt.Errorf("read report: %w", err)
	}
	var rec reportRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return estimate.ThreePoint{}, fmt.Errorf("parse report %s: %w", path, err)
	}
	days := make(map[int]float64, len(rec.Percentiles))
	for _, p := range rec.Percentiles {
		days[p.Rank] = p.Days
	}
	for _, rank := range []int{0, 50, 100} {
		if _, ok := days[rank]; !ok {
			return estimate.ThreePoint{}, fmt.Errorf("report %s has no p%d", path, rank)
		}
	}
	return estimate.ThreePoint{Optimistic: days[0], Likely: days[50], Pessimistic: days[100]}, nil
}
