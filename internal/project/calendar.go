package project

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/joshharrison/loomcast/internal/calendar"
	"github.com/joshharrison/loomcast/internal/errs"
)

// TeamFile holds team-wide settings inside a calendar directory. Every other
// YAML file in the directory describes one member.
const TeamFile = "team.yaml"

type teamRecord struct {
	// nil keeps the Saturday and Sunday default
	NonWorkingDays *[]string `yaml:"non_working_days"`
	Holidays       []string  `yaml:"holidays"`
}

type memberRecord struct {
	Name           string           `yaml:"name"`
	FreeWeekdays   []string         `yaml:"free_weekdays"`
	FreeDateRanges []dateRangeRecord `yaml:"free_date_ranges"`
	Availability   float64          `yaml:"availability"`
	Capacity       []overrideRecord `yaml:"capacity"`
}

type dateRangeRecord struct {
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`
}

type overrideRecord struct {
	Date     string  `yaml:"date"`
	Capacity float64 `yaml:"capacity"`
}

// LoadCalendarDir builds a team calendar from a directory of YAML files.
// Files are read in name order; a member without a name takes the file name.
func LoadCalendarDir(dir string) (*calendar.Calendar, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("calendar directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("calendar directory: %s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list calendar directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("calendar directory %s contains no yaml files", dir)
	}
	slices.Sort(files)

	cal := calendar.Default()
	for _, name := range files {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read calendar file: %w", err)
		}
		if name == TeamFile || name == "team.yml" {
			if err := parseTeam(data, cal); err != nil {
				return nil, fmt.Errorf("calendar file %s: %w", path, err)
			}
			continue
		}
		m, err := parseMember(data, strings.TrimSuffix(name, filepath.Ext(name)))
		if err != nil {
			return nil, fmt.Errorf("calendar file %s: %w", path, err)
		}
		cal.Members = append(cal.Members, m)
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return cal, nil
}

func parseTeam(data []byte, cal *calendar.Calendar) error {
	var rec teamRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("parse team yaml: %w", err)
	}
	if rec.NonWorkingDays != nil {
		days, err := parseWeekdays(*rec.NonWorkingDays)
		if err != nil {
			return err
		}
		cal.NonWorkingDays = days
	}
	for _, h := range rec.Holidays {
		d, err := parseDate(h)
		if err != nil {
			return err
		}
		cal.Holidays = append(cal.Holidays, d)
	}
	return nil
}

func parseMember(data []byte, fallbackName string) (calendar.Member, error) {
	var rec memberRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return calendar.Member{}, fmt.Errorf("parse member yaml: %w", err)
	}
	m := calendar.Member{Name: rec.Name, Availability: rec.Availability}
	if m.Name == "" {
		m.Name = fallbackName
	}

	var err error
	if m.FreeWeekdays, err = parseWeekdays(rec.FreeWeekdays); err != nil {
		return calendar.Member{}, err
	}
	for _, r := range rec.FreeDateRanges {
		start, err := parseDate(r.StartDate)
		if err != nil {
			return calendar.Member{}, err
		}
		end, err := parseDate(r.EndDate)
		if err != nil {
			return calendar.Member{}, err
		}
		if start.After(end) {
			return calendar.Member{}, errs.New(errs.CodeInvalidConfig,
				"free date range starts %s after it ends %s", r.StartDate, r.EndDate)
		}
		m.Absences = append(m.Absences, calendar.DateRange{Start: start, End: end})
	}
	for _, o := range rec.Capacity {
		d, err := parseDate(o.Date)
		if err != nil {
			return calendar.Member{}, err
		}
		m.Overrides = append(m.Overrides, calendar.Override{Date: d, Capacity: o.Capacity})
	}
	return m, nil
}

var weekdays = map[string]time.Weekday{
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
	"sun": time.Sunday, "sunday": time.Sunday,
}

func parseWeekdays(values []string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(values))
	for _, v := range values {
		d, ok := weekdays[strings.ToLower(strings.TrimSpace(v))]
		if !ok {
			return nil, errs.New(errs.CodeInvalidConfig, "invalid weekday %q", v)
		}
		out = append(out, d)
	}
	return out, nil
}
