// Package calendar models working days and team capacity, and schedules
// effort onto concrete dates.
package calendar

import (
	"fmt"
	"slices"
	"time"

	"github.com/joshharrison/loomcast/internal/errs"
)

// DefaultNonWorkingDays is used when a Calendar leaves NonWorkingDays nil.
var DefaultNonWorkingDays = []time.Weekday{time.Saturday, time.Sunday}

// DateRange is an inclusive range of dates.
type DateRange struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Contains reports whether date falls inside the range.
func (r DateRange) Contains(date time.Time) bool {
	d := Day(date)
	return !d.Before(Day(r.Start)) && !d.After(Day(r.End))
}

// Override pins a member's capacity on a single date.
type Override struct {
	Date     time.Time `json:"date" yaml:"date"`
	Capacity float64   `json:"capacity" yaml:"capacity"`
}

// Member is one person contributing to the team's capacity.
type Member struct {
	Name         string
	FreeWeekdays []time.Weekday
	Absences     []DateRange
	Availability float64 // fraction of a working day; zero means full time
	Overrides    []Override
}

// Capacity returns the fraction of date the member can work, ignoring
// team-wide non-working days.
func (m *Member) Capacity(date time.Time) float64 {
	for _, o := range m.Overrides {
		if SameDay(o.Date, date) {
			return o.Capacity
		}
	}
	if slices.Contains(m.FreeWeekdays, date.Weekday()) {
		return 0
	}
	for _, r := range m.Absences {
		if r.Contains(date) {
			return 0
		}
	}
	if m.Availability == 0 {
		return 1
	}
	return m.Availability
}

// Calendar describes when a team works. A nil NonWorkingDays means
// Saturday and Sunday; an empty non-nil slice means every weekday works.
type Calendar struct {
	NonWorkingDays []time.Weekday
	Holidays       []time.Time
	Members        []Member
}

// Default returns a Monday to Friday calendar with no holidays and no members.
func Default() *Calendar {
	return &Calendar{}
}

func (c *Calendar) nonWorking() []time.Weekday {
	if c.NonWorkingDays == nil {
		return DefaultNonWorkingDays
	}
	return c.NonWorkingDays
}

// IsWorkingDay reports whether date is neither a non-working weekday nor a holiday.
func (c *Calendar) IsWorkingDay(date time.Time) bool {
	if slices.Contains(c.nonWorking(), date.Weekday()) {
		return false
	}
	for _, h := range c.Holidays {
		if SameDay(h, date) {
			return false
		}
	}
	return true
}

// Capacity returns the team's capacity on date: 0 on non-working days,
// 1.0 when no members are configured, otherwise the mean member capacity.
func (c *Calendar) Capacity(date time.Time) float64 {
	if !c.IsWorkingDay(date) {
		return 0
	}
	if len(c.Members) == 0 {
		return 1
	}
	var sum float64
	for i := range c.Members {
		sum += c.Members[i].Capacity(date)
	}
	return sum / float64(len(c.Members))
}

// Validate checks capacity fractions and date ranges.
func (c *Calendar) Validate() error {
	for _, m := range c.Members {
		if m.Availability < 0 || m.Availability > 1 {
			return errs.New(errs.CodeInvalidConfig, "member %q availability %g outside [0,1]", m.Name, m.Availability)
		}
		for _, o := range m.Overrides {
			if o.Capacity < 0 || o.Capacity > 1 {
				return errs.New(errs.CodeInvalidConfig, "member %q capacity %g on %s outside [0,1]",
					m.Name, o.Capacity, o.Date.Format(time.DateOnly))
			}
		}
		for _, r := range m.Absences {
			if Day(r.End).Before(Day(r.Start)) {
				return errs.New(errs.CodeInvalidConfig, "member %q absence ends before it starts (%s)", m.Name, r)
			}
		}
	}
	return nil
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Round(time.Hour).Hours() / 24)
}
