package calendar

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/joshharrison/loomcast/internal/errs"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func assertCapacity(t *testing.T, cal *Calendar, day time.Time, want float64) {
	t.Helper()
	if got := cal.Capacity(day); math.Abs(got-want) > 1e-9 {
		t.Errorf("capacity on %s (%s): expected %g, got %g", day.Format(time.DateOnly), day.Weekday(), want, got)
	}
}

func TestCapacity_DefaultCalendar(t *testing.T) {
	cal := Default()
	for d := 16; d <= 20; d++ {
		assertCapacity(t, cal, date(2026, 2, d), 1)
	}
	assertCapacity(t, cal, date(2026, 2, 21), 0)
	assertCapacity(t, cal, date(2026, 2, 22), 0)
}

func TestCapacity_Holiday(t *testing.T) {
	cal := &Calendar{Holidays: []time.Time{date(2026, 2, 18)}}
	assertCapacity(t, cal, date(2026, 2, 17), 1)
	assertCapacity(t, cal, date(2026, 2, 18), 0)
}

func TestCapacity_EmptyNonWorkingDays(t *testing.T) {
	cal := &Calendar{NonWorkingDays: []time.Weekday{}}
	assertCapacity(t, cal, date(2026, 2, 21), 1)
}

func TestCapacity_SingleMember(t *testing.T) {
	cal := &Calendar{
		NonWorkingDays: []time.Weekday{},
		Members: []Member{{
			Name:         "ana",
			FreeWeekdays: []time.Weekday{time.Monday, time.Tuesday},
			Absences: []DateRange{
				{Start: date(2026, 2, 16), End: date(2026, 2, 20)},
				{Start: date(2026, 2, 27), End: date(2026, 2, 27)},
			},
		}},
	}

	cases := []struct {
		day  int
		want float64
	}{
		{15, 1}, {16, 0}, {17, 0}, {18, 0}, {19, 0}, {20, 0}, {21, 1}, {22, 1},
		{23, 0}, {24, 0}, {25, 1}, {26, 1}, {27, 0}, {28, 1},
	}
	for _, c := range cases {
		assertCapacity(t, cal, date(2026, 2, c.day), c.want)
	}
}

func TestCapacity_ThreeMembersAveraged(t *testing.T) {
	cal := &Calendar{
		NonWorkingDays: []time.Weekday{},
		Members: []Member{
			{Name: "a", FreeWeekdays: []time.Weekday{time.Tuesday, time.Wednesday, time.Thursday}},
			{Name: "b", FreeWeekdays: []time.Weekday{time.Wednesday, time.Thursday}},
			{Name: "c", Absences: []DateRange{{Start: date(2026, 2, 19), End: date(2026, 2, 20)}}},
		},
	}
	assertCapacity(t, cal, date(2026, 2, 16), 1)
	assertCapacity(t, cal, date(2026, 2, 17), 2.0/3.0)
	assertCapacity(t, cal, date(2026, 2, 18), 1.0/3.0)
	assertCapacity(t, cal, date(2026, 2, 19), 0)
	assertCapacity(t, cal, date(2026, 2, 20), 2.0/3.0)
	assertCapacity(t, cal, date(2026, 2, 21), 1)
}

func TestCapacity_AvailabilityAndOverride(t *testing.T) {
	cal := &Calendar{
		Members: []Member{
			{Name: "part-time", Availability: 0.5},
			{Name: "full", Overrides: []Override{{Date: date(2026, 2, 17), Capacity: 0.25}}},
		},
	}
	assertCapacity(t, cal, date(2026, 2, 16), 0.75)
	assertCapacity(t, cal, date(2026, 2, 17), 0.375)
	// Team weekend wins over member settings.
	assertCapacity(t, cal, date(2026, 2, 21), 0)
}

func TestValidate(t *testing.T) {
	bad := []*Calendar{
		{Members: []Member{{Name: "x", Availability: 1.5}}},
		{Members: []Member{{Name: "x", Overrides: []Override{{Date: date(2026, 1, 1), Capacity: -1}}}}},
		{Members: []Member{{Name: "x", Absences: []DateRange{{Start: date(2026, 1, 5), End: date(2026, 1, 1)}}}}},
	}
	for i, cal := range bad {
		if err := cal.Validate(); !errors.Is(err, errs.ErrInvalidConfig) {
			t.Errorf("case %d: expected InvalidConfig, got %v", i, err)
		}
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("expected default calendar to be valid, got %v", err)
	}
}

func TestDaysBetween(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	a := time.Date(2026, 3, 27, 23, 0, 0, 0, loc)
	b := date(2026, 3, 30)
	if got := DaysBetween(a, b); got != 3 {
		t.Errorf("expected 3 days, got %d", got)
	}
	if got := DaysBetween(b, a); got != -3 {
		t.Errorf("expected -3 days, got %d", got)
	}
}
