package calendar

import (
	"time"

	"github.com/joshharrison/loomcast/internal/errs"
)

// DefaultLookahead bounds how many calendar days a single schedule may span.
const DefaultLookahead = 3650

const epsilon = 1e-9

// Scheduler converts effort into day offsets from an origin date.
// Days are addressed as integer offsets; day 0 is the origin.
// A Scheduler is read-only after construction and safe for concurrent use.
type Scheduler struct {
	cal       Calendar
	origin    time.Time
	lookahead int
	capacity  []float64 // capacity by day offset, precomputed for [0, lookahead)
}

// NewScheduler precomputes capacity for lookahead days from origin.
// lookahead <= 0 selects DefaultLookahead.
func NewScheduler(cal *Calendar, origin time.Time, lookahead int) (*Scheduler, error) {
	if cal == nil {
		cal = Default()
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	s := &Scheduler{
		cal:       *cal,
		origin:    Day(origin),
		lookahead: lookahead,
		capacity:  make([]float64, lookahead),
	}
	for d := range s.capacity {
		s.capacity[d] = cal.Capacity(s.Date(d))
	}
	return s, nil
}

// Origin returns day 0.
func (s *Scheduler) Origin() time.Time { return s.origin }

// Lookahead returns the configured window in calendar days.
func (s *Scheduler) Lookahead() int { return s.lookahead }

// Date returns the date of a day offset.
func (s *Scheduler) Date(day int) time.Time {
	return s.origin.AddDate(0, 0, day)
}

// Offset returns the day offset of date.
func (s *Scheduler) Offset(date time.Time) int {
	return DaysBetween(s.origin, date)
}

// Capacity returns the team capacity on a day offset.
func (s *Scheduler) Capacity(day int) float64 {
	if day >= 0 && day < len(s.capacity) {
		return s.capacity[day]
	}
	return s.cal.Capacity(s.Date(day))
}

// Finish consumes effort working days starting at startDay and returns the
// exclusive finish day: the first working day after the last day that
// contributed, i.e. the earliest day a dependent can start.
// Zero effort finishes on startDay.
func (s *Scheduler) Finish(startDay int, effort float64) (int, error) {
	if effort <= 0 {
		return startDay, nil
	}
	remaining := effort
	for d := startDay; d-startDay < s.lookahead; d++ {
		c := s.Capacity(d)
		if c <= 0 {
			continue
		}
		remaining -= c
		if remaining <= epsilon {
			return s.nextWorkingDay(d+1, startDay+s.lookahead), nil
		}
	}
	return 0, errs.New(errs.CodeNoAvailableCapacity,
		"%.2f working days not reached within %d calendar days", effort, s.lookahead).
		WithDetail("start", s.Date(startDay).Format(time.DateOnly)).
		WithDetail("effort", effort).
		WithDetail("remaining", remaining)
}

// nextWorkingDay returns the first day >= from with capacity, or from when
// none exists before limit.
func (s *Scheduler) nextWorkingDay(from, limit int) int {
	for d := from; d < limit; d++ {
		if s.Capacity(d) > 0 {
			return d
		}
	}
	return from
}

// After returns the first working day after day, the exclusive finish of
// work that ended on day.
func (s *Scheduler) After(day int) int {
	return s.nextWorkingDay(day+1, day+1+s.lookahead)
}

// NthWorkingDay returns the n-th day with capacity counting from (and
// including) from. n <= 0 returns from. ok is false when the lookahead
// window runs out first.
func (s *Scheduler) NthWorkingDay(from, n int) (day int, ok bool) {
	if n <= 0 {
		return from, true
	}
	for d := from; d-from < s.lookahead; d++ {
		if s.Capacity(d) > 0 {
			n--
			if n == 0 {
				return d, true
			}
		}
	}
	return 0, false
}

// BurnDown works off items starting at startDay. Each working day calls draw
// once and completes draw()*capacity items. It returns the day the backlog
// reaches zero (inclusive) and the number of working days consumed.
func (s *Scheduler) BurnDown(startDay int, items float64, horizon int, draw func() float64) (last, workingDays int, err error) {
	if items <= 0 {
		return startDay, 0, nil
	}
	if horizon <= 0 {
		horizon = DefaultLookahead
	}
	remaining := items
	for d := startDay; d-startDay < horizon; d++ {
		c := s.Capacity(d)
		if c <= 0 {
			continue
		}
		workingDays++
		remaining -= draw() * c
		if remaining <= epsilon {
			return d, workingDays, nil
		}
	}
	return 0, 0, errs.New(errs.CodeForecastHorizonExceeded,
		"%g items not completed within %d calendar days", items, horizon).
		WithDetail("start", s.Date(startDay).Format(time.DateOnly)).
		WithDetail("remaining", remaining)
}

// Effort returns the summed capacity over [from, to).
func (s *Scheduler) Effort(from, to int) float64 {
	var sum float64
	for d := from; d < to; d++ {
		sum += s.Capacity(d)
	}
	return sum
}

// WorkingDays counts days with positive capacity in [from, to).
func (s *Scheduler) WorkingDays(from, to int) int {
	n := 0
	for d := from; d < to; d++ {
		if s.Capacity(d) > 0 {
			n++
		}
	}
	return n
}
