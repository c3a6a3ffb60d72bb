package schedule

import (
	"errors"
	"time"
)

var (
	ErrNoEvent   = errors.New("schedule has no calendar event")
	ErrNoDTStart = errors.New("schedule event has no DTSTART")
)

// Schedule is a recurrence definition. It is defined either by iCalendar
// content (a VEVENT with optional RRULE, EXDATE and RDATE) or by a simple
// weekly day and time.
type Schedule struct {
	ID       string
	Name     string
	Order    int
	IsActive bool

	ICalContent string

	WeeklyDayOfWeek *time.Weekday
	// WeeklyTimeOfDay is the offset from midnight.
	WeeklyTimeOfDay *time.Duration

	EffectiveStartDate *time.Time
	EffectiveEndDate   *time.Time
}

// OverlapsLoosely is the cheap interval check used before expansion:
// EffectiveStart < end AND (EffectiveEnd is unset OR EffectiveEnd >= start).
// It may admit schedules with no real start time in the window. Effective
// dates are calendar dates, so they are compared in the window's location.
func (s *Schedule) OverlapsLoosely(start, end time.Time) bool {
	if s.EffectiveStartDate != nil && !dateIn(*s.EffectiveStartDate, end.Location()).Before(end) {
		return false
	}
	if s.EffectiveEndDate != nil && dateIn(*s.EffectiveEndDate, start.Location()).Before(dateIn(start, start.Location())) {
		return false
	}
	return true
}
