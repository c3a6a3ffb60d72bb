package schedule

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
)

// maxStartTimes caps a single expansion.
const maxStartTimes = 5000

// weeklyAnchor is the DTSTART used for weekly schedules without an effective start date.
var weeklyAnchor = time.Date(2000, time.January, 3, 0, 0, 0, 0, time.UTC)

// StartTimes returns the concrete start times of s in [start, end), ordered,
// expressed in start's location. Floating calendar times are read in that
// location as well.
func (s *Schedule) StartTimes(start, end time.Time) ([]time.Time, error) {
	if !end.After(start) {
		return nil, nil
	}
	loc := start.Location()

	set, err := s.recurrence(loc)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, nil
	}

	times := set.Between(start, end, true)
	out := make([]time.Time, 0, len(times))
	for _, t := range times {
		if !t.Before(end) || !s.effectiveOn(t) {
			continue
		}
		out = append(out, t.In(loc))
		if len(out) >= maxStartTimes {
			break
		}
	}
	return out, nil
}

// NextStartTime returns the first start time strictly after t.
func (s *Schedule) NextStartTime(t time.Time) (time.Time, bool) {
	set, err := s.recurrence(t.Location())
	if err != nil || set == nil {
		return time.Time{}, false
	}
	next := set.After(t, false)
	if next.IsZero() || !s.effectiveOn(next) {
		return time.Time{}, false
	}
	return next.In(t.Location()), true
}

// effectiveOn reports whether the calendar date of t lies within the effective dates.
func (s *Schedule) effectiveOn(t time.Time) bool {
	day := dateIn(t, t.Location())
	if s.EffectiveStartDate != nil && day.Before(dateIn(*s.EffectiveStartDate, t.Location())) {
		return false
	}
	if s.EffectiveEndDate != nil && day.After(dateIn(*s.EffectiveEndDate, t.Location())) {
		return false
	}
	return true
}

// recurrence builds the rrule set for s. A nil set means the schedule has no
// recurrence definition at all.
func (s *Schedule) recurrence(loc *time.Location) (*rrule.Set, error) {
	if strings.TrimSpace(s.ICalContent) != "" {
		return s.icalRecurrence(loc)
	}
	if s.WeeklyDayOfWeek != nil {
		return s.weeklyRecurrence(loc)
	}
	return nil, nil
}

func (s *Schedule) icalRecurrence(loc *time.Location) (*rrule.Set, error) {
	cal, err := ical.ParseCalendar(strings.NewReader(s.ICalContent))
	if err != nil {
		return nil, fmt.Errorf("parse schedule %s calendar failed: %w", s.ID, err)
	}
	events := cal.Events()
	if len(events) == 0 {
		return nil, ErrNoEvent
	}
	ev := events[0]

	dtProp := ev.GetProperty(ical.ComponentPropertyDtStart)
	if dtProp == nil || dtProp.Value == "" {
		return nil, ErrNoDTStart
	}
	dtStart, err := parseICalTime(dtProp.Value, tzid(dtProp), loc)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %s DTSTART failed: %w", s.ID, err)
	}

	var set rrule.Set
	if p := ev.GetProperty(ical.ComponentPropertyRrule); p != nil && p.Value != "" {
		r, err := rrule.StrToRRule(p.Value)
		if err != nil {
			return nil, fmt.Errorf("parse schedule %s RRULE failed: %w", s.ID, err)
		}
		r.DTStart(dtStart)
		set.RRule(r)
	} else {
		set.RDate(dtStart)
	}

	// EXDATE and RDATE may repeat and may hold comma separated lists.
	for _, p := range ev.GetProperties(ical.ComponentPropertyExdate) {
		for _, t := range parseICalTimes(p, loc) {
			set.ExDate(t)
		}
	}
	for _, p := range ev.GetProperties(ical.ComponentProperty("RDATE")) {
		for _, t := range parseICalTimes(p, loc) {
			set.RDate(t)
		}
	}

	return &set, nil
}

func (s *Schedule) weeklyRecurrence(loc *time.Location) (*rrule.Set, error) {
	anchor := weeklyAnchor
	if s.EffectiveStartDate != nil {
		anchor = *s.EffectiveStartDate
	}
	dtStart := dateIn(anchor, loc)
	if s.WeeklyTimeOfDay != nil {
		h := int(s.WeeklyTimeOfDay.Hours())
		m := int(s.WeeklyTimeOfDay.Minutes()) % 60
		dtStart = time.Date(dtStart.Year(), dtStart.Month(), dtStart.Day(), h, m, 0, 0, loc)
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   dtStart,
		Byweekday: []rrule.Weekday{toRRuleWeekday(*s.WeeklyDayOfWeek)},
	})
	if err != nil {
		return nil, fmt.Errorf("build schedule %s weekly rule failed: %w", s.ID, err)
	}

	var set rrule.Set
	set.RRule(r)
	return &set, nil
}

func toRRuleWeekday(d time.Weekday) rrule.Weekday {
	switch d {
	case time.Monday:
		return rrule.MO
	case time.Tuesday:
		return rrule.TU
	case time.Wednesday:
		return rrule.WE
	case time.Thursday:
		return rrule.TH
	case time.Friday:
		return rrule.FR
	case time.Saturday:
		return rrule.SA
	}
	return rrule.SU
}

func tzid(p *ical.IANAProperty) string {
	if p.ICalParameters == nil {
		return ""
	}
	if v, ok := p.ICalParameters["TZID"]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

func parseICalTimes(p *ical.IANAProperty, loc *time.Location) []time.Time {
	var out []time.Time
	zone := tzid(p)
	for _, part := range strings.Split(p.Value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if t, err := parseICalTime(part, zone, loc); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// parseICalTime parses DATE and DATE-TIME values. UTC values keep UTC, TZID
// values use that zone, floating values use loc.
func parseICalTime(v, zone string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if zone != "" {
		if z, err := time.LoadLocation(zone); err == nil {
			loc = z
		}
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}

// dateIn returns midnight of t's calendar date, anchored in loc.
func dateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
