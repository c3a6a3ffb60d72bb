package occurrence

import (
	"sort"
	"time"

	"github.com/nekogravitycat/group-scheduler/internal/daterange"
)

// Expansion is the flat, sorted occurrence list of a set of candidates.
type Expansion struct {
	Occurrences []Occurrence
	// Dates, LocationIDs and ScheduleIDs are distinct, in first-seen order
	// of the sorted occurrences.
	Dates       []time.Time
	LocationIDs []string
	ScheduleIDs []string
}

// Expand creates one occurrence per candidate start time and links the
// matching existing record. Occurrences dated before today are flagged as not
// schedulable.
func Expand(candidates []Candidate, today time.Time) Expansion {
	today = daterange.DateOf(today)

	var occs []Occurrence
	for _, c := range candidates {
		records := make(map[Key]string, len(c.Records))
		for _, rec := range c.Records {
			records[rec.Key()] = rec.ID
		}

		for _, start := range c.StartTimes {
			o := Occurrence{
				GroupID:         c.Group.ID,
				GroupName:       c.Group.Name,
				GroupOrder:      c.Group.Order,
				ParentGroupID:   c.Group.ParentGroupID,
				ParentGroupName: c.Group.ParentGroupName,

				GroupLocationID:    c.GroupLocation.ID,
				GroupLocationOrder: c.GroupLocation.Order,
				LocationID:         c.LocationID(),
				LocationName:       c.GroupLocation.Location.Name,

				ScheduleID:    c.Schedule.ID,
				ScheduleName:  c.Schedule.Name,
				ScheduleOrder: c.Schedule.Order,

				StartTime:      start,
				OccurrenceDate: daterange.DateOf(start),
			}
			if c.Capacity != nil {
				o.MinimumCapacity = c.Capacity.MinimumCapacity
				o.DesiredCapacity = c.Capacity.DesiredCapacity
				o.MaximumCapacity = c.Capacity.MaximumCapacity
			}
			o.RecordID = records[o.Key()]
			o.IsSchedulingEnabled = !o.OccurrenceDate.Before(today)
			occs = append(occs, o)
		}
	}

	sort.SliceStable(occs, func(i, j int) bool {
		return less(&occs[i], &occs[j])
	})

	exp := Expansion{Occurrences: occs}
	seenDates := make(map[string]struct{})
	seenLocs := make(map[string]struct{})
	seenScheds := make(map[string]struct{})
	for _, o := range occs {
		d := o.OccurrenceDate.Format(dateLayout)
		if _, ok := seenDates[d]; !ok {
			seenDates[d] = struct{}{}
			exp.Dates = append(exp.Dates, o.OccurrenceDate)
		}
		if _, ok := seenLocs[o.LocationID]; !ok {
			seenLocs[o.LocationID] = struct{}{}
			exp.LocationIDs = append(exp.LocationIDs, o.LocationID)
		}
		if _, ok := seenScheds[o.ScheduleID]; !ok {
			seenScheds[o.ScheduleID] = struct{}{}
			exp.ScheduleIDs = append(exp.ScheduleIDs, o.ScheduleID)
		}
	}
	return exp
}

// less orders by date, schedule order, start time, group order, group name,
// group-location order and location name.
func less(a, b *Occurrence) bool {
	if !a.OccurrenceDate.Equal(b.OccurrenceDate) {
		return a.OccurrenceDate.Before(b.OccurrenceDate)
	}
	if a.ScheduleOrder != b.ScheduleOrder {
		return a.ScheduleOrder < b.ScheduleOrder
	}
	if !a.StartTime.Equal(b.StartTime) {
		return a.StartTime.Before(b.StartTime)
	}
	if a.GroupOrder != b.GroupOrder {
		return a.GroupOrder < b.GroupOrder
	}
	if a.GroupName != b.GroupName {
		return a.GroupName < b.GroupName
	}
	if a.GroupLocationOrder != b.GroupLocationOrder {
		return a.GroupLocationOrder < b.GroupLocationOrder
	}
	return a.LocationName < b.LocationName
}
