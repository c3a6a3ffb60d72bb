package occurrence

import (
	"time"

	"github.com/nekogravitycat/group-scheduler/internal/daterange"
)

// AggregateUnassigned returns, for each distinct (group, schedule, date) of
// occs dated today or later, the count of the matching unassigned pool
// record. Combinations without a pool record are left out.
func AggregateUnassigned(occs []Occurrence, records []*Record, today time.Time) []UnassignedCount {
	today = daterange.DateOf(today)

	pool := make(map[Key]*Record)
	for _, rec := range records {
		if rec.LocationID == "" {
			pool[rec.Key()] = rec
		}
	}

	var out []UnassignedCount
	seen := make(map[Key]struct{})
	for _, o := range occs {
		if o.OccurrenceDate.Before(today) {
			continue
		}
		k := o.Key().Pool()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}

		rec, ok := pool[k]
		if !ok {
			continue
		}
		out = append(out, UnassignedCount{
			GroupID:        o.GroupID,
			ScheduleID:     o.ScheduleID,
			OccurrenceDate: o.OccurrenceDate,
			RecordID:       rec.ID,
			Count:          rec.ScheduledCount,
		})
	}
	return out
}
