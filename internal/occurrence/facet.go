package occurrence

import (
	"sort"
	"time"
)

// Facets is the outcome of narrowing a catalog by location and schedule.
type Facets struct {
	// LocationMatched honours the location selection only.
	LocationMatched []Candidate
	// ScheduleMatched honours the schedule selection only.
	ScheduleMatched []Candidate
	// Filtered honours both selections.
	Filtered []Candidate

	// AvailableLocations comes from ScheduleMatched, AvailableSchedules from
	// LocationMatched, so each picklist reflects the other facet.
	AvailableLocations []LocationOption
	AvailableSchedules []ScheduleOption
	SelectedLocations  []LocationOption
	SelectedSchedules  []ScheduleOption
}

// SelectedLocationIDs returns the ids of the selected locations in picklist order.
func (f Facets) SelectedLocationIDs() []string {
	ids := make([]string, len(f.SelectedLocations))
	for i, l := range f.SelectedLocations {
		ids[i] = l.ID
	}
	return ids
}

// SelectedScheduleIDs returns the ids of the selected schedules in picklist order.
func (f Facets) SelectedScheduleIDs() []string {
	ids := make([]string, len(f.SelectedSchedules))
	for i, s := range f.SelectedSchedules {
		ids[i] = s.ID
	}
	return ids
}

// FilterFacets narrows candidates by the selected locations and schedules.
// An empty selection does not restrict its facet. Selected ids missing from
// their available picklist are dropped and the facets recomputed until the
// selection is stable, so available lists always contain the selected ones.
// now orders schedules without start times by their next start after now.
func FilterFacets(candidates []Candidate, locationIDs, scheduleIDs []string, now time.Time) Facets {
	locSel := toSet(locationIDs)
	schedSel := toSet(scheduleIDs)

	for {
		f := facets(candidates, locSel, schedSel, now)

		prunedLoc := prune(locSel, f.AvailableLocations, func(o LocationOption) string { return o.ID })
		prunedSched := prune(schedSel, f.AvailableSchedules, func(o ScheduleOption) string { return o.ID })
		if len(prunedLoc) == len(locSel) && len(prunedSched) == len(schedSel) {
			return f
		}
		locSel, schedSel = prunedLoc, prunedSched
	}
}

func facets(candidates []Candidate, locSel, schedSel map[string]struct{}, now time.Time) Facets {
	var f Facets
	for _, c := range candidates {
		locOK := matches(locSel, c.LocationID())
		schedOK := matches(schedSel, c.Schedule.ID)
		if locOK {
			f.LocationMatched = append(f.LocationMatched, c)
		}
		if schedOK {
			f.ScheduleMatched = append(f.ScheduleMatched, c)
		}
		if locOK && schedOK {
			f.Filtered = append(f.Filtered, c)
		}
	}

	f.AvailableLocations = locationOptions(f.ScheduleMatched)
	f.AvailableSchedules = scheduleOptions(f.LocationMatched, now)

	for _, o := range f.AvailableLocations {
		if _, ok := locSel[o.ID]; ok {
			f.SelectedLocations = append(f.SelectedLocations, o)
		}
	}
	for _, o := range f.AvailableSchedules {
		if _, ok := schedSel[o.ID]; ok {
			f.SelectedSchedules = append(f.SelectedSchedules, o)
		}
	}
	return f
}

// locationOptions lists distinct locations ordered by group-location order
// then name. A location linked to several groups takes its lowest order.
func locationOptions(candidates []Candidate) []LocationOption {
	byID := make(map[string]*LocationOption)
	var opts []*LocationOption
	for _, c := range candidates {
		id := c.LocationID()
		if o, ok := byID[id]; ok {
			if c.GroupLocation.Order < o.Order {
				o.Order = c.GroupLocation.Order
			}
			continue
		}
		o := &LocationOption{ID: id, Name: c.GroupLocation.Location.Name, Order: c.GroupLocation.Order}
		byID[id] = o
		opts = append(opts, o)
	}

	sort.SliceStable(opts, func(i, j int) bool {
		if opts[i].Order != opts[j].Order {
			return opts[i].Order < opts[j].Order
		}
		return opts[i].Name < opts[j].Name
	})

	out := make([]LocationOption, len(opts))
	for i, o := range opts {
		out[i] = *o
	}
	return out
}

// scheduleOptions lists distinct schedules ordered by order, next start time
// then name. The next start is the first expanded start time, or the next one
// after now when the candidates were not expanded.
func scheduleOptions(candidates []Candidate, now time.Time) []ScheduleOption {
	byID := make(map[string]*ScheduleOption)
	var opts []*ScheduleOption
	for _, c := range candidates {
		o, ok := byID[c.Schedule.ID]
		if !ok {
			o = &ScheduleOption{ID: c.Schedule.ID, Name: c.Schedule.Name, Order: c.Schedule.Order}
			byID[o.ID] = o
			opts = append(opts, o)
		}
		if len(c.StartTimes) > 0 {
			first := c.StartTimes[0]
			if o.NextStartTime == nil || first.Before(*o.NextStartTime) {
				o.NextStartTime = &first
			}
		}
	}

	for _, o := range opts {
		if o.NextStartTime != nil {
			continue
		}
		for _, c := range candidates {
			if c.Schedule.ID != o.ID {
				continue
			}
			if next, ok := c.Schedule.NextStartTime(now); ok {
				o.NextStartTime = &next
			}
			break
		}
	}

	sort.SliceStable(opts, func(i, j int) bool {
		a, b := opts[i], opts[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		switch {
		case a.NextStartTime != nil && b.NextStartTime != nil && !a.NextStartTime.Equal(*b.NextStartTime):
			return a.NextStartTime.Before(*b.NextStartTime)
		case a.NextStartTime != nil && b.NextStartTime == nil:
			return true
		case a.NextStartTime == nil && b.NextStartTime != nil:
			return false
		}
		return a.Name < b.Name
	})

	out := make([]ScheduleOption, len(opts))
	for i, o := range opts {
		out[i] = *o
	}
	return out
}

func matches(sel map[string]struct{}, id string) bool {
	if len(sel) == 0 {
		return true
	}
	_, ok := sel[id]
	return ok
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

func prune[T any](sel map[string]struct{}, available []T, id func(T) string) map[string]struct{} {
	out := make(map[string]struct{}, len(sel))
	for _, o := range available {
		if _, ok := sel[id(o)]; ok {
			out[id(o)] = struct{}{}
		}
	}
	return out
}
