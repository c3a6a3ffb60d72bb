package scheduling

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/nekogravitycat/group-scheduler/internal/assignment"
	"github.com/nekogravitycat/group-scheduler/internal/daterange"
	"github.com/nekogravitycat/group-scheduler/internal/group"
	"github.com/nekogravitycat/group-scheduler/internal/occurrence"
	"github.com/nekogravitycat/group-scheduler/internal/preference"
)

// Clone week choices relative to the current week.
const (
	sourceWeeksBefore    = 4
	sourceWeeksAfter     = 4
	destinationWeeksSpan = 12
)

func (s *service) GetCloneSettings(ctx context.Context, actorID string, f Filters, cs CloneSettings) (*CloneOptions, error) {
	if cs.isZero() {
		cs = s.loadCloneSettings(ctx, actorID)
	}

	_, today := s.clock()
	thisWeek := daterange.EndOfWeek(today)

	opts := &CloneOptions{
		SourceWeeks:      weekOptions(thisWeek, -sourceWeeksBefore, sourceWeeksAfter),
		DestinationWeeks: weekOptions(thisWeek, 0, destinationWeeksSpan),
	}

	source := pickWeek(cs.SourceWeek, opts.SourceWeeks, thisWeek)
	destination := pickWeek(cs.DestinationWeek, opts.DestinationWeeks, thisWeek.AddDate(0, 0, 7))
	if destination.Equal(source) {
		destination = source.AddDate(0, 0, 7)
	}

	visible, err := s.groups.Authorize(ctx, actorID, f.GroupIDs)
	if err != nil {
		return nil, err
	}
	opts.AvailableGroups = visible.Groups

	selected := toSet(cs.GroupIDs)
	var groups []*group.Group
	for _, g := range visible.Groups {
		if _, ok := selected[g.ID]; ok {
			groups = append(groups, g)
		}
	}
	opts.SelectedGroups = groups
	if len(groups) == 0 {
		groups = visible.Groups
	}

	// Picklists only need to know which combinations exist that week.
	catalog, err := s.catalog.Build(ctx, groups, weekWindow(source), occurrence.ModeLightweight)
	if err != nil {
		return nil, err
	}
	facets := occurrence.FilterFacets(catalog.Candidates, cs.LocationIDs, cs.ScheduleIDs, today)
	opts.AvailableLocations = facets.AvailableLocations
	opts.SelectedLocations = facets.SelectedLocations
	opts.AvailableSchedules = facets.AvailableSchedules
	opts.SelectedSchedules = facets.SelectedSchedules

	opts.Settings = CloneSettings{
		SourceWeek:      &source,
		DestinationWeek: &destination,
		GroupIDs:        groupIDs(opts.SelectedGroups),
		LocationIDs:     facets.SelectedLocationIDs(),
		ScheduleIDs:     facets.SelectedScheduleIDs(),
	}
	return opts, nil
}

func (s *service) CloneSchedules(ctx context.Context, actorID string, f Filters, cs CloneSettings) (*CloneOutcome, error) {
	// The settings are saved whatever the outcome. Only ids that survive
	// authorization and facet validation of the source week are kept.
	saved := CloneSettings{SourceWeek: cs.SourceWeek, DestinationWeek: cs.DestinationWeek}
	defer func() { s.savePreference(ctx, actorID, preference.KeyCloneSettings, saved) }()

	out := &CloneOutcome{SourceRange: unknownRange, DestinationRange: unknownRange}
	if cs.SourceWeek == nil || cs.DestinationWeek == nil {
		return out, nil
	}
	source := s.weekEnd(*cs.SourceWeek)
	destination := s.weekEnd(*cs.DestinationWeek)
	saved.SourceWeek, saved.DestinationWeek = &source, &destination
	if source.Equal(destination) {
		return out, nil
	}

	groupIDs := cs.GroupIDs
	if len(groupIDs) == 0 {
		groupIDs = f.GroupIDs
	}

	sourceFilters := Filters{
		GroupIDs:    groupIDs,
		LocationIDs: cs.LocationIDs,
		ScheduleIDs: cs.ScheduleIDs,
		DateRange:   weekRange(source),
	}
	src, err := s.run(ctx, actorID, sourceFilters, occurrence.ModeFull)
	if err != nil {
		return nil, err
	}
	out.SourceRange = src.refinement.Window.Label
	if len(cs.GroupIDs) > 0 {
		saved.GroupIDs = src.refinement.Filters.GroupIDs
	}
	saved.LocationIDs = src.refinement.Filters.LocationIDs
	saved.ScheduleIDs = src.refinement.Filters.ScheduleIDs

	delta := daterange.DaysBetween(source, destination)
	destFilters := sourceFilters
	destFilters.DateRange = weekRange(destination)
	dst, err := s.run(ctx, actorID, destFilters, occurrence.ModeFull)
	if err != nil {
		return nil, err
	}
	out.DestinationRange = dst.refinement.Window.Label

	targets := make(map[slotKey]occurrence.Occurrence, len(dst.expansion.Occurrences))
	for _, o := range dst.expansion.Occurrences {
		targets[newSlotKey(o, o.StartTime)] = o
	}

	for _, from := range src.expansion.Occurrences {
		if from.RecordID == "" {
			continue
		}
		to, ok := targets[newSlotKey(from, from.StartTime.AddDate(0, 0, delta))]
		if !ok {
			continue
		}
		out.HasEligible = true

		toID, ok, err := s.records.GetOrAdd(ctx, to)
		if err != nil {
			s.log.Warn().Err(err).Str("source_record_id", from.RecordID).Msg("clone destination record failed")
			out.Failed++
			continue
		}
		if !ok {
			continue
		}

		res, err := s.copier.Copy(ctx, from.RecordID, toID, actorID)
		if err != nil {
			s.log.Warn().Err(err).Str("source_record_id", from.RecordID).Str("dest_record_id", toID).
				Msg("clone copy failed")
			out.Failed++
			continue
		}
		out.Totals.Add(res)
		if res.Cloned > 0 {
			out.OccurrencesCloned++
		}
	}

	out.IndividualsCloned = out.Totals.Cloned
	out.Explanation = explain(out.Totals)

	s.log.Info().Str("actor_id", actorID).Str("source", out.SourceRange).Str("destination", out.DestinationRange).
		Int("occurrences", out.OccurrencesCloned).Int("individuals", out.IndividualsCloned).Int("failed", out.Failed).
		Msg("schedules cloned")
	return out, nil
}

func (s *service) loadCloneSettings(ctx context.Context, actorID string) CloneSettings {
	var cs CloneSettings
	raw, err := s.prefs.Get(ctx, actorID, preference.KeyCloneSettings)
	if err != nil {
		s.log.Warn().Err(err).Str("actor_id", actorID).Msg("load clone settings failed")
		return cs
	}
	if raw == "" {
		return cs
	}
	if err := json.Unmarshal([]byte(raw), &cs); err != nil {
		s.log.Warn().Err(err).Str("actor_id", actorID).Msg("ignoring unreadable clone settings")
		return CloneSettings{}
	}
	return cs
}

// weekEnd normalizes a week identifier to its Sunday in the service location.
func (s *service) weekEnd(t time.Time) time.Time {
	y, m, d := t.Date()
	return daterange.EndOfWeek(time.Date(y, m, d, 0, 0, 0, 0, s.loc))
}

// slotKey matches occurrences across weeks.
type slotKey struct {
	occurrence.Key
	start int64
}

func newSlotKey(o occurrence.Occurrence, start time.Time) slotKey {
	return slotKey{
		Key:   occurrence.Key{GroupID: o.GroupID, LocationID: o.LocationID, ScheduleID: o.ScheduleID},
		start: start.Unix(),
	}
}

func weekRange(end time.Time) daterange.Range {
	return daterange.NewDateRange(end.AddDate(0, 0, -6), end)
}

func weekWindow(end time.Time) daterange.Window {
	return daterange.Resolve(weekRange(end), daterange.DefaultRange, end)
}

func weekOptions(thisWeek time.Time, from, to int) []WeekOption {
	opts := make([]WeekOption, 0, to-from+1)
	for i := from; i <= to; i++ {
		end := thisWeek.AddDate(0, 0, 7*i)
		opts = append(opts, WeekOption{EndDate: end, Label: weekRange(end).Label()})
	}
	return opts
}

// pickWeek returns the option matching want, or def when want is unset or not offered.
func pickWeek(want *time.Time, opts []WeekOption, def time.Time) time.Time {
	if want == nil {
		return def
	}
	w := daterange.EndOfWeek(*want)
	y, m, d := w.Date()
	i := slices.IndexFunc(opts, func(o WeekOption) bool {
		oy, om, od := o.EndDate.Date()
		return oy == y && om == m && od == d
	})
	if i < 0 {
		return def
	}
	return opts[i].EndDate
}

func groupIDs(groups []*group.Group) []string {
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	return ids
}

// explain builds one sentence from the non-zero skip reasons.
func explain(r assignment.CopyResult) string {
	var reasons []string
	if r.AlreadyScheduled > 0 {
		reasons = append(reasons, "they were already scheduled")
	}
	if r.OverCapacity > 0 {
		reasons = append(reasons, "the occurrence was at capacity")
	}
	if r.Blackout > 0 {
		reasons = append(reasons, "they had blackout dates")
	}
	if len(reasons) == 0 {
		return ""
	}
	return "Some individuals were not cloned because " + strings.Join(reasons, " or ") + "."
}
