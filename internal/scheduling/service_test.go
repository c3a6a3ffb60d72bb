package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/group-scheduler/internal/daterange"
	"github.com/nekogravitycat/group-scheduler/internal/occurrence"
	"github.com/nekogravitycat/group-scheduler/internal/preference"
)

func allGroups() Filters {
	return Filters{
		GroupIDs:  []string{"grp-a", "grp-b", "grp-c"},
		DateRange: daterange.NewDateRange(day(2024, 6, 1), day(2024, 6, 9)),
	}
}

func TestRefineFilters(t *testing.T) {
	ctx := context.Background()
	e := newEnv(time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC))

	t.Run("Disabled groups are never authorized", func(t *testing.T) {
		r, err := e.svc.RefineFilters(ctx, actor, allGroups())
		require.NoError(t, err)
		assert.Equal(t, []string{"grp-a", "grp-b"}, r.Filters.GroupIDs)
	})

	t.Run("No group selection selects nothing", func(t *testing.T) {
		f := allGroups()
		f.GroupIDs = nil
		r, err := e.svc.RefineFilters(ctx, actor, f)
		require.NoError(t, err)
		assert.Empty(t, r.Groups)
		assert.Empty(t, r.AvailableLocations)
	})

	t.Run("Unknown facets and bad ranges are defaulted", func(t *testing.T) {
		f := allGroups()
		f.LocationIDs = []string{"loc-unknown"}
		f.DateRange = daterange.NewDateRange(day(2024, 6, 9), day(2024, 6, 1))

		r, err := e.svc.RefineFilters(ctx, actor, f)
		require.NoError(t, err)
		assert.Empty(t, r.Filters.LocationIDs)
		assert.Equal(t, daterange.DefaultRange, r.Filters.DateRange)
		assert.Equal(t, "Next 6 Weeks", r.Window.Label)
		assert.True(t, day(2024, 5, 31).Equal(r.Window.Start))
		assert.True(t, day(2024, 7, 5).Equal(r.Window.InclusiveEnd), "inclusive end = %v", r.Window.InclusiveEnd)
		assert.Equal(t, 36, r.Window.Days)
	})

	t.Run("Other actors see nothing", func(t *testing.T) {
		r, err := e.svc.RefineFilters(ctx, "someone-else", allGroups())
		require.NoError(t, err)
		assert.Empty(t, r.Groups)
	})
}

func TestApplyFilters(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	e := newEnv(now,
		&occurrence.Record{ID: "pool-a-sat", GroupID: "grp-a", ScheduleID: "sched-sat", OccurrenceDate: day(2024, 6, 8), ScheduledCount: 2},
		&occurrence.Record{ID: "rec-ax", GroupID: "grp-a", LocationID: "loc-x", ScheduleID: "sched-sat", OccurrenceDate: day(2024, 6, 8)},
	)

	b, err := e.svc.ApplyFilters(ctx, actor, allGroups())
	require.NoError(t, err)

	// Saturdays 6/1 and 6/8 at A-X, A-Z and B-X, Sundays 6/2 and 6/9 at A-X.
	assert.Len(t, b.Occurrences, 8)
	for _, o := range b.Occurrences {
		assert.True(t, b.Window.Contains(o.StartTime))
		assert.Equal(t, !o.OccurrenceDate.Before(day(2024, 6, 2)), o.IsSchedulingEnabled)
	}

	require.Len(t, b.Dates, 4)
	assert.Equal(t, "Saturday, June 1", b.Dates[0].Label)

	assert.Equal(t, []string{"loc-x", "loc-z"}, []string{b.Locations[0].ID, b.Locations[1].ID})
	assert.Len(t, b.Schedules, 2)

	require.Len(t, b.Unassigned, 1)
	assert.Equal(t, "pool-a-sat", b.Unassigned[0].RecordID)
	assert.Equal(t, 2, b.Unassigned[0].Count)

	assert.Equal(t, "5/23/2024 - 5/31/2024", b.Previous.Label())
	assert.Equal(t, "6/10/2024 - 6/18/2024", b.Next.Label())

	var linked int
	for _, o := range b.Occurrences {
		if o.RecordID == "rec-ax" {
			linked++
		}
	}
	assert.Equal(t, 1, linked)

	t.Run("Validated filters are saved and loaded", func(t *testing.T) {
		f, err := e.svc.LoadFilters(ctx, actor)
		require.NoError(t, err)
		assert.Equal(t, []string{"grp-a", "grp-b"}, f.GroupIDs)
		assert.Equal(t, allGroups().DateRange.String(), f.DateRange.String())
	})

	t.Run("Nothing saved loads the default range", func(t *testing.T) {
		f, err := e.svc.LoadFilters(ctx, "user-2")
		require.NoError(t, err)
		assert.Equal(t, daterange.DefaultRange, f.DateRange)
		assert.Empty(t, f.GroupIDs)
	})

	t.Run("Preference failures do not fail the board", func(t *testing.T) {
		e.svc.prefs = failingPrefs{}
		defer func() { e.svc.prefs = e.prefs }()

		_, err := e.svc.ApplyFilters(ctx, actor, allGroups())
		assert.NoError(t, err)
	})
}

func TestAutoSchedule(t *testing.T) {
	ctx := context.Background()
	// Saturday 6/1, after the 10:00 occurrences started.
	now := time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC)
	e := newEnv(now,
		&occurrence.Record{ID: "rec-sun", GroupID: "grp-a", LocationID: "loc-x", ScheduleID: "sched-sun", OccurrenceDate: day(2024, 6, 2)},
	)

	res, err := e.svc.AutoSchedule(ctx, actor, allGroups())
	require.NoError(t, err)

	assert.Equal(t, 4, res.RecordsCreated)
	assert.False(t, res.AssignmentFailed)
	require.Len(t, e.assigner.calls, 1)
	assert.Len(t, e.assigner.calls[0], 5)
	assert.Contains(t, e.assigner.calls[0], "rec-sun")

	for _, loc := range []string{"loc-x", "loc-z"} {
		_, created := e.records.has("grp-a", loc, "sched-sat", day(2024, 6, 1))
		assert.False(t, created, "started occurrence at %s must not get a record", loc)
	}

	for _, o := range res.Board.Occurrences {
		if o.StartTime.After(now) {
			assert.NotEmpty(t, o.RecordID)
		} else {
			assert.Empty(t, o.RecordID)
		}
	}

	t.Run("Assignment failure is reported, not returned", func(t *testing.T) {
		e.assigner.err = assert.AnError
		res, err := e.svc.AutoSchedule(ctx, actor, allGroups())
		require.NoError(t, err)
		assert.True(t, res.AssignmentFailed)
		assert.Zero(t, res.RecordsCreated)
		assert.NotNil(t, res.Board)
	})
}

func TestGetOrAddOccurrenceRecord(t *testing.T) {
	ctx := context.Background()
	e := newEnv(time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC))

	occ := occurrence.Occurrence{GroupID: "grp-a", LocationID: "loc-x", ScheduleID: "sched-sat", OccurrenceDate: day(2024, 6, 8)}

	first, ok, err := e.svc.GetOrAddOccurrenceRecord(ctx, actor, occ)
	require.NoError(t, err)
	require.True(t, ok)

	second, ok, err := e.svc.GetOrAddOccurrenceRecord(ctx, actor, occ)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, second)

	t.Run("Unauthorized group", func(t *testing.T) {
		denied := occ
		denied.GroupID = "grp-c"
		id, ok, err := e.svc.GetOrAddOccurrenceRecord(ctx, actor, denied)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, id)
	})

	t.Run("Past date", func(t *testing.T) {
		past := occ
		past.OccurrenceDate = day(2024, 5, 25)
		_, ok, err := e.svc.GetOrAddOccurrenceRecord(ctx, actor, past)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Missing key parts", func(t *testing.T) {
		_, ok, err := e.svc.GetOrAddOccurrenceRecord(ctx, actor, occurrence.Occurrence{GroupID: "grp-a"})
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSavedPreferenceKeys(t *testing.T) {
	ctx := context.Background()
	e := newEnv(time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC))

	_, err := e.svc.ApplyFilters(ctx, actor, allGroups())
	require.NoError(t, err)

	raw, err := e.prefs.Get(ctx, actor, preference.KeyBoardFilters)
	require.NoError(t, err)
	assert.Contains(t, raw, `"date_range":"DateRange|||2024-06-01|2024-06-09"`)
}
