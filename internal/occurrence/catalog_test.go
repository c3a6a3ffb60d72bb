package occurrence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/group-scheduler/internal/daterange"
	"github.com/nekogravitycat/group-scheduler/internal/group"
	"github.com/nekogravitycat/group-scheduler/internal/location"
	"github.com/nekogravitycat/group-scheduler/internal/schedule"
)

var (
	hall  = location.Location{ID: "loc-x", Name: "Hall", IsActive: true}
	annex = location.Location{ID: "loc-y", Name: "Annex", IsActive: true}
)

// fixture builds two groups sharing a hall. Group A also meets in the annex.
type fixture struct {
	groups    []*group.Group
	locations *fakeLocations
	schedules *fakeSchedules
	records   *memRepo
	window    daterange.Window
}

func newFixture() *fixture {
	sun := weekly("sched-sun", "Sunday Morning", 1, time.Sunday, 10)
	sat := weekly("sched-sat", "Saturday Evening", 2, time.Saturday, 18)

	endedEarly := day(2024, 6, 6)
	fri := weekly("sched-fri", "Friday Night", 3, time.Friday, 19)
	fri.EffectiveEndDate = &endedEarly

	retiredEnd := day(2024, 5, 1)
	retired := weekly("sched-old", "Old Service", 0, time.Sunday, 8)
	retired.EffectiveEndDate = &retiredEnd

	return &fixture{
		groups: []*group.Group{grp("grp-a", "Alpha", 1), grp("grp-b", "Bravo", 2)},
		locations: &fakeLocations{links: []*location.GroupLocation{
			link("gl-ax", "grp-a", 1, hall, "sched-sun", "sched-sat", "sched-fri"),
			link("gl-ay", "grp-a", 2, annex, "sched-sun", "sched-old"),
			link("gl-bx", "grp-b", 1, hall, "sched-sat"),
		}},
		schedules: &fakeSchedules{schedules: []*schedule.Schedule{sun, sat, fri, retired}},
		records: newMemRepo(
			&Record{ID: "existing", GroupID: "grp-a", LocationID: "loc-x", ScheduleID: "sched-sun", OccurrenceDate: day(2024, 6, 2)},
			&Record{ID: "pool-past", GroupID: "grp-a", ScheduleID: "sched-sun", OccurrenceDate: day(2024, 6, 2), ScheduledCount: 1},
			&Record{ID: "pool-future", GroupID: "grp-a", ScheduleID: "sched-sun", OccurrenceDate: day(2024, 6, 9), ScheduledCount: 3},
			&Record{ID: "outside", GroupID: "grp-a", LocationID: "loc-x", ScheduleID: "sched-sun", OccurrenceDate: day(2024, 6, 16)},
		),
		window: daterange.Resolve(daterange.NewDateRange(day(2024, 6, 1), day(2024, 6, 14)), daterange.DefaultRange, day(2024, 6, 5)),
	}
}

func (f *fixture) builder() *CatalogBuilder {
	return NewCatalogBuilder(f.locations, f.schedules, f.records, zerolog.Nop())
}

type combo struct{ group, location, schedule string }

func combos(cs []Candidate) []combo {
	out := make([]combo, len(cs))
	for i, c := range cs {
		out[i] = combo{c.Group.ID, c.LocationID(), c.Schedule.ID}
	}
	return out
}

func TestCatalogBuild(t *testing.T) {
	ctx := context.Background()

	t.Run("Full mode drops combinations without start times", func(t *testing.T) {
		f := newFixture()
		catalog, err := f.builder().Build(ctx, f.groups, f.window, ModeFull)
		require.NoError(t, err)

		assert.Equal(t, []combo{
			{"grp-a", "loc-x", "sched-sun"},
			{"grp-a", "loc-x", "sched-sat"},
			{"grp-a", "loc-y", "sched-sun"},
			{"grp-b", "loc-x", "sched-sat"},
		}, combos(catalog.Candidates))

		for _, c := range catalog.Candidates {
			assert.Len(t, c.StartTimes, 2, c.Schedule.ID)
			for _, st := range c.StartTimes {
				assert.True(t, f.window.Contains(st))
			}
		}

		require.Len(t, catalog.Candidates[0].Records, 1)
		assert.Equal(t, "existing", catalog.Candidates[0].Records[0].ID)
		assert.Len(t, catalog.Records, 3)
	})

	t.Run("Lightweight mode keeps loosely overlapping schedules", func(t *testing.T) {
		f := newFixture()
		catalog, err := f.builder().Build(ctx, f.groups, f.window, ModeLightweight)
		require.NoError(t, err)

		assert.Contains(t, combos(catalog.Candidates), combo{"grp-a", "loc-x", "sched-fri"})
		assert.NotContains(t, combos(catalog.Candidates), combo{"grp-a", "loc-y", "sched-old"})
		for _, c := range catalog.Candidates {
			assert.Empty(t, c.StartTimes)
		}
	})

	t.Run("No groups yields an empty catalog", func(t *testing.T) {
		f := newFixture()
		catalog, err := f.builder().Build(ctx, nil, f.window, ModeFull)
		require.NoError(t, err)
		assert.Empty(t, catalog.Candidates)
	})

	t.Run("Unreadable recurrence is skipped", func(t *testing.T) {
		f := newFixture()
		f.schedules.schedules[0].ICalContent = "not a calendar"
		catalog, err := f.builder().Build(ctx, f.groups, f.window, ModeFull)
		require.NoError(t, err)
		for _, c := range catalog.Candidates {
			assert.NotEqual(t, "sched-sun", c.Schedule.ID)
		}
	})

	t.Run("Storage errors propagate", func(t *testing.T) {
		f := newFixture()
		f.schedules.err = errors.New("connection reset")
		_, err := f.builder().Build(ctx, f.groups, f.window, ModeFull)
		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestCatalogBuildOutsideUTC(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	// Effective dates come back from storage as midnight UTC.
	lastSunday := day(2024, 6, 2)
	ending := weekly("sched-sun", "Sunday Morning", 1, time.Sunday, 10)
	ending.EffectiveEndDate = &lastSunday

	f := &fixture{
		groups:    []*group.Group{grp("grp-a", "Alpha", 1)},
		locations: &fakeLocations{links: []*location.GroupLocation{link("gl-ax", "grp-a", 1, hall, "sched-sun")}},
		schedules: &fakeSchedules{schedules: []*schedule.Schedule{ending}},
		records:   newMemRepo(),
	}
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, chicago)
	w := daterange.Resolve(daterange.NewDateRange(time.Date(2024, 6, 2, 0, 0, 0, 0, chicago), time.Date(2024, 6, 8, 0, 0, 0, 0, chicago)), daterange.DefaultRange, now)

	catalog, err := f.builder().Build(context.Background(), f.groups, w, ModeFull)
	require.NoError(t, err)

	require.Len(t, catalog.Candidates, 1)
	require.Len(t, catalog.Candidates[0].StartTimes, 1)
	assert.True(t, time.Date(2024, 6, 2, 10, 0, 0, 0, chicago).Equal(catalog.Candidates[0].StartTimes[0]))
}
