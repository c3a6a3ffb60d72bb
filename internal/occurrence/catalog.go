package occurrence

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nekogravitycat/group-scheduler/internal/daterange"
	"github.com/nekogravitycat/group-scheduler/internal/group"
	"github.com/nekogravitycat/group-scheduler/internal/location"
	"github.com/nekogravitycat/group-scheduler/internal/schedule"
)

// Mode selects how thoroughly a catalog checks schedules against the window.
type Mode int

const (
	// ModeFull expands every schedule and drops combinations without a start
	// time in the window.
	ModeFull Mode = iota
	// ModeLightweight keeps every schedule whose effective dates loosely
	// overlap the window, without expanding it. Candidates carry no start times.
	ModeLightweight
)

// Catalog is the unfiltered [group, location, schedule] matrix of a window.
type Catalog struct {
	Window     daterange.Window
	Candidates []Candidate
	// Records holds every record of the authorized groups in the window,
	// unassigned pool records included.
	Records []*Record
}

// CatalogBuilder loads and expands the catalog for authorized groups.
type CatalogBuilder struct {
	locations location.Repository
	schedules schedule.Repository
	records   Repository
	log       zerolog.Logger
}

func NewCatalogBuilder(
	locations location.Repository,
	schedules schedule.Repository,
	records Repository,
	log zerolog.Logger,
) *CatalogBuilder {
	return &CatalogBuilder{locations: locations, schedules: schedules, records: records, log: log}
}

// Build returns one candidate per (group, location, schedule) of the groups,
// in group order. Groups are expected to be authorized already.
func (b *CatalogBuilder) Build(ctx context.Context, groups []*group.Group, w daterange.Window, mode Mode) (Catalog, error) {
	catalog := Catalog{Window: w}
	if len(groups) == 0 {
		return catalog, nil
	}

	groupIDs := make([]string, len(groups))
	for i, g := range groups {
		groupIDs[i] = g.ID
	}

	var links []*location.GroupLocation
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		links, err = b.locations.ListGroupLocations(egCtx, groupIDs)
		return err
	})
	eg.Go(func() error {
		var err error
		catalog.Records, err = b.records.ListInRange(egCtx, groupIDs, w.Start, w.End)
		return err
	})
	if err := eg.Wait(); err != nil {
		return Catalog{}, err
	}

	schedules, err := b.loadSchedules(ctx, links, w)
	if err != nil {
		return Catalog{}, err
	}

	recordsByKey := make(map[Key][]*Record)
	for _, rec := range catalog.Records {
		if rec.LocationID == "" {
			continue
		}
		k := comboKey(rec.GroupID, rec.LocationID, rec.ScheduleID)
		recordsByKey[k] = append(recordsByKey[k], rec)
	}

	linksByGroup := make(map[string][]*location.GroupLocation)
	for _, gl := range links {
		linksByGroup[gl.GroupID] = append(linksByGroup[gl.GroupID], gl)
	}

	expanded := make(map[string][]time.Time)
	for _, g := range groups {
		for _, gl := range linksByGroup[g.ID] {
			for _, sc := range gl.Schedules {
				s, ok := schedules[sc.ScheduleID]
				if !ok {
					continue
				}

				c := Candidate{
					Group:         g,
					GroupLocation: gl,
					Schedule:      s,
					Capacity:      sc.Capacity,
					Records:       recordsByKey[comboKey(g.ID, gl.Location.ID, s.ID)],
				}

				if mode == ModeFull {
					times, seen := expanded[s.ID]
					if !seen {
						times = b.expand(s, w)
						expanded[s.ID] = times
					}
					if len(times) == 0 {
						continue
					}
					c.StartTimes = times
				}

				catalog.Candidates = append(catalog.Candidates, c)
			}
		}
	}

	return catalog, nil
}

func (b *CatalogBuilder) loadSchedules(ctx context.Context, links []*location.GroupLocation, w daterange.Window) (map[string]*schedule.Schedule, error) {
	var ids []string
	seen := make(map[string]struct{})
	for _, gl := range links {
		for _, id := range gl.ScheduleIDs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	list, err := b.schedules.ListActive(ctx, ids, w.Start, w.End)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*schedule.Schedule, len(list))
	for _, s := range list {
		if !s.IsActive || !s.OverlapsLoosely(w.Start, w.End) {
			continue
		}
		out[s.ID] = s
	}
	return out, nil
}

// expand returns the start times of s in the window. A schedule whose
// definition cannot be read contributes nothing.
func (b *CatalogBuilder) expand(s *schedule.Schedule, w daterange.Window) []time.Time {
	times, err := s.StartTimes(w.Start, w.End)
	if err != nil {
		b.log.Warn().Err(err).Str("schedule_id", s.ID).Msg("skipping schedule with unreadable recurrence")
		return nil
	}
	return times
}

// comboKey identifies a (group, location, schedule) combination regardless of date.
func comboKey(groupID, locationID, scheduleID string) Key {
	return Key{GroupID: groupID, LocationID: locationID, ScheduleID: scheduleID}
}
