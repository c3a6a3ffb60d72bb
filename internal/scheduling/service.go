package scheduling

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/nekogravitycat/group-scheduler/internal/assignment"
	"github.com/nekogravitycat/group-scheduler/internal/daterange"
	"github.com/nekogravitycat/group-scheduler/internal/group"
	"github.com/nekogravitycat/group-scheduler/internal/occurrence"
	"github.com/nekogravitycat/group-scheduler/internal/preference"
)

// CatalogBuilder builds the unfiltered occurrence catalog of a window.
type CatalogBuilder interface {
	Build(ctx context.Context, groups []*group.Group, w daterange.Window, mode occurrence.Mode) (occurrence.Catalog, error)
}

// RecordManager gets or creates occurrence records under the creation lock.
type RecordManager interface {
	GetOrAdd(ctx context.Context, occ occurrence.Occurrence) (string, bool, error)
	EnsureAll(ctx context.Context, occs []occurrence.Occurrence) (map[occurrence.Key]string, int, error)
}

// Service defines the scheduler operations.
type Service interface {
	// RefineFilters validates f against what the actor may see.
	RefineFilters(ctx context.Context, actorID string, f Filters) (*Refinement, error)
	// ApplyFilters builds the board for f and saves the validated filters.
	ApplyFilters(ctx context.Context, actorID string, f Filters) (*Board, error)
	// LoadFilters returns the saved filters, or the default window when none are saved.
	LoadFilters(ctx context.Context, actorID string) (Filters, error)
	// GetCloneSettings validates cs, falling back to the saved settings when cs is empty.
	GetCloneSettings(ctx context.Context, actorID string, f Filters, cs CloneSettings) (*CloneOptions, error)
	// CloneSchedules copies assignments from the source week to the destination week.
	CloneSchedules(ctx context.Context, actorID string, f Filters, cs CloneSettings) (*CloneOutcome, error)
	// AutoSchedule creates records for future occurrences of f and auto-assigns them.
	AutoSchedule(ctx context.Context, actorID string, f Filters) (*AutoScheduleResult, error)
	// GetOrAddOccurrenceRecord returns the record backing occ. ok is false
	// when occ may not be scheduled.
	GetOrAddOccurrenceRecord(ctx context.Context, actorID string, occ occurrence.Occurrence) (id string, ok bool, err error)
}

type service struct {
	groups   group.Service
	catalog  CatalogBuilder
	records  RecordManager
	copier   assignment.Copier
	assigner assignment.AutoAssigner
	prefs    preference.Store
	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates a new scheduling service. Dates are decided in loc.
func NewService(
	groups group.Service,
	catalog CatalogBuilder,
	records RecordManager,
	copier assignment.Copier,
	assigner assignment.AutoAssigner,
	prefs preference.Store,
	loc *time.Location,
	log zerolog.Logger,
) Service {
	if loc == nil {
		loc = time.Local
	}
	return &service{
		groups:   groups,
		catalog:  catalog,
		records:  records,
		copier:   copier,
		assigner: assigner,
		prefs:    prefs,
		loc:      loc,
		now:      time.Now,
		log:      log,
	}
}

func (s *service) clock() (now, today time.Time) {
	now = s.now().In(s.loc)
	return now, daterange.DateOf(now)
}

// pipeline is one pass of authorization, catalog, facets and expansion.
type pipeline struct {
	refinement Refinement
	catalog    occurrence.Catalog
	facets     occurrence.Facets
	expansion  occurrence.Expansion
}

func (s *service) run(ctx context.Context, actorID string, f Filters, mode occurrence.Mode) (*pipeline, error) {
	now, today := s.clock()

	// An unusable selection gets the fixed fallback window; the saved filters
	// carry the default range so the next load starts from it.
	dr := f.DateRange
	var window daterange.Window
	if dr.IsValid() {
		window = daterange.Resolve(dr, daterange.DefaultRange, now)
	} else {
		dr = daterange.DefaultRange
		window = daterange.Fallback(now)
	}

	authorized, err := s.groups.Authorize(ctx, actorID, f.GroupIDs)
	if err != nil {
		return nil, err
	}

	catalog, err := s.catalog.Build(ctx, authorized.Groups, window, mode)
	if err != nil {
		return nil, err
	}

	facets := occurrence.FilterFacets(catalog.Candidates, f.LocationIDs, f.ScheduleIDs, now)

	p := &pipeline{
		refinement: Refinement{
			Filters: Filters{
				GroupIDs:    authorized.OrderedIDs(),
				LocationIDs: facets.SelectedLocationIDs(),
				ScheduleIDs: facets.SelectedScheduleIDs(),
				DateRange:   dr,
			},
			Window:             window,
			Groups:             authorized.Groups,
			AvailableLocations: facets.AvailableLocations,
			SelectedLocations:  facets.SelectedLocations,
			AvailableSchedules: facets.AvailableSchedules,
			SelectedSchedules:  facets.SelectedSchedules,
		},
		catalog: catalog,
		facets:  facets,
	}
	if mode == occurrence.ModeFull {
		p.expansion = occurrence.Expand(facets.Filtered, today)
	}
	return p, nil
}

func (s *service) RefineFilters(ctx context.Context, actorID string, f Filters) (*Refinement, error) {
	p, err := s.run(ctx, actorID, f, occurrence.ModeFull)
	if err != nil {
		return nil, err
	}
	return &p.refinement, nil
}

func (s *service) ApplyFilters(ctx context.Context, actorID string, f Filters) (*Board, error) {
	p, err := s.run(ctx, actorID, f, occurrence.ModeFull)
	if err != nil {
		return nil, err
	}

	s.savePreference(ctx, actorID, preference.KeyBoardFilters, p.refinement.Filters)
	return s.board(p), nil
}

func (s *service) board(p *pipeline) *Board {
	_, today := s.clock()
	w := p.refinement.Window

	b := &Board{
		Refinement:  p.refinement,
		Occurrences: p.expansion.Occurrences,
		Unassigned:  occurrence.AggregateUnassigned(p.expansion.Occurrences, p.catalog.Records, today),
		Previous:    daterange.NewDateRange(w.Start.AddDate(0, 0, -w.Days), w.Start.AddDate(0, 0, -1)),
		Next:        daterange.NewDateRange(w.End, w.End.AddDate(0, 0, w.Days-1)),
	}

	for _, d := range p.expansion.Dates {
		b.Dates = append(b.Dates, DateLabel{Date: d, Label: d.Format("Monday, January 2")})
	}

	present := toSet(p.expansion.LocationIDs)
	for _, o := range p.facets.AvailableLocations {
		if _, ok := present[o.ID]; ok {
			b.Locations = append(b.Locations, o)
		}
	}
	present = toSet(p.expansion.ScheduleIDs)
	for _, o := range p.facets.AvailableSchedules {
		if _, ok := present[o.ID]; ok {
			b.Schedules = append(b.Schedules, o)
		}
	}
	return b
}

func (s *service) LoadFilters(ctx context.Context, actorID string) (Filters, error) {
	f := Filters{DateRange: daterange.DefaultRange}
	raw, err := s.prefs.Get(ctx, actorID, preference.KeyBoardFilters)
	if err != nil {
		return f, err
	}
	if raw == "" {
		return f, nil
	}
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		s.log.Warn().Err(err).Str("actor_id", actorID).Msg("ignoring unreadable saved filters")
		return Filters{DateRange: daterange.DefaultRange}, nil
	}
	return f, nil
}

func (s *service) GetOrAddOccurrenceRecord(ctx context.Context, actorID string, occ occurrence.Occurrence) (string, bool, error) {
	if occ.GroupID == "" || occ.ScheduleID == "" || occ.OccurrenceDate.IsZero() {
		return "", false, nil
	}

	authorized, err := s.groups.Authorize(ctx, actorID, []string{occ.GroupID})
	if err != nil {
		return "", false, err
	}
	if !authorized.Has(occ.GroupID) {
		s.log.Debug().Str("actor_id", actorID).Str("group_id", occ.GroupID).Msg("occurrence record refused")
		return "", false, nil
	}

	y, m, d := occ.OccurrenceDate.Date()
	occ.OccurrenceDate = time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	return s.records.GetOrAdd(ctx, occ)
}

// savePreference stores v as JSON. A failure only costs the actor their
// saved selection, so it is logged rather than returned.
func (s *service) savePreference(ctx context.Context, actorID, key string, v any) {
	if actorID == "" {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("encode preference failed")
		return
	}
	if err := s.prefs.Set(ctx, actorID, key, string(raw)); err != nil {
		s.log.Warn().Err(err).Str("actor_id", actorID).Str("key", key).Msg("save preference failed")
	}
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
