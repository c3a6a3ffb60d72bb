package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nekogravitycat/group-scheduler/internal/assignment"
	"github.com/nekogravitycat/group-scheduler/internal/daterange"
	"github.com/nekogravitycat/group-scheduler/internal/group"
	"github.com/nekogravitycat/group-scheduler/internal/location"
	"github.com/nekogravitycat/group-scheduler/internal/occurrence"
	"github.com/nekogravitycat/group-scheduler/internal/preference"
	"github.com/nekogravitycat/group-scheduler/internal/schedule"
)

const actor = "user-1"

type fakeGroupRepo struct {
	groups []*group.Group
	// grants holds group ids the actor may schedule.
	grants map[string]bool
}

func (f *fakeGroupRepo) ListByIDs(_ context.Context, ids []string) ([]*group.Group, error) {
	want := toSet(ids)
	var out []*group.Group
	for _, g := range f.groups {
		if _, ok := want[g.ID]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGroupRepo) HasSchedulePermission(_ context.Context, groupID, userID string) (bool, error) {
	return userID == actor && f.grants[groupID], nil
}

type fakeLocations struct {
	links []*location.GroupLocation
}

func (f *fakeLocations) ListGroupLocations(_ context.Context, groupIDs []string) ([]*location.GroupLocation, error) {
	want := toSet(groupIDs)
	var out []*location.GroupLocation
	for _, gl := range f.links {
		if _, ok := want[gl.GroupID]; ok {
			out = append(out, gl)
		}
	}
	return out, nil
}

type fakeSchedules struct {
	schedules []*schedule.Schedule
}

func (f *fakeSchedules) ListActive(_ context.Context, ids []string, _, _ time.Time) ([]*schedule.Schedule, error) {
	want := toSet(ids)
	var out []*schedule.Schedule
	for _, s := range f.schedules {
		if _, ok := want[s.ID]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// fakeRecords is both the record store read by the catalog and the record
// manager used by the service.
type fakeRecords struct {
	mu      sync.Mutex
	records map[occurrence.Key]*occurrence.Record
	nextID  int
	today   time.Time
}

func newFakeRecords(today time.Time, existing ...*occurrence.Record) *fakeRecords {
	f := &fakeRecords{records: make(map[occurrence.Key]*occurrence.Record), today: today}
	for _, rec := range existing {
		f.records[rec.Key()] = rec
	}
	return f
}

func (f *fakeRecords) ListInRange(_ context.Context, groupIDs []string, start, end time.Time) ([]*occurrence.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := toSet(groupIDs)
	s, e := start.Format("2006-01-02"), end.Format("2006-01-02")
	var out []*occurrence.Record
	for k, rec := range f.records {
		if _, ok := want[rec.GroupID]; ok && k.Date >= s && k.Date < e {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecords) FindByKey(_ context.Context, k occurrence.Key) (*occurrence.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.records[k]; ok {
		return rec, nil
	}
	return nil, occurrence.ErrNotFound
}

func (f *fakeRecords) Create(ctx context.Context, k occurrence.Key) (*occurrence.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[k]; ok {
		return nil, occurrence.ErrAlreadyExists
	}
	return f.insert(k), nil
}

func (f *fakeRecords) CreateMany(_ context.Context, keys []occurrence.Key) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, k := range keys {
		if _, ok := f.records[k]; !ok {
			f.insert(k)
			n++
		}
	}
	return n, nil
}

func (f *fakeRecords) ListByKeys(_ context.Context, keys []occurrence.Key) ([]*occurrence.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*occurrence.Record
	for _, k := range keys {
		if rec, ok := f.records[k]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecords) GetOrAdd(_ context.Context, occ occurrence.Occurrence) (string, bool, error) {
	if occ.RecordID != "" {
		return occ.RecordID, true, nil
	}
	if occ.OccurrenceDate.Before(f.today) {
		return "", false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.records[occ.Key()]; ok {
		return rec.ID, true, nil
	}
	return f.insert(occ.Key()).ID, true, nil
}

func (f *fakeRecords) EnsureAll(ctx context.Context, occs []occurrence.Occurrence) (map[occurrence.Key]string, int, error) {
	ids := make(map[occurrence.Key]string)
	created := 0
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range occs {
		if o.OccurrenceDate.Before(f.today) {
			continue
		}
		k := o.Key()
		rec, ok := f.records[k]
		if !ok {
			rec = f.insert(k)
			created++
		}
		ids[k] = rec.ID
	}
	return ids, created, nil
}

func (f *fakeRecords) insert(k occurrence.Key) *occurrence.Record {
	f.nextID++
	rec := &occurrence.Record{
		ID:             fmt.Sprintf("new-%d", f.nextID),
		GroupID:        k.GroupID,
		LocationID:     k.LocationID,
		ScheduleID:     k.ScheduleID,
		OccurrenceDate: k.DateValue(),
	}
	f.records[k] = rec
	return rec
}

func (f *fakeRecords) has(groupID, locationID, scheduleID string, date time.Time) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[occurrence.NewKey(groupID, locationID, scheduleID, date)]
	if !ok {
		return "", false
	}
	return rec.ID, true
}

type copyCall struct{ source, dest string }

type fakeCopier struct {
	calls   []copyCall
	results map[string]assignment.CopyResult
	fail    map[string]bool
}

func (f *fakeCopier) Copy(_ context.Context, sourceRecordID, destRecordID, _ string) (assignment.CopyResult, error) {
	f.calls = append(f.calls, copyCall{sourceRecordID, destRecordID})
	if f.fail[sourceRecordID] {
		return assignment.CopyResult{}, errors.New("copy failed")
	}
	return f.results[sourceRecordID], nil
}

type fakeAssigner struct {
	calls [][]string
	err   error
}

func (f *fakeAssigner) AutoAssign(_ context.Context, recordIDs []string, _ string) error {
	f.calls = append(f.calls, recordIDs)
	return f.err
}

type failingPrefs struct{}

func (failingPrefs) Get(context.Context, string, string) (string, error) {
	return "", errors.New("redis down")
}

func (failingPrefs) Set(context.Context, string, string, string) error {
	return errors.New("redis down")
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weekly(id, name string, order int, wd time.Weekday, hour int) *schedule.Schedule {
	tod := time.Duration(hour) * time.Hour
	return &schedule.Schedule{ID: id, Name: name, Order: order, IsActive: true, WeeklyDayOfWeek: &wd, WeeklyTimeOfDay: &tod}
}

func link(id, groupID string, order int, loc location.Location, scheduleIDs ...string) *location.GroupLocation {
	gl := &location.GroupLocation{ID: id, GroupID: groupID, Order: order, Location: loc}
	for _, sid := range scheduleIDs {
		gl.Schedules = append(gl.Schedules, location.ScheduleConfig{ScheduleID: sid})
	}
	return gl
}

// env wires a service over fakes. Group A meets at X and Z, group B at X,
// group C has scheduling disabled.
type env struct {
	svc      *service
	records  *fakeRecords
	copier   *fakeCopier
	assigner *fakeAssigner
	prefs    preference.Store
}

func newEnv(now time.Time, existing ...*occurrence.Record) *env {
	x := location.Location{ID: "loc-x", Name: "Main Hall", IsActive: true}
	z := location.Location{ID: "loc-z", Name: "Chapel", IsActive: true}

	groupRepo := &fakeGroupRepo{
		groups: []*group.Group{
			{ID: "grp-a", Name: "Alpha", Order: 1, IsActive: true, IsSchedulingEnabled: true},
			{ID: "grp-b", Name: "Bravo", Order: 2, IsActive: true, IsSchedulingEnabled: true},
			{ID: "grp-c", Name: "Charlie", Order: 3, IsActive: true, IsSchedulingEnabled: true, DisableScheduling: true},
		},
		grants: map[string]bool{"grp-a": true, "grp-b": true, "grp-c": true},
	}
	locations := &fakeLocations{links: []*location.GroupLocation{
		link("gl-ax", "grp-a", 1, x, "sched-sat", "sched-sun"),
		link("gl-az", "grp-a", 2, z, "sched-sat"),
		link("gl-bx", "grp-b", 1, x, "sched-sat"),
		link("gl-cx", "grp-c", 1, x, "sched-sat"),
	}}
	schedules := &fakeSchedules{schedules: []*schedule.Schedule{
		weekly("sched-sat", "Saturday Morning", 1, time.Saturday, 10),
		weekly("sched-sun", "Sunday Service", 2, time.Sunday, 9),
	}}

	records := newFakeRecords(daterange.DateOf(now), existing...)
	e := &env{
		records:  records,
		copier:   &fakeCopier{results: map[string]assignment.CopyResult{}, fail: map[string]bool{}},
		assigner: &fakeAssigner{},
		prefs:    preference.NewMemoryStore(),
	}

	groups := group.NewService(groupRepo, group.NewRepositoryAuthorizer(groupRepo))
	catalog := occurrence.NewCatalogBuilder(locations, schedules, records, zerolog.Nop())
	e.svc = NewService(groups, catalog, records, e.copier, e.assigner, e.prefs, time.UTC, zerolog.Nop()).(*service)
	e.svc.now = func() time.Time { return now }
	return e
}
