package occurrence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nekogravitycat/group-scheduler/internal/group"
	"github.com/nekogravitycat/group-scheduler/internal/location"
	"github.com/nekogravitycat/group-scheduler/internal/schedule"
)

// memRepo is an in-memory Repository enforcing the unique key.
type memRepo struct {
	mu      sync.Mutex
	records map[Key]*Record
	nextID  int
	creates int
	// findDelay widens the check-then-insert gap in concurrency tests.
	findDelay time.Duration
}

func newMemRepo(existing ...*Record) *memRepo {
	r := &memRepo{records: make(map[Key]*Record)}
	for _, rec := range existing {
		r.records[rec.Key()] = rec
	}
	return r
}

func (r *memRepo) ListInRange(_ context.Context, groupIDs []string, start, end time.Time) ([]*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := toSet(groupIDs)
	var out []*Record
	for _, rec := range r.records {
		if _, ok := ids[rec.GroupID]; !ok {
			continue
		}
		if rec.OccurrenceDate.Before(dateOnly(start)) || !rec.OccurrenceDate.Before(dateOnly(end)) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *memRepo) FindByKey(_ context.Context, k Key) (*Record, error) {
	if r.findDelay > 0 {
		time.Sleep(r.findDelay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[k]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (r *memRepo) Create(_ context.Context, k Key) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[k]; ok {
		return nil, ErrAlreadyExists
	}
	return r.insert(k), nil
}

func (r *memRepo) CreateMany(_ context.Context, keys []Key) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, k := range keys {
		if _, ok := r.records[k]; ok {
			continue
		}
		r.insert(k)
		n++
	}
	return n, nil
}

func (r *memRepo) ListByKeys(_ context.Context, keys []Key) ([]*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Record
	for _, k := range keys {
		if rec, ok := r.records[k]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memRepo) insert(k Key) *Record {
	r.nextID++
	r.creates++
	rec := &Record{
		ID:             fmt.Sprintf("rec-%d", r.nextID),
		GroupID:        k.GroupID,
		LocationID:     k.LocationID,
		ScheduleID:     k.ScheduleID,
		OccurrenceDate: k.DateValue(),
	}
	r.records[k] = rec
	return rec
}

func (r *memRepo) createCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates
}

type fakeLocations struct {
	links []*location.GroupLocation
}

func (f *fakeLocations) ListGroupLocations(_ context.Context, groupIDs []string) ([]*location.GroupLocation, error) {
	ids := toSet(groupIDs)
	var out []*location.GroupLocation
	for _, gl := range f.links {
		if _, ok := ids[gl.GroupID]; ok {
			out = append(out, gl)
		}
	}
	return out, nil
}

type fakeSchedules struct {
	schedules []*schedule.Schedule
	err       error
}

func (f *fakeSchedules) ListActive(_ context.Context, ids []string, _, _ time.Time) ([]*schedule.Schedule, error) {
	if f.err != nil {
		return nil, f.err
	}
	set := toSet(ids)
	var out []*schedule.Schedule
	for _, s := range f.schedules {
		if _, ok := set[s.ID]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// countingLocker records how often it was taken.
type countingLocker struct {
	mu    sync.Mutex
	locks int
}

func (l *countingLocker) Lock() {
	l.mu.Lock()
	l.locks++
}

func (l *countingLocker) Unlock() {
	l.mu.Unlock()
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weekly(id, name string, order int, wd time.Weekday, hour int) *schedule.Schedule {
	tod := time.Duration(hour) * time.Hour
	return &schedule.Schedule{ID: id, Name: name, Order: order, IsActive: true, WeeklyDayOfWeek: &wd, WeeklyTimeOfDay: &tod}
}

func grp(id, name string, order int) *group.Group {
	return &group.Group{ID: id, Name: name, Order: order, IsActive: true, IsSchedulingEnabled: true}
}

func link(id, groupID string, order int, loc location.Location, scheduleIDs ...string) *location.GroupLocation {
	gl := &location.GroupLocation{ID: id, GroupID: groupID, Order: order, Location: loc}
	for _, sid := range scheduleIDs {
		gl.Schedules = append(gl.Schedules, location.ScheduleConfig{ScheduleID: sid})
	}
	return gl
}
