package occurrence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nekogravitycat/group-scheduler/internal/daterange"
)

// Manager gets or creates the records backing occurrences. Creation is
// serialized by lock, which must be shared by every Manager of the process.
type Manager struct {
	repo Repository
	lock sync.Locker
	loc  *time.Location
	now  func() time.Time
	log  zerolog.Logger
}

func NewManager(repo Repository, lock sync.Locker, loc *time.Location, log zerolog.Logger) *Manager {
	if loc == nil {
		loc = time.Local
	}
	return &Manager{repo: repo, lock: lock, loc: loc, now: time.Now, log: log}
}

func (m *Manager) today() time.Time {
	return daterange.DateOf(m.now().In(m.loc))
}

// GetOrAdd returns the id of the record backing occ, creating it when needed.
// ok is false when no record exists and none may be created, such as for a
// past date; that is not an error.
func (m *Manager) GetOrAdd(ctx context.Context, occ Occurrence) (id string, ok bool, err error) {
	if occ.RecordID != "" {
		return occ.RecordID, true, nil
	}
	if occ.OccurrenceDate.Before(m.today()) {
		return "", false, nil
	}

	k := occ.Key()

	m.lock.Lock()
	defer m.lock.Unlock()

	rec, err := m.repo.FindByKey(ctx, k)
	if err == nil {
		return rec.ID, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", false, err
	}

	rec, err = m.repo.Create(ctx, k)
	if errors.Is(err, ErrAlreadyExists) {
		// Another process inserted it between our read and write.
		rec, err = m.repo.FindByKey(ctx, k)
	}
	if err != nil {
		return "", false, err
	}

	m.log.Debug().Str("record_id", rec.ID).Str("group_id", k.GroupID).Str("schedule_id", k.ScheduleID).
		Str("date", k.Date).Msg("occurrence record created")
	return rec.ID, true, nil
}

// EnsureAll makes sure every occurrence dated today or later has a record.
// The lock is held for the whole batch. It returns the record ids by key and
// the number of records created.
func (m *Manager) EnsureAll(ctx context.Context, occs []Occurrence) (map[Key]string, int, error) {
	ids := make(map[Key]string)
	today := m.today()

	var keys []Key
	seen := make(map[Key]struct{})
	for _, o := range occs {
		if o.OccurrenceDate.Before(today) {
			continue
		}
		k := o.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		if o.RecordID != "" {
			ids[k] = o.RecordID
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ids, 0, nil
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	existing, err := m.repo.ListByKeys(ctx, keys)
	if err != nil {
		return nil, 0, err
	}
	for _, rec := range existing {
		ids[rec.Key()] = rec.ID
	}

	var missing []Key
	for _, k := range keys {
		if _, ok := ids[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return ids, 0, nil
	}

	created, err := m.repo.CreateMany(ctx, missing)
	if err != nil {
		return nil, 0, err
	}

	fresh, err := m.repo.ListByKeys(ctx, missing)
	if err != nil {
		return nil, 0, err
	}
	for _, rec := range fresh {
		ids[rec.Key()] = rec.ID
	}

	m.log.Info().Int("created", created).Int("requested", len(keys)).Msg("occurrence records ensured")
	return ids, created, nil
}
