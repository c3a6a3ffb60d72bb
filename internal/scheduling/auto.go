package scheduling

import (
	"context"

	"github.com/nekogravitycat/group-scheduler/internal/occurrence"
)

func (s *service) AutoSchedule(ctx context.Context, actorID string, f Filters) (*AutoScheduleResult, error) {
	p, err := s.run(ctx, actorID, f, occurrence.ModeFull)
	if err != nil {
		return nil, err
	}

	now, _ := s.clock()
	var future []occurrence.Occurrence
	for _, o := range p.expansion.Occurrences {
		if o.StartTime.After(now) {
			future = append(future, o)
		}
	}

	result := &AutoScheduleResult{}
	if len(future) > 0 {
		ids, created, err := s.records.EnsureAll(ctx, future)
		if err != nil {
			return nil, err
		}
		result.RecordsCreated = created

		var recordIDs []string
		seen := make(map[string]struct{})
		for _, o := range future {
			id, ok := ids[o.Key()]
			if !ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			recordIDs = append(recordIDs, id)
		}

		if len(recordIDs) > 0 {
			if err := s.assigner.AutoAssign(ctx, recordIDs, actorID); err != nil {
				s.log.Error().Err(err).Str("actor_id", actorID).Int("records", len(recordIDs)).Msg("auto assign failed")
				result.AssignmentFailed = true
			}
		}
	}

	result.Board, err = s.ApplyFilters(ctx, actorID, p.refinement.Filters)
	if err != nil {
		return nil, err
	}
	return result, nil
}
