package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrRecordNotFound = errors.New("occurrence record not found")

// Copier copies the resource assignments of one occurrence record onto another.
type Copier interface {
	Copy(ctx context.Context, sourceRecordID, destRecordID, actorID string) (CopyResult, error)
}

type pgxCopier struct {
	pool *pgxpool.Pool
}

func NewPgxCopier(pool *pgxpool.Pool) Copier {
	return &pgxCopier{pool: pool}
}

type destination struct {
	date        time.Time
	maxCapacity *int
	occupied    int
	people      map[string]struct{}
}

func (c *pgxCopier) Copy(ctx context.Context, sourceRecordID, destRecordID, actorID string) (CopyResult, error) {
	var result CopyResult

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin copy failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the destination row so concurrent copies see each other's inserts
	// when checking capacity.
	dest, err := loadDestination(ctx, tx, destRecordID)
	if err != nil {
		return result, err
	}

	people, err := sourcePeople(ctx, tx, sourceRecordID)
	if err != nil {
		return result, err
	}

	for _, personID := range people {
		if _, ok := dest.people[personID]; ok {
			result.AlreadyScheduled++
			continue
		}

		blocked, err := hasBlackout(ctx, tx, personID, dest.date)
		if err != nil {
			return CopyResult{}, err
		}
		if blocked {
			result.Blackout++
			continue
		}

		if dest.maxCapacity != nil && dest.occupied >= *dest.maxCapacity {
			result.OverCapacity++
			continue
		}

		const insert = `
			INSERT INTO public.resource_assignments (occurrence_record_id, person_id, status, assigned_by)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.Exec(ctx, insert, destRecordID, personID, StatusScheduled, actorID); err != nil {
			return CopyResult{}, fmt.Errorf("insert assignment failed: %w", err)
		}
		dest.people[personID] = struct{}{}
		dest.occupied++
		result.Cloned++
	}

	if err := tx.Commit(ctx); err != nil {
		return CopyResult{}, fmt.Errorf("commit copy failed: %w", err)
	}
	return result, nil
}

func loadDestination(ctx context.Context, tx pgx.Tx, recordID string) (*destination, error) {
	const query = `
		SELECT r.occurrence_date, gls.maximum_capacity
		FROM public.occurrence_records r
		LEFT JOIN public.group_locations gl
			ON gl.group_id = r.group_id AND gl.location_id = r.location_id
		LEFT JOIN public.group_location_schedules gls
			ON gls.group_location_id = gl.id AND gls.schedule_id = r.schedule_id
		WHERE r.id = $1
		FOR UPDATE OF r
	`

	dest := &destination{people: make(map[string]struct{})}
	if err := tx.QueryRow(ctx, query, recordID).Scan(&dest.date, &dest.maxCapacity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("load destination record failed: %w", err)
	}

	people, err := sourcePeople(ctx, tx, recordID)
	if err != nil {
		return nil, err
	}
	for _, id := range people {
		dest.people[id] = struct{}{}
	}
	dest.occupied = len(people)
	return dest, nil
}

// sourcePeople lists the people requested or scheduled on a record.
func sourcePeople(ctx context.Context, tx pgx.Tx, recordID string) ([]string, error) {
	const query = `
		SELECT person_id
		FROM public.resource_assignments
		WHERE occurrence_record_id = $1 AND status IN ($2, $3)
		ORDER BY created_at, person_id
	`

	rows, err := tx.Query(ctx, query, recordID, StatusRequested, StatusScheduled)
	if err != nil {
		return nil, fmt.Errorf("list assignments failed: %w", err)
	}
	people, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan assignments failed: %w", err)
	}
	return people, nil
}

func hasBlackout(ctx context.Context, tx pgx.Tx, personID string, date time.Time) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM public.person_blackout_dates
			WHERE person_id = $1 AND start_date <= $2 AND end_date >= $2
		)
	`

	var blocked bool
	if err := tx.QueryRow(ctx, query, personID, date).Scan(&blocked); err != nil {
		return false, fmt.Errorf("check blackout failed: %w", err)
	}
	return blocked, nil
}
