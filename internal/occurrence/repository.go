package occurrence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines data access methods for occurrence records.
type Repository interface {
	// ListInRange returns the records of the groups dated in [start, end),
	// pool records included.
	ListInRange(ctx context.Context, groupIDs []string, start, end time.Time) ([]*Record, error)
	// FindByKey returns ErrNotFound when no record has the key.
	FindByKey(ctx context.Context, k Key) (*Record, error)
	// Create returns ErrAlreadyExists when the key is taken.
	Create(ctx context.Context, k Key) (*Record, error)
	// CreateMany inserts the keys that do not exist yet and returns how many were inserted.
	CreateMany(ctx context.Context, keys []Key) (int, error)
	ListByKeys(ctx context.Context, keys []Key) ([]*Record, error)
}

// keysPerQuery bounds the OR list of a single ListByKeys or CreateMany statement.
const keysPerQuery = 500

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

// scheduledCountExpr counts resources requested or scheduled against a record.
const scheduledCountExpr = `(SELECT COUNT(*) FROM public.resource_assignments ra
	WHERE ra.occurrence_record_id = r.id AND ra.status IN ('requested', 'scheduled')) AS scheduled_count`

func selectRecords() squirrel.SelectBuilder {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	return psql.Select(
		"r.id", "r.group_id", "COALESCE(r.location_id::text, '')", "r.schedule_id", "r.occurrence_date",
		scheduledCountExpr,
	).From("public.occurrence_records r")
}

func (r *pgxRepository) ListInRange(ctx context.Context, groupIDs []string, start, end time.Time) ([]*Record, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}

	query, args, err := selectRecords().
		Where(squirrel.Eq{"r.group_id": groupIDs}).
		Where(squirrel.GtOrEq{"r.occurrence_date": dateOnly(start)}).
		Where(squirrel.Lt{"r.occurrence_date": dateOnly(end)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list records query failed: %w", err)
	}
	return r.query(ctx, query, args)
}

func (r *pgxRepository) FindByKey(ctx context.Context, k Key) (*Record, error) {
	query, args, err := selectRecords().Where(keyCondition(k)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find record query failed: %w", err)
	}

	var rec Record
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&rec.ID, &rec.GroupID, &rec.LocationID, &rec.ScheduleID, &rec.OccurrenceDate, &rec.ScheduledCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find record failed: %w", err)
	}
	return &rec, nil
}

func (r *pgxRepository) Create(ctx context.Context, k Key) (*Record, error) {
	const query = `
		INSERT INTO public.occurrence_records (group_id, location_id, schedule_id, occurrence_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id, occurrence_date
	`

	rec := Record{GroupID: k.GroupID, LocationID: k.LocationID, ScheduleID: k.ScheduleID}
	if err := r.pool.QueryRow(ctx, query, k.GroupID, nullable(k.LocationID), k.ScheduleID, k.DateValue()).
		Scan(&rec.ID, &rec.OccurrenceDate); err != nil {
		var e *pgconn.PgError
		if errors.As(err, &e) && e.Code == pgerrcode.UniqueViolation {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create record failed: %w", err)
	}
	return &rec, nil
}

func (r *pgxRepository) CreateMany(ctx context.Context, keys []Key) (int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	created := 0

	// All chunks go in one transaction so the caller's locked section sees a
	// single commit.
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin create records failed: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, chunk := range chunkKeys(keys) {
		b := psql.Insert("public.occurrence_records").
			Columns("group_id", "location_id", "schedule_id", "occurrence_date")
		for _, k := range chunk {
			b = b.Values(k.GroupID, nullable(k.LocationID), k.ScheduleID, k.DateValue())
		}
		query, args, err := b.Suffix("ON CONFLICT DO NOTHING").ToSql()
		if err != nil {
			return 0, fmt.Errorf("build create records query failed: %w", err)
		}

		ct, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("create records failed: %w", err)
		}
		created += int(ct.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit create records failed: %w", err)
	}
	return created, nil
}

func (r *pgxRepository) ListByKeys(ctx context.Context, keys []Key) ([]*Record, error) {
	var records []*Record
	for _, chunk := range chunkKeys(keys) {
		or := make(squirrel.Or, 0, len(chunk))
		for _, k := range chunk {
			or = append(or, keyCondition(k))
		}
		query, args, err := selectRecords().Where(or).ToSql()
		if err != nil {
			return nil, fmt.Errorf("build list records by key query failed: %w", err)
		}
		found, err := r.query(ctx, query, args)
		if err != nil {
			return nil, err
		}
		records = append(records, found...)
	}
	return records, nil
}

func (r *pgxRepository) query(ctx context.Context, query string, args []any) ([]*Record, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records failed: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.GroupID, &rec.LocationID, &rec.ScheduleID, &rec.OccurrenceDate, &rec.ScheduledCount,
		); err != nil {
			return nil, fmt.Errorf("scan record failed: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records failed: %w", err)
	}
	return records, nil
}

func keyCondition(k Key) squirrel.And {
	return squirrel.And{
		squirrel.Eq{"r.group_id": k.GroupID},
		squirrel.Eq{"r.location_id": nullable(k.LocationID)},
		squirrel.Eq{"r.schedule_id": k.ScheduleID},
		squirrel.Eq{"r.occurrence_date": k.DateValue()},
	}
}

func chunkKeys(keys []Key) [][]Key {
	var chunks [][]Key
	for len(keys) > keysPerQuery {
		chunks = append(chunks, keys[:keysPerQuery])
		keys = keys[keysPerQuery:]
	}
	if len(keys) > 0 {
		chunks = append(chunks, keys)
	}
	return chunks
}

// nullable maps the empty pool location to SQL NULL.
func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}

// dateOnly keeps the calendar date of t as midnight UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
