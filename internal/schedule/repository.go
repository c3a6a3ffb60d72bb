package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dateLayout binds window bounds as calendar dates in the window's location.
const dateLayout = "2006-01-02"

// Repository defines data access methods for schedules.
type Repository interface {
	// ListActive returns the active schedules among ids whose effective
	// interval loosely overlaps [start, end).
	ListActive(ctx context.Context, ids []string, start, end time.Time) ([]*Schedule, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) ListActive(ctx context.Context, ids []string, start, end time.Time) ([]*Schedule, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := listActiveQuery(ids, start, end)
	if err != nil {
		return nil, fmt.Errorf("build list schedules query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules failed: %w", err)
	}
	defer rows.Close()

	var schedules []*Schedule
	for rows.Next() {
		var (
			s         Schedule
			weekday   *int
			timeOfDay *int
		)
		if err := rows.Scan(
			&s.ID, &s.Name, &s.Order, &s.IsActive, &s.ICalContent,
			&weekday, &timeOfDay,
			&s.EffectiveStartDate, &s.EffectiveEndDate,
		); err != nil {
			return nil, fmt.Errorf("scan schedule failed: %w", err)
		}
		if weekday != nil {
			d := time.Weekday(*weekday)
			s.WeeklyDayOfWeek = &d
		}
		if timeOfDay != nil {
			tod := time.Duration(*timeOfDay) * time.Second
			s.WeeklyTimeOfDay = &tod
		}
		schedules = append(schedules, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list schedules failed: %w", err)
	}
	return schedules, nil
}

// listActiveQuery selects the active schedules among ids that loosely overlap
// [start, end). The bounds are bound as calendar dates of their own location
// because the effective columns are DATE.
func listActiveQuery(ids []string, start, end time.Time) (string, []any, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	return psql.Select(
		"s.id", "s.name", "s.display_order", "s.is_active", "COALESCE(s.ical_content, '')",
		"s.weekly_day_of_week", "s.weekly_time_of_day_seconds",
		"s.effective_start_date", "s.effective_end_date",
	).
		From("public.schedules s").
		Where(squirrel.Eq{"s.id": ids}).
		Where(squirrel.Eq{"s.is_active": true}).
		Where(squirrel.Or{
			squirrel.Eq{"s.effective_start_date": nil},
			squirrel.Expr("s.effective_start_date < ?::date", end.Format(dateLayout)),
		}).
		Where(squirrel.Or{
			squirrel.Eq{"s.effective_end_date": nil},
			squirrel.Expr("s.effective_end_date >= ?::date", start.Format(dateLayout)),
		}).
		ToSql()
}
