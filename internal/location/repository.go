package location

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines data access methods for locations.
type Repository interface {
	// ListGroupLocations returns the links of the given groups to active
	// locations, each with its linked schedules.
	ListGroupLocations(ctx context.Context, groupIDs []string) ([]*GroupLocation, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) ListGroupLocations(ctx context.Context, groupIDs []string) ([]*GroupLocation, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"gl.id", "gl.group_id", "gl.display_order",
		"l.id", "l.name", "l.is_active",
		"gls.schedule_id", "gls.minimum_capacity", "gls.desired_capacity", "gls.maximum_capacity",
	).
		From("public.group_locations gl").
		Join("public.locations l ON gl.location_id = l.id").
		Join("public.group_location_schedules gls ON gls.group_location_id = gl.id").
		Where(squirrel.Eq{"gl.group_id": groupIDs}).
		Where(squirrel.Eq{"l.is_active": true}).
		OrderBy("gl.group_id", "gl.display_order", "gl.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list group locations query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list group locations failed: %w", err)
	}
	defer rows.Close()

	// One row per (group location, schedule); fold rows into links.
	byID := make(map[string]*GroupLocation)
	var links []*GroupLocation

	for rows.Next() {
		var (
			gl      GroupLocation
			sc      ScheduleConfig
			minimum *int
			desired *int
			maximum *int
		)
		if err := rows.Scan(
			&gl.ID, &gl.GroupID, &gl.Order,
			&gl.Location.ID, &gl.Location.Name, &gl.Location.IsActive,
			&sc.ScheduleID, &minimum, &desired, &maximum,
		); err != nil {
			return nil, fmt.Errorf("scan group location failed: %w", err)
		}
		if minimum != nil || desired != nil || maximum != nil {
			sc.Capacity = &CapacityConfig{
				MinimumCapacity: minimum,
				DesiredCapacity: desired,
				MaximumCapacity: maximum,
			}
		}

		link, ok := byID[gl.ID]
		if !ok {
			link = &gl
			byID[gl.ID] = link
			links = append(links, link)
		}
		link.Schedules = append(link.Schedules, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list group locations failed: %w", err)
	}

	return links, nil
}
