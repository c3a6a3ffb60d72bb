package group

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines methods for accessing group data.
type Repository interface {
	// ListByIDs returns the groups with the given ids; unknown ids are ignored.
	ListByIDs(ctx context.Context, ids []string) ([]*Group, error)
	// HasSchedulePermission reports whether the user is a system admin or holds
	// edit or schedule rights on the group.
	HasSchedulePermission(ctx context.Context, groupID string, userID string) (bool, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository creates a new group repository.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) ListByIDs(ctx context.Context, ids []string) ([]*Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"g.id", "g.name", "g.display_order", "g.parent_group_id", "COALESCE(p.name, '')",
		"g.group_type_id", "gt.is_scheduling_enabled", "g.disable_scheduling",
		"g.is_active", "g.is_archived",
	).
		From("public.groups g").
		Join("public.group_types gt ON g.group_type_id = gt.id").
		LeftJoin("public.groups p ON g.parent_group_id = p.id").
		Where(squirrel.Eq{"g.id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list groups query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list groups failed: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(
			&g.ID, &g.Name, &g.Order, &g.ParentGroupID, &g.ParentGroupName,
			&g.GroupTypeID, &g.IsSchedulingEnabled, &g.DisableScheduling,
			&g.IsActive, &g.IsArchived,
		); err != nil {
			return nil, fmt.Errorf("scan group failed: %w", err)
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list groups failed: %w", err)
	}
	return groups, nil
}

func (r *pgxRepository) HasSchedulePermission(ctx context.Context, groupID string, userID string) (bool, error) {
	// Logic:
	// 1. System admins may schedule any group
	// 2. Otherwise an edit or schedule grant on the group is required
	const query = `
		SELECT
			EXISTS (
				SELECT 1 FROM public.users u
				WHERE u.id = $2 AND u.is_system_admin = true
			)
			OR EXISTS (
				SELECT 1 FROM public.group_permissions gp
				WHERE gp.group_id = $1 AND gp.user_id = $2 AND gp.permission IN ($3, $4)
			)
	`

	var allowed bool
	err := r.pool.QueryRow(ctx, query, groupID, userID, PermissionEdit, PermissionSchedule).Scan(&allowed)
	if err != nil {
		return false, fmt.Errorf("HasSchedulePermission failed: %w", err)
	}
	return allowed, nil
}
