package group

// Group is a schedulable team, class or serving area.
type Group struct {
	ID              string
	Name            string
	Order           int
	ParentGroupID   *string
	ParentGroupName string
	GroupTypeID     string
	// IsSchedulingEnabled comes from the group type.
	IsSchedulingEnabled bool
	// DisableScheduling is the per-group override.
	DisableScheduling bool
	IsActive          bool
	IsArchived        bool
}

// IsSchedulable reports whether the group itself may appear on the scheduler,
// before any permission check.
func (g *Group) IsSchedulable() bool {
	return g.IsActive && !g.IsArchived && g.IsSchedulingEnabled && !g.DisableScheduling
}

// Permissions granting scheduler access, matching the database enum.
const (
	PermissionEdit     = "edit"
	PermissionSchedule = "schedule"
)

// Authorized is the outcome of filtering requested groups.
type Authorized struct {
	// Groups is sorted by Order then Name.
	Groups []*Group
	IDs    map[string]struct{}
}

// Has reports whether id is in the authorized set.
func (a Authorized) Has(id string) bool {
	_, ok := a.IDs[id]
	return ok
}

// OrderedIDs returns the authorized ids in display order.
func (a Authorized) OrderedIDs() []string {
	ids := make([]string, len(a.Groups))
	for i, g := range a.Groups {
		ids[i] = g.ID
	}
	return ids
}
