package location

// Location represents a physical room or venue a group can meet in.
type Location struct {
	ID       string
	Name     string
	IsActive bool
}

// CapacityConfig bounds how many resources a schedule at a location wants.
// Any bound may be unset.
type CapacityConfig struct {
	MinimumCapacity *int
	DesiredCapacity *int
	MaximumCapacity *int
}

// ScheduleConfig links a schedule to a group location.
type ScheduleConfig struct {
	ScheduleID string
	Capacity   *CapacityConfig
}

// GroupLocation associates a group with a location it meets at.
type GroupLocation struct {
	ID        string
	GroupID   string
	Order     int
	Location  Location
	Schedules []ScheduleConfig
}

// ScheduleIDs returns the ids of the schedules linked to gl.
func (gl *GroupLocation) ScheduleIDs() []string {
	ids := make([]string, len(gl.Schedules))
	for i, sc := range gl.Schedules {
		ids[i] = sc.ScheduleID
	}
	return ids
}
