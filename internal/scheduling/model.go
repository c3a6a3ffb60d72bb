package scheduling

import (
	"time"

	"github.com/nekogravitycat/group-scheduler/internal/assignment"
	"github.com/nekogravitycat/group-scheduler/internal/daterange"
	"github.com/nekogravitycat/group-scheduler/internal/group"
	"github.com/nekogravitycat/group-scheduler/internal/occurrence"
)

// unknownRange labels the weeks of a clone that never ran.
const unknownRange = "unknown"

// Filters is the board selection. It is stored as the actor's preference.
type Filters struct {
	GroupIDs    []string        `json:"group_ids"`
	LocationIDs []string        `json:"location_ids"`
	ScheduleIDs []string        `json:"schedule_ids"`
	DateRange   daterange.Range `json:"date_range"`
}

// CloneSettings selects what to clone. Weeks are identified by their Sunday.
// Empty GroupIDs clones every group visible on the board.
type CloneSettings struct {
	SourceWeek      *time.Time `json:"source_week,omitempty"`
	DestinationWeek *time.Time `json:"destination_week,omitempty"`
	GroupIDs        []string   `json:"group_ids"`
	LocationIDs     []string   `json:"location_ids"`
	ScheduleIDs     []string   `json:"schedule_ids"`
}

func (cs CloneSettings) isZero() bool {
	return cs.SourceWeek == nil && cs.DestinationWeek == nil &&
		len(cs.GroupIDs) == 0 && len(cs.LocationIDs) == 0 && len(cs.ScheduleIDs) == 0
}

// Refinement is a validated filter selection with its picklists.
type Refinement struct {
	Filters Filters
	Window  daterange.Window
	// Groups are the selected groups the actor may schedule.
	Groups []*group.Group

	AvailableLocations []occurrence.LocationOption
	SelectedLocations  []occurrence.LocationOption
	AvailableSchedules []occurrence.ScheduleOption
	SelectedSchedules  []occurrence.ScheduleOption
}

// DateLabel heads a day column on the board.
type DateLabel struct {
	Date  time.Time
	Label string
}

// Board is everything the scheduler page shows for a selection.
type Board struct {
	Refinement

	Occurrences []occurrence.Occurrence
	Dates       []DateLabel
	// Locations and Schedules are the picklist entries that have occurrences.
	Locations  []occurrence.LocationOption
	Schedules  []occurrence.ScheduleOption
	Unassigned []occurrence.UnassignedCount

	// Previous and Next are windows of the same length either side.
	Previous daterange.Range
	Next     daterange.Range
}

// WeekOption is a selectable clone week.
type WeekOption struct {
	EndDate time.Time
	Label   string
}

// CloneOptions backs the clone dialog.
type CloneOptions struct {
	Settings CloneSettings

	SourceWeeks      []WeekOption
	DestinationWeeks []WeekOption

	AvailableGroups []*group.Group
	SelectedGroups  []*group.Group

	AvailableLocations []occurrence.LocationOption
	SelectedLocations  []occurrence.LocationOption
	AvailableSchedules []occurrence.ScheduleOption
	SelectedSchedules  []occurrence.ScheduleOption
}

// CloneOutcome summarises a clone.
type CloneOutcome struct {
	SourceRange      string
	DestinationRange string

	OccurrencesCloned int
	IndividualsCloned int
	// HasEligible is false when no source occurrence had a destination match.
	HasEligible bool

	Totals assignment.CopyResult
	// Failed counts pairs whose copy returned an error.
	Failed      int
	Explanation string
}

// AutoScheduleResult is the refreshed board after auto scheduling.
type AutoScheduleResult struct {
	Board            *Board
	RecordsCreated   int
	AssignmentFailed bool
}
