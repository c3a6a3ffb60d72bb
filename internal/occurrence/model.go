package occurrence

import (
	"errors"
	"time"

	"github.com/nekogravitycat/group-scheduler/internal/group"
	"github.com/nekogravitycat/group-scheduler/internal/location"
	"github.com/nekogravitycat/group-scheduler/internal/schedule"
)

var (
	ErrNotFound      = errors.New("occurrence record not found")
	ErrAlreadyExists = errors.New("occurrence record already exists")
)

const dateLayout = "2006-01-02"

// Key is the unique key of an occurrence record. An empty LocationID is the
// location-agnostic unassigned pool of a schedule on a date.
type Key struct {
	GroupID    string
	LocationID string
	ScheduleID string
	// Date is the calendar date as YYYY-MM-DD.
	Date string
}

// NewKey builds a key from the calendar date of t.
func NewKey(groupID, locationID, scheduleID string, t time.Time) Key {
	return Key{GroupID: groupID, LocationID: locationID, ScheduleID: scheduleID, Date: t.Format(dateLayout)}
}

// DateValue returns the key date as midnight UTC, the form stored in DATE columns.
func (k Key) DateValue() time.Time {
	t, _ := time.Parse(dateLayout, k.Date)
	return t
}

// Pool returns the unassigned pool key of k's group, schedule and date.
func (k Key) Pool() Key {
	k.LocationID = ""
	return k
}

// Record is a persisted occurrence anchoring resource assignments.
type Record struct {
	ID         string
	GroupID    string
	LocationID string // empty for the unassigned pool
	ScheduleID string
	// OccurrenceDate is midnight UTC of the stored date.
	OccurrenceDate time.Time
	// ScheduledCount is the number of resources requested or scheduled.
	ScheduledCount int
}

func (r *Record) Key() Key {
	return NewKey(r.GroupID, r.LocationID, r.ScheduleID, r.OccurrenceDate)
}

// Candidate is one (group, location, schedule) combination in a catalog.
// It is built once per request and not modified afterwards.
type Candidate struct {
	Group         *group.Group
	GroupLocation *location.GroupLocation
	Schedule      *schedule.Schedule
	Capacity      *location.CapacityConfig
	// Records holds the existing records of this combination in the window.
	Records []*Record
	// StartTimes is empty in lightweight catalogs.
	StartTimes []time.Time
}

func (c *Candidate) LocationID() string {
	return c.GroupLocation.Location.ID
}

// Occurrence is one concrete start of a schedule for a group at a location.
type Occurrence struct {
	GroupID         string
	GroupName       string
	GroupOrder      int
	ParentGroupID   *string
	ParentGroupName string

	GroupLocationID    string
	GroupLocationOrder int
	LocationID         string
	LocationName       string

	ScheduleID    string
	ScheduleName  string
	ScheduleOrder int

	StartTime      time.Time
	OccurrenceDate time.Time

	// RecordID is empty until a backing record exists.
	RecordID string

	MinimumCapacity *int
	DesiredCapacity *int
	MaximumCapacity *int

	// IsSchedulingEnabled is true when the occurrence date is today or later.
	IsSchedulingEnabled bool
}

func (o *Occurrence) Key() Key {
	return NewKey(o.GroupID, o.LocationID, o.ScheduleID, o.OccurrenceDate)
}

// UnassignedCount is the pool count of a group and schedule on a date.
type UnassignedCount struct {
	GroupID        string
	ScheduleID     string
	OccurrenceDate time.Time
	RecordID       string
	Count          int
}

// LocationOption is an entry of the location picklist.
type LocationOption struct {
	ID    string
	Name  string
	Order int
}

// ScheduleOption is an entry of the schedule picklist.
type ScheduleOption struct {
	ID            string
	Name          string
	Order         int
	NextStartTime *time.Time
}
