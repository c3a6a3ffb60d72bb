package http

import (
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/group-scheduler/internal/daterange"
	"github.com/nekogravitycat/group-scheduler/internal/group"
	"github.com/nekogravitycat/group-scheduler/internal/occurrence"
	"github.com/nekogravitycat/group-scheduler/internal/scheduling"
)

const dateLayout = "2006-01-02"

// FiltersRequest is the board selection. Malformed ids and ranges are
// dropped rather than rejected; the service falls back to defaults.
type FiltersRequest struct {
	GroupIDs    []string `json:"group_ids"`
	LocationIDs []string `json:"location_ids"`
	ScheduleIDs []string `json:"schedule_ids"`
	// DateRange uses the form Type|Count|Unit|Lower|Upper, e.g. "Next|6|Week||".
	DateRange string `json:"date_range"`
}

func (r FiltersRequest) toFilters() scheduling.Filters {
	return scheduling.Filters{
		GroupIDs:    validIDs(r.GroupIDs),
		LocationIDs: validIDs(r.LocationIDs),
		ScheduleIDs: validIDs(r.ScheduleIDs),
		DateRange:   daterange.Parse(r.DateRange, time.UTC),
	}
}

// CloneSettingsRequest selects what to clone. Weeks are YYYY-MM-DD dates.
type CloneSettingsRequest struct {
	SourceWeek      string   `json:"source_week"`
	DestinationWeek string   `json:"destination_week"`
	GroupIDs        []string `json:"group_ids"`
	LocationIDs     []string `json:"location_ids"`
	ScheduleIDs     []string `json:"schedule_ids"`
}

func (r CloneSettingsRequest) toSettings() scheduling.CloneSettings {
	return scheduling.CloneSettings{
		SourceWeek:      parseDate(r.SourceWeek),
		DestinationWeek: parseDate(r.DestinationWeek),
		GroupIDs:        validIDs(r.GroupIDs),
		LocationIDs:     validIDs(r.LocationIDs),
		ScheduleIDs:     validIDs(r.ScheduleIDs),
	}
}

// CloneRequest carries the board filters, whose groups are cloned when the
// settings select none.
type CloneRequest struct {
	Filters  FiltersRequest       `json:"filters"`
	Settings CloneSettingsRequest `json:"settings"`
}

type OccurrenceRecordRequest struct {
	GroupID        string `json:"group_id" binding:"required,uuid"`
	LocationID     string `json:"location_id" binding:"omitempty,uuid"`
	ScheduleID     string `json:"schedule_id" binding:"required,uuid"`
	OccurrenceDate string `json:"occurrence_date" binding:"required"`
}

type OccurrenceRecordResponse struct {
	RecordID            *string `json:"record_id"`
	IsSchedulingEnabled bool    `json:"is_scheduling_enabled"`
}

type GroupTag struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ParentName string `json:"parent_name,omitempty"`
}

type LocationOptionResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ScheduleOptionResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	NextStartTime *time.Time `json:"next_start_time"`
}

type WindowResponse struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      int    `json:"days"`
	Label     string `json:"label"`
}

type FiltersResponse struct {
	GroupIDs    []string `json:"group_ids"`
	LocationIDs []string `json:"location_ids"`
	ScheduleIDs []string `json:"schedule_ids"`
	DateRange   string   `json:"date_range"`
}

type RefinementResponse struct {
	Filters            FiltersResponse          `json:"filters"`
	Window             WindowResponse           `json:"window"`
	Groups             []GroupTag               `json:"groups"`
	AvailableLocations []LocationOptionResponse `json:"available_locations"`
	SelectedLocations  []LocationOptionResponse `json:"selected_locations"`
	AvailableSchedules []ScheduleOptionResponse `json:"available_schedules"`
	SelectedSchedules  []ScheduleOptionResponse `json:"selected_schedules"`
}

type OccurrenceResponse struct {
	Group               GroupTag  `json:"group"`
	GroupLocationID     string    `json:"group_location_id"`
	LocationID          string    `json:"location_id"`
	LocationName        string    `json:"location_name"`
	ScheduleID          string    `json:"schedule_id"`
	ScheduleName        string    `json:"schedule_name"`
	StartTime           time.Time `json:"start_time"`
	OccurrenceDate      string    `json:"occurrence_date"`
	RecordID            *string   `json:"record_id"`
	MinimumCapacity     *int      `json:"minimum_capacity"`
	DesiredCapacity     *int      `json:"desired_capacity"`
	MaximumCapacity     *int      `json:"maximum_capacity"`
	IsSchedulingEnabled bool      `json:"is_scheduling_enabled"`
}

type DateLabelResponse struct {
	Date  string `json:"date"`
	Label string `json:"label"`
}

type UnassignedCountResponse struct {
	GroupID        string `json:"group_id"`
	ScheduleID     string `json:"schedule_id"`
	OccurrenceDate string `json:"occurrence_date"`
	RecordID       string `json:"record_id"`
	Count          int    `json:"count"`
}

type BoardResponse struct {
	RefinementResponse
	Occurrences []OccurrenceResponse      `json:"occurrences"`
	Dates       []DateLabelResponse       `json:"dates"`
	Locations   []LocationOptionResponse  `json:"locations"`
	Schedules   []ScheduleOptionResponse  `json:"schedules"`
	Unassigned  []UnassignedCountResponse `json:"unassigned"`
	Previous    string                    `json:"previous_range"`
	Next        string                    `json:"next_range"`
}

type WeekOptionResponse struct {
	EndDate string `json:"end_date"`
	Label   string `json:"label"`
}

type CloneSettingsResponse struct {
	SourceWeek      string   `json:"source_week"`
	DestinationWeek string   `json:"destination_week"`
	GroupIDs        []string `json:"group_ids"`
	LocationIDs     []string `json:"location_ids"`
	ScheduleIDs     []string `json:"schedule_ids"`
}

type CloneOptionsResponse struct {
	Settings           CloneSettingsResponse    `json:"settings"`
	SourceWeeks        []WeekOptionResponse     `json:"source_weeks"`
	DestinationWeeks   []WeekOptionResponse     `json:"destination_weeks"`
	AvailableGroups    []GroupTag               `json:"available_groups"`
	SelectedGroups     []GroupTag               `json:"selected_groups"`
	AvailableLocations []LocationOptionResponse `json:"available_locations"`
	SelectedLocations  []LocationOptionResponse `json:"selected_locations"`
	AvailableSchedules []ScheduleOptionResponse `json:"available_schedules"`
	SelectedSchedules  []ScheduleOptionResponse `json:"selected_schedules"`
}

type CloneOutcomeResponse struct {
	SourceRange       string `json:"source_range"`
	DestinationRange  string `json:"destination_range"`
	OccurrencesCloned int    `json:"occurrences_cloned"`
	IndividualsCloned int    `json:"individuals_cloned"`
	HasEligible       bool   `json:"has_eligible"`
	AlreadyScheduled  int    `json:"already_scheduled_skipped"`
	OverCapacity      int    `json:"over_capacity_skipped"`
	Blackout          int    `json:"blackout_skipped"`
	Failed            int    `json:"failed"`
	Explanation       string `json:"explanation"`
}

type AutoScheduleResponse struct {
	Board            BoardResponse `json:"board"`
	RecordsCreated   int           `json:"records_created"`
	AssignmentFailed bool          `json:"assignment_failed"`
}

func NewFiltersResponse(f scheduling.Filters) FiltersResponse {
	return FiltersResponse{
		GroupIDs:    nonNil(f.GroupIDs),
		LocationIDs: nonNil(f.LocationIDs),
		ScheduleIDs: nonNil(f.ScheduleIDs),
		DateRange:   f.DateRange.String(),
	}
}

func NewRefinementResponse(r *scheduling.Refinement) RefinementResponse {
	return RefinementResponse{
		Filters: NewFiltersResponse(r.Filters),
		Window: WindowResponse{
			StartDate: r.Window.Start.Format(dateLayout),
			EndDate:   r.Window.InclusiveEnd.Format(dateLayout),
			Days:      r.Window.Days,
			Label:     r.Window.Label,
		},
		Groups:             groupTags(r.Groups),
		AvailableLocations: locationOptions(r.AvailableLocations),
		SelectedLocations:  locationOptions(r.SelectedLocations),
		AvailableSchedules: scheduleOptions(r.AvailableSchedules),
		SelectedSchedules:  scheduleOptions(r.SelectedSchedules),
	}
}

func NewBoardResponse(b *scheduling.Board) BoardResponse {
	resp := BoardResponse{
		RefinementResponse: NewRefinementResponse(&b.Refinement),
		Occurrences:        make([]OccurrenceResponse, len(b.Occurrences)),
		Dates:              make([]DateLabelResponse, len(b.Dates)),
		Locations:          locationOptions(b.Locations),
		Schedules:          scheduleOptions(b.Schedules),
		Unassigned:         make([]UnassignedCountResponse, len(b.Unassigned)),
		Previous:           b.Previous.String(),
		Next:               b.Next.String(),
	}
	for i, o := range b.Occurrences {
		resp.Occurrences[i] = NewOccurrenceResponse(o)
	}
	for i, d := range b.Dates {
		resp.Dates[i] = DateLabelResponse{Date: d.Date.Format(dateLayout), Label: d.Label}
	}
	for i, u := range b.Unassigned {
		resp.Unassigned[i] = UnassignedCountResponse{
			GroupID:        u.GroupID,
			ScheduleID:     u.ScheduleID,
			OccurrenceDate: u.OccurrenceDate.Format(dateLayout),
			RecordID:       u.RecordID,
			Count:          u.Count,
		}
	}
	return resp
}

func NewOccurrenceResponse(o occurrence.Occurrence) OccurrenceResponse {
	resp := OccurrenceResponse{
		Group:               GroupTag{ID: o.GroupID, Name: o.GroupName, ParentName: o.ParentGroupName},
		GroupLocationID:     o.GroupLocationID,
		LocationID:          o.LocationID,
		LocationName:        o.LocationName,
		ScheduleID:          o.ScheduleID,
		ScheduleName:        o.ScheduleName,
		StartTime:           o.StartTime,
		OccurrenceDate:      o.OccurrenceDate.Format(dateLayout),
		MinimumCapacity:     o.MinimumCapacity,
		DesiredCapacity:     o.DesiredCapacity,
		MaximumCapacity:     o.MaximumCapacity,
		IsSchedulingEnabled: o.IsSchedulingEnabled,
	}
	if o.RecordID != "" {
		id := o.RecordID
		resp.RecordID = &id
	}
	return resp
}

func NewCloneOptionsResponse(o *scheduling.CloneOptions) CloneOptionsResponse {
	resp := CloneOptionsResponse{
		Settings: CloneSettingsResponse{
			SourceWeek:      formatDate(o.Settings.SourceWeek),
			DestinationWeek: formatDate(o.Settings.DestinationWeek),
			GroupIDs:        nonNil(o.Settings.GroupIDs),
			LocationIDs:     nonNil(o.Settings.LocationIDs),
			ScheduleIDs:     nonNil(o.Settings.ScheduleIDs),
		},
		SourceWeeks:        weekOptions(o.SourceWeeks),
		DestinationWeeks:   weekOptions(o.DestinationWeeks),
		AvailableGroups:    groupTags(o.AvailableGroups),
		SelectedGroups:     groupTags(o.SelectedGroups),
		AvailableLocations: locationOptions(o.AvailableLocations),
		SelectedLocations:  locationOptions(o.SelectedLocations),
		AvailableSchedules: scheduleOptions(o.AvailableSchedules),
		SelectedSchedules:  scheduleOptions(o.SelectedSchedules),
	}
	return resp
}

func NewCloneOutcomeResponse(o *scheduling.CloneOutcome) CloneOutcomeResponse {
	return CloneOutcomeResponse{
		SourceRange:       o.SourceRange,
		DestinationRange:  o.DestinationRange,
		OccurrencesCloned: o.OccurrencesCloned,
		IndividualsCloned: o.IndividualsCloned,
		HasEligible:       o.HasEligible,
		AlreadyScheduled:  o.Totals.AlreadyScheduled,
		OverCapacity:      o.Totals.OverCapacity,
		Blackout:          o.Totals.Blackout,
		Failed:            o.Failed,
		Explanation:       o.Explanation,
	}
}

func groupTags(groups []*group.Group) []GroupTag {
	tags := make([]GroupTag, len(groups))
	for i, g := range groups {
		tags[i] = GroupTag{ID: g.ID, Name: g.Name, ParentName: g.ParentGroupName}
	}
	return tags
}

func locationOptions(opts []occurrence.LocationOption) []LocationOptionResponse {
	out := make([]LocationOptionResponse, len(opts))
	for i, o := range opts {
		out[i] = LocationOptionResponse{ID: o.ID, Name: o.Name}
	}
	return out
}

func scheduleOptions(opts []occurrence.ScheduleOption) []ScheduleOptionResponse {
	out := make([]ScheduleOptionResponse, len(opts))
	for i, o := range opts {
		out[i] = ScheduleOptionResponse{ID: o.ID, Name: o.Name, NextStartTime: o.NextStartTime}
	}
	return out
}

func weekOptions(opts []scheduling.WeekOption) []WeekOptionResponse {
	out := make([]WeekOptionResponse, len(opts))
	for i, o := range opts {
		out[i] = WeekOptionResponse{EndDate: o.EndDate.Format(dateLayout), Label: o.Label}
	}
	return out
}

// validIDs keeps the well-formed UUIDs of ids.
func validIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
