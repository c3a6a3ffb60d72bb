package daterange

import "time"

// Type selects how a sliding date range is anchored relative to today.
type Type string

const (
	TypePrevious  Type = "Previous"
	TypeLast      Type = "Last"
	TypeCurrent   Type = "Current"
	TypeNext      Type = "Next"
	TypeUpcoming  Type = "Upcoming"
	TypeDateRange Type = "DateRange"
)

// Unit is the time unit a relative range counts in.
type Unit string

const (
	UnitDay   Unit = "Day"
	UnitWeek  Unit = "Week"
	UnitMonth Unit = "Month"
	UnitYear  Unit = "Year"
)

// Range is a relative-or-absolute window description, e.g. "next 6 weeks"
// or an explicit pair of dates. The zero value is an unusable range.
type Range struct {
	Type      Type
	Count     int
	Unit      Unit
	LowerDate *time.Time
	UpperDate *time.Time
}

// Window is a resolved Range. Start is inclusive; End is the start of the day
// after InclusiveEnd, so storage queries use [Start, End).
type Window struct {
	Start        time.Time
	InclusiveEnd time.Time
	End          time.Time
	Days         int
	Label        string
}

// Contains reports whether t lies in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// DefaultRange is the window used when the caller has not chosen one.
var DefaultRange = Range{Type: TypeNext, Count: 6, Unit: UnitWeek}

// fallbackDays is the span of the hard fallback window (today through today+35).
const fallbackDays = 35
