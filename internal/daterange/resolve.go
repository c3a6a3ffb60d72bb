package daterange

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	delimiter  = "|"
	dateLayout = "2006-01-02"
	// labelLayout renders dates the way the scheduler board shows them.
	labelLayout = "1/2/2006"
)

// NewDateRange returns an explicit range covering lower..upper (inclusive).
func NewDateRange(lower, upper time.Time) Range {
	l, u := DateOf(lower), DateOf(upper)
	return Range{Type: TypeDateRange, LowerDate: &l, UpperDate: &u}
}

// DateOf truncates t to midnight in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Resolve turns r into a concrete window relative to now. If r is unusable the
// default is tried, and if that fails too the fixed "next 6 weeks" fallback
// (today through today+35 days) is returned. The result always has Start <= End.
func Resolve(r Range, def Range, now time.Time) Window {
	if w, ok := resolve(r, now); ok {
		return w
	}
	if w, ok := resolve(def, now); ok {
		return w
	}
	return Fallback(now)
}

// Fallback is the window substituted for an unusable selection: today through
// today+35 days, labelled like the default range.
func Fallback(now time.Time) Window {
	today := DateOf(now)
	return newWindow(today, today.AddDate(0, 0, fallbackDays), DefaultRange.Label())
}

func resolve(r Range, now time.Time) (Window, bool) {
	start, end, ok := r.bounds(now)
	if !ok {
		return Window{}, false
	}
	return newWindow(start, end, r.Label()), true
}

// newWindow builds a window from an inclusive start and inclusive end date.
func newWindow(start, inclusiveEnd time.Time, label string) Window {
	end := inclusiveEnd.AddDate(0, 0, 1)
	return Window{
		Start:        start,
		InclusiveEnd: inclusiveEnd,
		End:          end,
		Days:         DaysBetween(start, end),
		Label:        label,
	}
}

// bounds returns the inclusive start and inclusive end dates of r.
func (r Range) bounds(now time.Time) (time.Time, time.Time, bool) {
	today := DateOf(now)

	if r.Type == TypeDateRange {
		if r.LowerDate == nil || r.UpperDate == nil {
			return time.Time{}, time.Time{}, false
		}
		lower := sameDateIn(*r.LowerDate, now.Location())
		upper := sameDateIn(*r.UpperDate, now.Location())
		if upper.Before(lower) {
			return time.Time{}, time.Time{}, false
		}
		return lower, upper, true
	}

	if !r.Unit.valid() {
		return time.Time{}, time.Time{}, false
	}

	var start, end time.Time // end is exclusive here
	switch r.Type {
	case TypeCurrent:
		start = r.Unit.startOf(today)
		end = r.Unit.add(start, 1)
	case TypeNext:
		if r.Count < 1 {
			return time.Time{}, time.Time{}, false
		}
		start = today
		end = r.Unit.add(today, r.Count)
	case TypeUpcoming:
		if r.Count < 1 {
			return time.Time{}, time.Time{}, false
		}
		start = r.Unit.add(r.Unit.startOf(today), 1)
		end = r.Unit.add(start, r.Count)
	case TypeLast:
		if r.Count < 1 {
			return time.Time{}, time.Time{}, false
		}
		end = today.AddDate(0, 0, 1)
		start = r.Unit.add(end, -r.Count)
	case TypePrevious:
		if r.Count < 1 {
			return time.Time{}, time.Time{}, false
		}
		end = r.Unit.startOf(today)
		start = r.Unit.add(end, -r.Count)
	default:
		return time.Time{}, time.Time{}, false
	}

	return start, end.AddDate(0, 0, -1), true
}

// IsValid reports whether r resolves on its own, without the default.
func (r Range) IsValid() bool {
	_, _, ok := r.bounds(time.Now())
	return ok
}

// Label renders the friendly name of r, e.g. "Next 6 Weeks" or "5/31/2024 - 6/6/2024".
func (r Range) Label() string {
	if r.Type == TypeDateRange {
		if r.LowerDate == nil || r.UpperDate == nil {
			return ""
		}
		lower := r.LowerDate.Format(labelLayout)
		upper := r.UpperDate.Format(labelLayout)
		if lower == upper {
			return lower
		}
		return lower + " - " + upper
	}
	if r.Type == TypeCurrent {
		return fmt.Sprintf("Current %s", r.Unit)
	}
	if r.Count == 1 {
		return fmt.Sprintf("%s %s", r.Type, r.Unit)
	}
	return fmt.Sprintf("%s %d %ss", r.Type, r.Count, r.Unit)
}

// String encodes r in the delimited form Type|Count|Unit|Lower|Upper.
func (r Range) String() string {
	parts := make([]string, 5)
	parts[0] = string(r.Type)
	if r.Count > 0 {
		parts[1] = strconv.Itoa(r.Count)
	}
	parts[2] = string(r.Unit)
	if r.LowerDate != nil {
		parts[3] = r.LowerDate.Format(dateLayout)
	}
	if r.UpperDate != nil {
		parts[4] = r.UpperDate.Format(dateLayout)
	}
	return strings.Join(parts, delimiter)
}

// Parse decodes the delimited form produced by String. Unknown or malformed
// parts are left empty; Resolve treats such a range as unusable.
func Parse(s string, loc *time.Location) Range {
	var r Range
	parts := strings.Split(strings.TrimSpace(s), delimiter)
	if len(parts) == 0 || parts[0] == "" {
		return r
	}
	r.Type = Type(parts[0])
	if len(parts) > 1 {
		if n, err := strconv.Atoi(parts[1]); err == nil {
			r.Count = n
		}
	}
	if len(parts) > 2 {
		r.Unit = Unit(parts[2])
	}
	if len(parts) > 3 {
		r.LowerDate = parseDate(parts[3], loc)
	}
	if len(parts) > 4 {
		r.UpperDate = parseDate(parts[4], loc)
	}
	return r
}

// MarshalText implements encoding.TextMarshaler.
func (r Range) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It never fails: bad input
// yields an unusable range that Resolve replaces with the default.
func (r *Range) UnmarshalText(b []byte) error {
	*r = Parse(string(b), time.Local)
	return nil
}

func parseDate(s string, loc *time.Location) *time.Time {
	if s == "" {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return nil
	}
	return &t
}

// sameDateIn keeps the calendar date of t but anchors it at midnight in loc.
func sameDateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func (u Unit) valid() bool {
	switch u {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return true
	}
	return false
}

// startOf returns the first day of the unit containing day. Weeks start on Monday.
func (u Unit) startOf(day time.Time) time.Time {
	switch u {
	case UnitWeek:
		return day.AddDate(0, 0, -daysSinceMonday(day))
	case UnitMonth:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	case UnitYear:
		return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, day.Location())
	}
	return day
}

func (u Unit) add(t time.Time, n int) time.Time {
	switch u {
	case UnitWeek:
		return t.AddDate(0, 0, 7*n)
	case UnitMonth:
		return t.AddDate(0, n, 0)
	case UnitYear:
		return t.AddDate(n, 0, 0)
	}
	return t.AddDate(0, 0, n)
}

func daysSinceMonday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// EndOfWeek returns the Sunday closing the Monday-based week containing t.
// Clone weeks are identified by this date.
func EndOfWeek(t time.Time) time.Time {
	day := DateOf(t)
	return day.AddDate(0, 0, 6-daysSinceMonday(day))
}

// DaysBetween counts calendar days from a to b, ignoring DST shifts.
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
