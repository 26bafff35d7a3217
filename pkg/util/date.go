package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// DayStart returns midnight of t's calendar day in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// DaysBetween returns how many calendar-day boundaries in loc lie between
// earlier and later. Same day yields 0, adjacent days 1, regardless of the
// clock-time distance. Dates are re-anchored in UTC so DST-shortened days
// still count as exactly one day.
func DaysBetween(earlier, later time.Time, loc *time.Location) int {
	ey, em, ed := earlier.In(loc).Date()
	ly, lm, ld := later.In(loc).Date()
	a := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	b := time.Date(ly, lm, ld, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}
