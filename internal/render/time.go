package render

import "time"

const displayLayout = "Jan 2, 2006, 3:04:05 PM"

// FormatTime renders a scan timestamp in loc, or "Unknown" when unset.
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "Unknown"
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(displayLayout)
}
