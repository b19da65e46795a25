package entry

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

var dayLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// Day returns midnight UTC of the UTC calendar date containing t.
// All bucketing of entries into days goes through here.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// nextDay returns the exclusive upper bound of day's window.
func nextDay(day time.Time) time.Time {
	return Day(day).AddDate(0, 0, 1)
}

// ParseDay accepts YYYY-MM-DD or an ISO 8601 timestamp and returns its UTC day.
// Timestamps without an offset are read as UTC.
func ParseDay(s string) (time.Time, error) {
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// dayNumber is the count of days since the Unix epoch.
func dayNumber(day time.Time) int64 {
	return Day(day).Unix() / 86400
}
