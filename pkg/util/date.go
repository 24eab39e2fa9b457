package util

import (
	"fmt"
	"time"
)

// ParseDay parses a calendar day in YYYYMMDD or YYYY-MM-DD form.
// The result is midnight UTC of that day.
func ParseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range []string{"20060102", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want YYYYMMDD or YYYY-MM-DD", s)
}

// FormatDay renders a time as YYYYMMDD, the form the quote API accepts.
func FormatDay(t time.Time) string {
	return t.Format("20060102")
}

// DaysBetween lists every calendar day from start to end inclusive.
// Returns nil if end is before start.
func DaysBetween(start, end time.Time) []time.Time {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	if end.Before(start) {
		return nil
	}
	out := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
