// Package dateutil provides calendar helpers for Monday-based training weeks.
package dateutil

import "time"

// ISOFormat is the layout used for workout dates everywhere in the app.
const ISOFormat = "2006-01-02"

// MondayOf returns the Monday of the week containing t, at midnight in
// t's location. Weeks run Monday through Sunday, so a Sunday maps to the
// Monday six days earlier.
func MondayOf(t time.Time) time.Time {
	diff := int(t.Weekday()) - 1
	if diff < 0 {
		diff = 6 // Sunday
	}
	m := t.AddDate(0, 0, -diff)
	return time.Date(m.Year(), m.Month(), m.Day(), 0, 0, 0, 0, m.Location())
}

// ISODate formats t as YYYY-MM-DD using its local calendar fields.
func ISODate(t time.Time) string {
	return t.Format(ISOFormat)
}

// ParseISO parses a YYYY-MM-DD string into a time at noon local time.
// Anchoring at noon keeps week-boundary math stable across DST shifts.
func ParseISO(s string) (time.Time, error) {
	t, err := time.ParseInLocation(ISOFormat, s, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(12 * time.Hour), nil
}

// WeekStarts returns the ISO dates of n consecutive Mondays ending with
// the week containing now, oldest first.
func WeekStarts(now time.Time, n int) []string {
	monday := MondayOf(now)
	starts := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		starts = append(starts, ISODate(monday.AddDate(0, 0, -i*7)))
	}
	return starts
}

// FormatRelativeDate renders an ISO date as "Today", "Yesterday", or a
// short weekday+month+day label ("Mon, Feb 24"). Invalid input is
// returned unchanged.
func FormatRelativeDate(dateStr string, now time.Time) string {
	switch dateStr {
	case ISODate(now):
		return "Today"
	case ISODate(now.AddDate(0, 0, -1)):
		return "Yesterday"
	}
	t, err := ParseISO(dateStr)
	if err != nil {
		return dateStr
	}
	return t.Format("Mon, Jan 2")
}

// ShortDate renders an ISO date as a chart label like "Feb 24".
// Invalid input is returned unchanged.
func ShortDate(dateStr string) string {
	t, err := ParseISO(dateStr)
	if err != nil {
		return dateStr
	}
	return t.Format("Jan 2")
}
