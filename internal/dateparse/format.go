package dateparse

import "time"

// FormatDateTime renders "Mon, Jan 5, 2026, 2:00 PM".
func FormatDateTime(t time.Time) string {
	return t.Format("Mon, Jan 2, 2006, 3:04 PM")
}

// FormatDate renders "Monday, January 5".
func FormatDate(t time.Time) string {
	return t.Format("Monday, January 2")
}
