package utils

import (
	"time"
)

const displayDateLayout = "2 January 2006"

// FormatDate returns the date in the portal's display layout, in local time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(time.Local).Format(displayDateLayout)
}

// FormatDatePtr formats pointer values, returning "" for nil.
func FormatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatDate(*t)
}

// DaysUntil returns whole days remaining until deadline, rounding partial
// days up. Past deadlines return a negative count.
func DaysUntil(now, deadline time.Time) int {
	d := deadline.Sub(now)
	days := int(d / (24 * time.Hour))
	if d > 0 && d%(24*time.Hour) != 0 {
		days++
	}
	return days
}
