// Package biztime provides time utilities for business logic.
// All storage and transport use UTC; implicit Local timezone is prohibited.
package biztime

import "time"

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// Location returns the business timezone used for scheduled jobs.
func Location() *time.Location {
	return time.UTC
}

// StartOfDayUTC returns the UTC midnight for the given time.
func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
