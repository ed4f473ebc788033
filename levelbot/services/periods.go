package services

import (
	"fmt"
	"time"
)

// Period keys pin every record to a calendar slot in one reference timezone.
// Using the server's local zone would shift resets whenever the host moves,
// so the zone comes from configuration and defaults to UTC.

// DailyKey formats t's calendar date in loc.
func DailyKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// WeeklyKey formats t's ISO-8601 week (Monday start, week 1 holds the year's
// first Thursday) in loc.
func WeeklyKey(t time.Time, loc *time.Location) string {
	year, week := t.In(loc).ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// PeriodKey picks the key for a quest cadence.
func PeriodKey(questType string, t time.Time, loc *time.Location) string {
	if questType == "weekly" {
		return WeeklyKey(t, loc)
	}
	return DailyKey(t, loc)
}
