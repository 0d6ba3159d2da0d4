package utils

import (
	"fmt"
	"time"
)

const (
	// DayLayout is the storage format of a calendar day.
	DayLayout = "2006-01-02"
	// DisplayDayLayout is the day format clinicians type (GG.AA.YYYY).
	DisplayDayLayout = "02.01.2006"
	ClockLayout      = "15:04"
)

// TimeToMinutes converts time string to minutes since midnight
func TimeToMinutes(timeStr string) (int, error) {
	t, err := time.Parse(ClockLayout, timeStr)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", timeStr, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// MinutesToTime is the inverse of TimeToMinutes.
func MinutesToTime(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// MinuteOfDay returns minutes since midnight of t in its own location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// DayKey returns the calendar day of t in loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(DayLayout)
}

// ParseDay accepts both YYYY-MM-DD and DD.MM.YYYY and returns the storage form.
func ParseDay(s string) (string, error) {
	for _, layout := range []string{DayLayout, DisplayDayLayout} {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format(DayLayout), nil
		}
	}
	return "", fmt.Errorf("invalid day %q: expected YYYY-MM-DD or DD.MM.YYYY", s)
}

// DaysBetween lists every day from start to end inclusive. Both must be in DayLayout.
// A positive limit rejects ranges longer than limit days before any are listed.
func DaysBetween(start, end string, limit int) ([]string, error) {
	from, err := time.Parse(DayLayout, start)
	if err != nil {
		return nil, fmt.Errorf("invalid start day: %w", err)
	}
	to, err := time.Parse(DayLayout, end)
	if err != nil {
		return nil, fmt.Errorf("invalid end day: %w", err)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("end day %s is before start day %s", end, start)
	}
	if n := int(to.Sub(from).Hours()/24) + 1; limit > 0 && n > limit {
		return nil, fmt.Errorf("range %s..%s spans %d days, at most %d allowed", start, end, n, limit)
	}

	var days []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DayLayout))
	}
	return days, nil
}
