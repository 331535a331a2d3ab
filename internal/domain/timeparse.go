package domain

import (
	"strings"
	"time"
)

// Date layouts tried in order; first match wins. Slashes in source data are
// normalized to dashes before matching, since older exports mix separators.
var dateLayouts = []string{"02-01-2006", "2006-01-02"}

// Time layouts tried in order. A missing or unparseable time defaults to
// midnight rather than failing the whole record.
var timeLayouts = []string{"15:04:05", "15:04"}

// TimeNormalizer converts between the fixed local calendar the source data
// uses and the UTC instants the store is keyed by.
type TimeNormalizer struct {
	loc *time.Location
}

// NewTimeNormalizer creates a normalizer for the given local zone.
func NewTimeNormalizer(loc *time.Location) *TimeNormalizer {
	return &TimeNormalizer{loc: loc}
}

// Location returns the fixed local zone.
func (n *TimeNormalizer) Location() *time.Location {
	return n.loc
}

// ParseFlexibleDate parses DD-MM-YYYY or YYYY-MM-DD (slash separators
// tolerated) into local midnight of that calendar day. The second return is
// false on total failure; parse failures never surface as errors.
func (n *TimeNormalizer) ParseFlexibleDate(s string) (time.Time, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "/", "-")
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, n.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseFlexibleDateTime combines a flexible date with an HH:MM:SS or HH:MM
// time string. An unparseable time falls back to midnight; an unparseable
// date yields SentinelMin so sort keys stay total instead of panicking on
// malformed upstream rows.
func (n *TimeNormalizer) ParseFlexibleDateTime(dateStr, timeStr string) time.Time {
	day, ok := n.ParseFlexibleDate(dateStr)
	if !ok {
		return n.SentinelMin()
	}

	timeStr = strings.TrimSpace(timeStr)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, timeStr); err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, n.loc)
		}
	}
	return day
}

// SentinelMin is the minimum instant substituted for unparseable sort keys.
// It keeps listing and sorting robust against bad data; it is not a
// correctness guarantee for the record itself.
func (n *TimeNormalizer) SentinelMin() time.Time {
	return time.Date(1900, time.January, 1, 0, 0, 0, 0, n.loc)
}

// DayRangeInclusive returns the UTC instants of local 00:00:00 and 23:59:59
// of the given calendar day.
func (n *TimeNormalizer) DayRangeInclusive(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, n.loc)
	end := start.AddDate(0, 0, 1).Add(-time.Second)
	return start.UTC(), end.UTC()
}

// DayRangeExclusive returns the UTC half-open window covering the local
// calendar days startDay through endDay: local midnight of startDay up to,
// exclusive, local midnight of the day after endDay. This is the store-query
// convention; DayRangeInclusive is the display convention.
func (n *TimeNormalizer) DayRangeExclusive(startDay, endDay time.Time) (time.Time, time.Time) {
	start := time.Date(startDay.Year(), startDay.Month(), startDay.Day(), 0, 0, 0, 0, n.loc)
	stop := time.Date(endDay.Year(), endDay.Month(), endDay.Day(), 0, 0, 0, 0, n.loc).AddDate(0, 0, 1)
	return start.UTC(), stop.UTC()
}
