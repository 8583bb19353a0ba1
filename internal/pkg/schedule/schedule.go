// Package schedule parses section schedule descriptors such as
// "Mon/Wed 10:00-11:30" into per-day minute intervals and detects overlaps
// between interval sets. It has no side effects and performs no I/O.
package schedule

import (
	"strconv"
	"strings"
	"time"
)

// Interval is a half-open [Start, End) time range on a single weekday,
// expressed in minutes since midnight.
type Interval struct {
	Day   time.Weekday
	Start int
	End   int
}

var dayNames = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
	"sun": time.Sunday,
}

// Parse converts a schedule descriptor into a list of intervals, one per day.
// The expected format is "Mon/Wed 10:00-11:30": slash-separated day
// abbreviations, a space, and a 24-hour HH:MM-HH:MM range.
//
// Malformed descriptors yield nil rather than an error: a section whose
// schedule cannot be parsed simply cannot conflict with anything, and callers
// must not abort on it.
func Parse(descriptor string) []Interval {
	fields := strings.Fields(strings.TrimSpace(descriptor))
	if len(fields) != 2 {
		return nil
	}

	start, end, ok := parseTimeRange(fields[1])
	if !ok {
		return nil
	}

	var intervals []Interval
	for _, name := range strings.Split(fields[0], "/") {
		day, ok := parseDay(name)
		if !ok {
			return nil
		}
		intervals = append(intervals, Interval{Day: day, Start: start, End: end})
	}
	return intervals
}

// Overlaps reports whether any interval in a collides with any interval in b.
// Two intervals collide when they fall on the same day and satisfy
// startA < endB && endA > startB; touching endpoints do not conflict.
func Overlaps(a, b []Interval) bool {
	for _, x := range a {
		for _, y := range b {
			if x.Day == y.Day && x.Start < y.End && x.End > y.Start {
				return true
			}
		}
	}
	return false
}

// parseDay accepts full day names or three-letter abbreviations, any case.
func parseDay(name string) (time.Weekday, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if len(key) > 3 {
		key = key[:3]
	}
	day, ok := dayNames[key]
	return day, ok
}

// parseTimeRange parses "HH:MM-HH:MM" into start/end minutes since midnight.
func parseTimeRange(s string) (int, int, bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, ok := parseClock(parts[0])
	if !ok {
		return 0, 0, false
	}
	end, ok := parseClock(parts[1])
	if !ok || end <= start {
		return 0, 0, false
	}
	return start, end, true
}

func parseClock(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}
