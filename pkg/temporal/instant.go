// Package temporal parses the dataset's date and start-time columns.
package temporal

import (
	"strconv"
	"strings"
	"time"
)

// ParseInstant combines a date (DD/MM/YYYY, YYYY-MM-DD or DD-MM-YYYY) and a clock
// time (HH:MM) into an instant in loc. ok is false for anything malformed or out of
// range.
func ParseInstant(dateText, clockText string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	year, month, day, ok := parseDate(strings.TrimSpace(dateText))
	if !ok {
		return time.Time{}, false
	}
	hour, minute, ok := parseClock(strings.TrimSpace(clockText))
	if !ok {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc), true
}

// InWindow reports whether t lies in [start, end]. An unparsed instant never does.
func InWindow(t time.Time, ok bool, start, end time.Time) bool {
	if !ok {
		return false
	}
	return !t.Before(start) && !t.After(end)
}

func parseDate(s string) (year, month, day int, ok bool) {
	var parts []int
	switch {
	case strings.Contains(s, "/"):
		if parts, ok = numbers(s, "/", 3); !ok {
			return 0, 0, 0, false
		}
		day, month, year = parts[0], parts[1], parts[2]
	case strings.Contains(s, "-"):
		if parts, ok = numbers(s, "-", 3); !ok {
			return 0, 0, 0, false
		}
		if parts[0] > 999 {
			year, month, day = parts[0], parts[1], parts[2]
		} else {
			day, month, year = parts[0], parts[1], parts[2]
		}
	default:
		return 0, 0, 0, false
	}
	if month < 1 || month > 12 || day < 1 || day > daysIn(year, month) {
		return 0, 0, 0, false
	}
	return year, month, day, true
}

func parseClock(s string) (hour, minute int, ok bool) {
	hm, ok := numbers(s, ":", 2)
	if !ok {
		return 0, 0, false
	}
	hour, minute = hm[0], hm[1]
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// numbers splits s by sep into exactly n non-negative integers.
func numbers(s, sep string, n int) ([]int, bool) {
	fields := strings.Split(s, sep)
	if len(fields) != n {
		return nil, false
	}
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || v < 0 {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
