// Package dateparse parses the points in time accepted by --since and
// --before style flags. Every relative form counts backwards from now.
package dateparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseSince parses a point in the past using the current time as reference.
//
// Supported formats:
//   - Exact dates: "2026-03-01" (local midnight)
//   - Timestamps: "2026-03-01T10:00:00Z"
//   - Durations: "90s", "15m", "2h30m"
//   - Relative days, weeks, months: "3d", "2w", "1mo"
//   - Day names: "monday", ... (most recent, today excluded)
//   - Keywords: "today", "yesterday"
func ParseSince(input string) (time.Time, error) {
	return ParseSinceFrom(input, time.Now())
}

// ParseSinceFrom parses input relative to the given reference time.
// This variant enables deterministic testing with a fixed "now".
func ParseSinceFrom(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return time.Time{}, fmt.Errorf("empty date input")
	}

	if t, err := time.ParseInLocation("2006-01-02", input, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, strings.ToUpper(input)); err == nil {
		return t, nil
	}

	switch input {
	case "today":
		return midnight(now), nil
	case "yesterday":
		return midnight(now).AddDate(0, 0, -1), nil
	}

	// Relative offsets: Nd, Nw, Nmo
	for _, unit := range []string{"mo", "d", "w"} {
		numStr, ok := strings.CutSuffix(input, unit)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(numStr)
		if err != nil || n < 0 {
			break
		}
		switch unit {
		case "d":
			return now.AddDate(0, 0, -n), nil
		case "w":
			return now.AddDate(0, 0, -7*n), nil
		default:
			return now.AddDate(0, -n, 0), nil
		}
	}

	if d, err := time.ParseDuration(input); err == nil && d >= 0 {
		return now.Add(-d), nil
	}

	dayMap := map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}
	if target, ok := dayMap[input]; ok {
		daysBack := (int(now.Weekday()) - int(target) + 7) % 7
		if daysBack == 0 {
			daysBack = 7
		}
		return midnight(now).AddDate(0, 0, -daysBack), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %q", input)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
