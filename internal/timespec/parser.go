// Package timespec parses the time bounds accepted by the list command's
// --since and --until flags.
package timespec

import (
	"fmt"
	"time"
)

// absoluteLayouts are tried, in order, for values that are not durations.
// A bare date means midnight UTC at the start of that day.
var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02",
}

// Parse converts a single flag value into a Unix-millisecond timestamp.
// Three forms are accepted:
//
//	90m                    a duration measured back from now
//	2026-08-14             a calendar date (midnight UTC)
//	2026-08-14T09:30:00Z   an RFC3339 instant
func Parse(value string) (int64, error) {
	if value == "" {
		return 0, fmt.Errorf("empty time value")
	}

	if d, err := time.ParseDuration(value); err == nil {
		return time.Now().Add(-d).UnixMilli(), nil
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UnixMilli(), nil
		}
	}

	return 0, fmt.Errorf("cannot parse time value %q: want a duration like '90m', a date like '2026-08-14', or an RFC3339 instant", value)
}

// ParseRange converts the --since/--until pair into millisecond bounds.
// An empty value leaves that end of the range open, returned as zero.
// When both bounds are set, since must fall before until.
func ParseRange(since, until string) (int64, int64, error) {
	var sinceMS, untilMS int64

	if since != "" {
		v, err := Parse(since)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --since: %w", err)
		}
		sinceMS = v
	}

	if until != "" {
		v, err := Parse(until)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --until: %w", err)
		}
		untilMS = v
	}

	if sinceMS != 0 && untilMS != 0 && sinceMS >= untilMS {
		return 0, 0, fmt.Errorf("--since must fall before --until")
	}

	return sinceMS, untilMS, nil
}
