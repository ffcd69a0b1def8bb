// Package duration parses the retention ages accepted by vacuum
// --older-than: a whole number followed by h, d, w, m (30 days) or y (365
// days). time.ParseDuration stops at hours.
package duration

import (
	"fmt"
	"strconv"
	"time"
)

const day = 24 * time.Hour

var units = map[byte]time.Duration{
	'h': time.Hour,
	'd': day,
	'w': 7 * day,
	'm': 30 * day,
	'y': 365 * day,
}

// Parse reads "12h", "7d", "2w", "3m" or "1y".
func Parse(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid age %q (use e.g. 12h, 7d, 2w, 3m or 1y)", s)
	}
	unit, ok := units[s[len(s)-1]]
	if !ok {
		return 0, fmt.Errorf("invalid age %q: unknown unit %q (use h, d, w, m or y)", s, s[len(s)-1:])
	}
	n, err := strconv.ParseUint(s[:len(s)-1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid age %q: want a whole number before the unit", s)
	}
	return time.Duration(n) * unit, nil
}
