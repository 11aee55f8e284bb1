package jwtx

import (
	"fmt"
	"strconv"
	"time"
)

// ParseTTL parses a token lifetime written as "<integer><unit>" where the
// unit is one of s, m, h or d. Examples: "30s", "15m", "1h", "7d".
//
// A malformed string is a configuration error: callers are expected to fail
// startup on it rather than fall back to a default.
func ParseTTL(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("jwtx: invalid ttl %q: want <integer><unit>", s)
	}

	unit := s[len(s)-1]
	value, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("jwtx: invalid ttl %q: want <integer><unit>", s)
	}

	switch unit {
	case 's':
		return time.Duration(value) * time.Second, nil
	case 'm':
		return time.Duration(value) * time.Minute, nil
	case 'h':
		return time.Duration(value) * time.Hour, nil
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("jwtx: invalid ttl unit %q: want one of s, m, h, d", string(unit))
	}
}
