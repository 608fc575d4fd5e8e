// Package normalize converts raw archive field encodings into the canonical
// forms persisted by the loaders.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
)

// compactDateLen is the exact length of the source date encoding
// (YYYYMMDD, no separators).
const compactDateLen = 8

// CompactDate reformats an 8-digit compact date into YYYY-MM-DD by
// positional slicing.
//
// Only the shape is checked: all eight characters must be ASCII digits.
// Calendrically impossible dates (month 13, day 40) pass through unchanged;
// the upstream feed has never produced one and the consumers treat dates as
// opaque sort keys.
func CompactDate(s string) (string, error) {
	if len(s) != compactDateLen {
		return "", fmt.Errorf("compact date %q: want %d characters, got %d", s, compactDateLen, len(s))
	}
	for i := 0; i < compactDateLen; i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", fmt.Errorf("compact date %q: non-digit at position %d", s, i)
		}
	}
	return s[0:4] + "-" + s[4:6] + "-" + s[6:8], nil
}

// Level parses a water-level field as a base-10 integer.
//
// The observation feed uses sentinel strings (ART, BRT, ---) for readings
// it could not take; those, like any other non-integer value, are an error
// the caller turns into a row skip.
func Level(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty water level")
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("water level %q: %w", s, err)
	}
	return v, nil
}

// OptionalInt parses an optional integer field (capacity, fill year).
// An empty field is "unknown" and returns nil with no error; a non-empty,
// non-integer field is an error.
func OptionalInt(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("integer field %q: %w", s, err)
	}
	return &v, nil
}
