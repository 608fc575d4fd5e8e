// Package csv implements the three parsing strategies for the input feeds:
// the plain two-field statewide lines, the headered reservoir metadata
// table, and the positional per-station observation stream.
//
// Parsers drop malformed rows and count them; a dropped row is never a
// pipeline error. Only an unreadable container or a missing metadata header
// is fatal, and that surfaces from the callers.
package csv

import (
	"strings"

	"waterdata/internal/normalize"
	"waterdata/internal/records"
)

// ParseStatewide parses the statewide archive payload: one `date,level`
// line per day.
//
// Lines that do not split into exactly two comma fields are skipped
// silently; the archives routinely end with blank trailing lines. Lines
// whose date or level fails normalization are skipped and counted.
func ParseStatewide(payload string) (rows []records.StatewideObservation, skipped int) {
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			skipped++
			continue
		}
		date, err := normalize.CompactDate(strings.TrimSpace(parts[0]))
		if err != nil {
			skipped++
			continue
		}
		level, err := normalize.Level(parts[1])
		if err != nil {
			skipped++
			continue
		}
		rows = append(rows, records.StatewideObservation{Date: date, Level: level})
	}
	return rows, skipped
}
