package csv

import (
	"encoding/csv"
	"io"
	"strings"

	"waterdata/internal/normalize"
	"waterdata/internal/records"
)

// ParseObservations parses the per-station observation stream: positional
// rows of `station_id,duration,compact_date,level`. The duration code is
// not stored; columns past the fourth are ignored.
//
// Rows are delivered one at a time through fn so the caller can batch
// inserts without this package ever holding the full parsed stream; the
// archive decodes to millions of rows.
//
// Skipped and counted: rows with fewer than four fields, empty station or
// date, a malformed date, or a non-integer level (the feed's ART/BRT/---
// sentinels land here).
func ParseObservations(payload string, fn func(records.ReservoirObservation)) (kept, skipped int) {
	cr := csv.NewReader(strings.NewReader(payload))
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if len(rec) < 4 {
			skipped++
			continue
		}

		station := strings.TrimSpace(rec[0])
		if station == "" {
			skipped++
			continue
		}
		date, err := normalize.CompactDate(strings.TrimSpace(rec[2]))
		if err != nil {
			skipped++
			continue
		}
		level, err := normalize.Level(rec[3])
		if err != nil {
			skipped++
			continue
		}

		fn(records.ReservoirObservation{StationID: station, Date: date, Level: level})
		kept++
	}
	return kept, skipped
}
