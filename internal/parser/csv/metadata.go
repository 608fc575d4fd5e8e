package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"waterdata/internal/normalize"
	"waterdata/internal/records"
)

// Metadata column names as exported upstream. Lookup is by name, not
// position, so column reordering in a future export does not break the
// load.
const (
	colID       = "ID"
	colDam      = "DAM"
	colLake     = "LAKE"
	colStream   = "STREAM"
	colCapacity = "CAPACITY (AF)"
	colYearFill = "YEAR FILL"
)

// MetadataOptions controls reservoir metadata parsing.
type MetadataOptions struct {
	// Latin1 decodes the input from Windows-1252 before parsing. The
	// upstream export is not UTF-8; dam and lake names carry accented
	// characters.
	Latin1 bool
}

// ParseReservoirMetadata parses the headered reservoir metadata table.
//
// Capacity and year-fill are optional integers; an empty field stays
// unknown (nil), never zero. Rows with an empty station id, or with a
// non-integer value in an optional numeric field, are dropped and counted.
// A missing or unreadable header is an error: without it no column can be
// located and the whole run is wrong, not just a row.
func ParseReservoirMetadata(r io.Reader, opt MetadataOptions) (rows []records.Reservoir, skipped int, err error) {
	if opt.Latin1 {
		r = charmap.Windows1252.NewDecoder().Reader(r)
	}

	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	hdr, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read metadata header: %w", err)
	}

	idx := make(map[string]int, len(hdr))
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		idx[strings.ToUpper(h)] = i
	}
	if _, ok := idx[colID]; !ok {
		return nil, 0, fmt.Errorf("metadata header %v: missing %q column", hdr, colID)
	}

	field := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		id := field(rec, colID)
		if id == "" {
			skipped++
			continue
		}
		capacity, err := normalize.OptionalInt(field(rec, colCapacity))
		if err != nil {
			skipped++
			continue
		}
		fillYear, err := normalize.OptionalInt(field(rec, colYearFill))
		if err != nil {
			skipped++
			continue
		}

		rows = append(rows, records.Reservoir{
			StationID: id,
			Dam:       field(rec, colDam),
			Lake:      field(rec, colLake),
			Stream:    field(rec, colStream),
			Capacity:  capacity,
			FillYear:  fillYear,
		})
	}
	return rows, skipped, nil
}
