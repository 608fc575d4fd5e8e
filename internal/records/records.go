// Package records defines the three record types carried through the
// pipeline.
//
// Records are built once by the parsers, normalized, and never mutated
// afterwards. Dates are always in canonical YYYY-MM-DD form by the time a
// record exists; the raw compact form never leaves the parser.
package records

// StatewideObservation is one day of total statewide reservoir storage.
type StatewideObservation struct {
	Date  string
	Level int64
}

// Reservoir is the metadata row for a single monitoring station.
//
// Capacity and FillYear are nil when the source field is empty; an absent
// value is "unknown", never zero.
type Reservoir struct {
	StationID string
	Dam       string
	Lake      string
	Stream    string
	Capacity  *int64
	FillYear  *int64
}

// ReservoirObservation is one day of storage at a single station.
//
// The (StationID, Date) pair is the logical key. A matching Reservoir row
// may or may not exist; the loaders never enforce the reference.
type ReservoirObservation struct {
	StationID string
	Date      string
	Level     int64
}
