// Package config holds the explicit run configuration for a pipeline
// invocation: input paths, output target, and batch size. The historical
// tool hardcoded these as script-level globals; they are plain fields here
// so entry points and tests can set them without process-wide state.
package config

import (
	"fmt"
	"strings"
)

// DefaultBatchSize is the per-reservoir observation insert batch size.
// Bounds peak memory for the multi-million-row stream and gives the
// operator incremental progress lines.
const DefaultBatchSize = 10000

// Historical relative paths, kept as defaults so a bare invocation
// behaves like the original scripts.
const (
	DefaultStatewideArchive    = "fixtures/cumulative_v2.tar.lzma"
	DefaultObservationsArchive = "fixtures/observations.tar.lzma"
	DefaultMetadataPath        = "fixtures/reservoirs.csv"
	DefaultDatabasePath        = "data/reservoir_data.db"
	DefaultDocumentPath        = "data/reservoir_data.json"
)

// Run is one pipeline invocation.
//
// An empty input path disables that stage: the document build sets only
// StatewideArchive, the relational build sets all three.
type Run struct {
	// Inputs.
	StatewideArchive    string
	ObservationsArchive string
	MetadataPath        string
	// MetadataLatin1 decodes the metadata file from Windows-1252.
	MetadataLatin1 bool

	// Output.
	StorageKind string // "sqlite", "postgres", or "document"
	OutputDSN   string // file path for sqlite/document, conn string for postgres

	BatchSize int
}

// Validate reports the first configuration problem, or nil.
func (c Run) Validate() error {
	if strings.TrimSpace(c.StorageKind) == "" {
		return fmt.Errorf("config: storage kind must be set")
	}
	if strings.TrimSpace(c.OutputDSN) == "" {
		return fmt.Errorf("config: output path/DSN must be set")
	}
	if c.StatewideArchive == "" && c.ObservationsArchive == "" && c.MetadataPath == "" {
		return fmt.Errorf("config: no input stages configured")
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("config: batch size must not be negative")
	}
	if c.StorageKind == "document" && (c.ObservationsArchive != "" || c.MetadataPath != "") {
		return fmt.Errorf("config: document storage supports only the statewide stage")
	}
	return nil
}

// EffectiveBatchSize returns BatchSize with the default applied.
func (c Run) EffectiveBatchSize() int {
	if c.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}
