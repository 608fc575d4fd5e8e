// Package storage defines the backend-agnostic loader interface and the
// backend factory registry.
//
// Backends register themselves from an init() in their own package; the
// pipeline selects one by kind string. Each backend implements the
// duplicate-tolerance contract in its own idiomatic way (SQLite INSERT OR
// IGNORE, Postgres ON CONFLICT DO NOTHING, first-seen map in the document
// writer).
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"waterdata/internal/records"
)

// ErrUnsupported is returned by backends that do not materialize a given
// table (the document backend stores statewide rows only).
var ErrUnsupported = errors.New("storage: table not supported by this backend")

// Config selects and parameterizes a backend.
//
// DSN is backend-specific: a file path for sqlite and document, a
// connection string for postgres.
type Config struct {
	Kind string
	DSN  string
}

// Repository is the loader contract.
//
// Lifecycle: EnsureSchema once, any number of Insert* calls, then Finalize
// exactly once on success. Closing without a successful Finalize must leave
// no new artifact behind: backends roll back and remove partial output.
//
// Insert semantics: first write wins. Re-inserting an existing key is a
// no-op, never an error and never an overwrite, so re-feeding overlapping
// archives is idempotent.
type Repository interface {
	// Close releases backend resources. Call once, always, after the run;
	// safe after either a successful Finalize or a failure.
	Close() error

	// EnsureSchema prepares the output: removes stale artifacts, creates
	// tables and indexes, opens the load transaction.
	EnsureSchema(ctx context.Context) error

	InsertStatewide(ctx context.Context, rows []records.StatewideObservation) (int64, error)
	InsertReservoirs(ctx context.Context, rows []records.Reservoir) (int64, error)
	InsertObservations(ctx context.Context, rows []records.ReservoirObservation) (int64, error)

	// Finalize commits the whole load. Until it returns nil the artifact
	// is not considered written.
	Finalize(ctx context.Context) error

	// ArtifactPath returns the finished file artifact to hand to the
	// compressor, or "" when the backend produces no file (postgres).
	ArtifactPath() string
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend factory under a kind (e.g. "sqlite").
// Called from backend init() functions. Registering the same kind twice
// panics so an ambiguous backend selection fails fast at startup.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Repository for the configured kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported kind %q", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Kinds returns the registered backend kinds, for diagnostics.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	return out
}
