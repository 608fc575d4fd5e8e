// Package document materializes the statewide series as a single compact
// JSON file: {"observations":[["YYYY-MM-DD",level],...]}.
//
// Only the statewide table exists in this representation; reservoir
// inserts return storage.ErrUnsupported and the document pipeline never
// issues them.
package document

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"waterdata/internal/records"
	"waterdata/internal/storage"
)

// pair serializes as the two-element [date, level] array the downstream
// chart code consumes.
type pair struct {
	date  string
	level int64
}

func (p pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.date, p.level})
}

// Repo implements storage.Repository as an in-memory accumulator flushed
// to disk in one write at Finalize.
type Repo struct {
	path      string
	rows      []pair
	seen      map[string]struct{}
	finalized bool
}

func init() {
	storage.Register("document", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("document: output path is empty")
	}
	return &Repo{path: cfg.DSN, seen: map[string]struct{}{}}, nil
}

// EnsureSchema verifies the output directory exists. The stale artifact is
// not touched here: Finalize replaces it atomically via rename, so a failed
// run leaves the previous document intact.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	dir := filepath.Dir(r.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("document: output directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("document: %s is not a directory", dir)
	}
	return nil
}

// InsertStatewide accumulates rows in arrival order. First write wins:
// a date already seen is a silent no-op, mirroring the relational
// backends.
func (r *Repo) InsertStatewide(ctx context.Context, rows []records.StatewideObservation) (int64, error) {
	var inserted int64
	for _, row := range rows {
		if _, dup := r.seen[row.Date]; dup {
			continue
		}
		r.seen[row.Date] = struct{}{}
		r.rows = append(r.rows, pair{date: row.Date, level: row.Level})
		inserted++
	}
	return inserted, nil
}

func (r *Repo) InsertReservoirs(ctx context.Context, rows []records.Reservoir) (int64, error) {
	return 0, storage.ErrUnsupported
}

func (r *Repo) InsertObservations(ctx context.Context, rows []records.ReservoirObservation) (int64, error) {
	return 0, storage.ErrUnsupported
}

// Finalize serializes the accumulated list compactly and renames it over
// the output path. The temp file lives in the same directory so the rename
// cannot cross filesystems.
func (r *Repo) Finalize(ctx context.Context) error {
	doc := struct {
		Observations []pair `json:"observations"`
	}{Observations: r.rows}
	if doc.Observations == nil {
		doc.Observations = []pair{}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("document: marshal: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("document: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("document: rename %s: %w", tmp, err)
	}
	r.finalized = true
	return nil
}

func (r *Repo) Close() error {
	if !r.finalized {
		// Nothing durable was written; drop any stray temp file.
		if err := os.Remove(r.path + ".tmp"); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (r *Repo) ArtifactPath() string { return r.path }
