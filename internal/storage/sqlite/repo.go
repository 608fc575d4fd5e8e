// Package sqlite materializes the load into a single self-contained
// SQLite database file.
//
// The whole load runs in one transaction. Finalize commits it; closing an
// unfinalized repo rolls back and removes the file, so a failed run never
// leaves a half-written artifact.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"waterdata/internal/records"
	"waterdata/internal/storage"
)

// maxInsertArgs bounds the number of bound parameters per INSERT
// statement. SQLite's variable limit is 32766; staying under it lets a
// 10,000-row observation batch go through in a single statement.
const maxInsertArgs = 32000

const schemaSQL = `
CREATE TABLE statewide (
  date TEXT PRIMARY KEY,
  water_level INTEGER NOT NULL
);
CREATE INDEX idx_statewide_date ON statewide(date);

CREATE TABLE reservoirs (
  station_id TEXT PRIMARY KEY,
  dam TEXT,
  lake TEXT,
  stream TEXT,
  capacity INTEGER,
  fill_year INTEGER
);

CREATE TABLE observations (
  station_id TEXT NOT NULL,
  date TEXT NOT NULL,
  water_level INTEGER NOT NULL,
  PRIMARY KEY (station_id, date)
);
CREATE INDEX idx_obs_station ON observations(station_id);
CREATE INDEX idx_obs_date ON observations(date);
`

// Repo implements storage.Repository backed by a SQLite file.
//
// Timestamped columns do not exist in this schema; dates are stored as the
// canonical TEXT form, which sorts correctly and round-trips exactly with
// modernc.org/sqlite.
type Repo struct {
	path      string
	db        *sql.DB
	tx        *sql.Tx
	finalized bool
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: output path is empty")
	}
	return &Repo{path: cfg.DSN}, nil
}

// EnsureSchema deletes any stale database file, opens a fresh one, creates
// the three tables with their keys and indexes, and opens the load
// transaction.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	// File-level idempotence: each run fully regenerates the artifact.
	for _, p := range []string{r.path, r.path + "-wal", r.path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("sqlite: remove stale %s: %w", p, err)
		}
	}

	db, err := sql.Open("sqlite", r.path)
	if err != nil {
		return fmt.Errorf("sqlite: open %s: %w", r.path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite: create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	r.db = db
	r.tx = tx
	return nil
}

func (r *Repo) InsertStatewide(ctx context.Context, rows []records.StatewideObservation) (int64, error) {
	flat := make([][]any, len(rows))
	for i, row := range rows {
		flat[i] = []any{row.Date, row.Level}
	}
	return r.insert(ctx, "statewide", []string{"date", "water_level"}, flat)
}

func (r *Repo) InsertReservoirs(ctx context.Context, rows []records.Reservoir) (int64, error) {
	flat := make([][]any, len(rows))
	for i, row := range rows {
		flat[i] = []any{row.StationID, row.Dam, row.Lake, row.Stream, nullable(row.Capacity), nullable(row.FillYear)}
	}
	return r.insert(ctx, "reservoirs", []string{"station_id", "dam", "lake", "stream", "capacity", "fill_year"}, flat)
}

func (r *Repo) InsertObservations(ctx context.Context, rows []records.ReservoirObservation) (int64, error) {
	flat := make([][]any, len(rows))
	for i, row := range rows {
		flat[i] = []any{row.StationID, row.Date, row.Level}
	}
	return r.insert(ctx, "observations", []string{"station_id", "date", "water_level"}, flat)
}

// Finalize commits the load. Until this returns nil the artifact is not
// written; after it, Close is a pure resource release.
func (r *Repo) Finalize(ctx context.Context) error {
	if r.tx == nil {
		return fmt.Errorf("sqlite: Finalize before EnsureSchema")
	}
	if err := r.tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	r.tx = nil
	r.finalized = true
	return nil
}

// Close rolls back and deletes the partial file when the load never
// finalized.
func (r *Repo) Close() error {
	if r.tx != nil {
		_ = r.tx.Rollback()
		r.tx = nil
	}
	var err error
	if r.db != nil {
		err = r.db.Close()
		r.db = nil
	}
	if !r.finalized {
		if rmErr := os.Remove(r.path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
			err = rmErr
		}
	}
	return err
}

func (r *Repo) ArtifactPath() string { return r.path }

// insert performs duplicate-tolerant multi-row inserts inside the load
// transaction. INSERT OR IGNORE relies on each table's PRIMARY KEY, which
// gives the first-write-wins contract: a repeated key is a silent no-op.
//
// Statements are split so the bound-argument count stays under SQLite's
// variable limit; callers never need to think about it.
func (r *Repo) insert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if r.tx == nil {
		return 0, fmt.Errorf("sqlite: insert into %s before EnsureSchema", table)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	chunkRows := maxInsertArgs / len(columns)
	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"

	colList := make([]string, 0, len(columns))
	for _, c := range columns {
		colList = append(colList, sqlIdent(c))
	}

	var inserted int64
	for start := 0; start < len(rows); start += chunkRows {
		end := start + chunkRows
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		var b strings.Builder
		b.WriteString("INSERT OR IGNORE INTO ")
		b.WriteString(table)
		b.WriteString(" (")
		b.WriteString(strings.Join(colList, ", "))
		b.WriteString(") VALUES ")

		args := make([]any, 0, len(chunk)*len(columns))
		for i, row := range chunk {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(placeholders)
			args = append(args, row...)
		}

		res, err := r.tx.ExecContext(ctx, b.String(), args...)
		if err != nil {
			return inserted, fmt.Errorf("sqlite: insert %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}
	return inserted, nil
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// nullable maps an absent optional field to SQL NULL instead of a zero.
func nullable(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
