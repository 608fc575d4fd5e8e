// Package postgres materializes the load into a Postgres database instead
// of a file artifact. It exists for deployments that serve the prepared
// data from a shared database rather than shipping the compressed SQLite
// file; the compressor stage is skipped for this backend.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"waterdata/internal/records"
	"waterdata/internal/storage"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS statewide (
  date TEXT PRIMARY KEY,
  water_level BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS reservoirs (
  station_id TEXT PRIMARY KEY,
  dam TEXT,
  lake TEXT,
  stream TEXT,
  capacity BIGINT,
  fill_year BIGINT
);

CREATE TABLE IF NOT EXISTS observations (
  station_id TEXT NOT NULL,
  date TEXT NOT NULL,
  water_level BIGINT NOT NULL,
  PRIMARY KEY (station_id, date)
);
CREATE INDEX IF NOT EXISTS idx_obs_station ON observations(station_id);
CREATE INDEX IF NOT EXISTS idx_obs_date ON observations(date);
`

// Repo implements storage.Repository against Postgres.
//
// Table creation, truncation of the previous run's rows, and all inserts
// happen inside one transaction, so a failed run rolls back to the prior
// state and a successful run replaces it atomically.
type Repo struct {
	pool      *pgxpool.Pool
	tx        pgx.Tx
	finalized bool
}

func init() {
	storage.Register("postgres", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) EnsureSchema(ctx context.Context) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	if _, err := tx.Exec(ctx, schemaSQL); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("postgres: create schema: %w", err)
	}
	// Full regeneration per run, same contract as deleting the stale
	// file in the sqlite backend.
	if _, err := tx.Exec(ctx, `TRUNCATE statewide, reservoirs, observations`); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("postgres: truncate: %w", err)
	}
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
		flat[i] = []any{row.StationID, row.Dam, row.Lake, row.Stream, row.Capacity, row.FillYear}
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

func (r *Repo) Finalize(ctx context.Context) error {
	if r.tx == nil {
		return fmt.Errorf("postgres: Finalize before EnsureSchema")
	}
	if err := r.tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	r.tx = nil
	r.finalized = true
	return nil
}

func (r *Repo) Close() error {
	if r.tx != nil {
		_ = r.tx.Rollback(context.Background())
		r.tx = nil
	}
	r.pool.Close()
	return nil
}

// ArtifactPath returns "" because there is no file artifact to compress.
func (r *Repo) ArtifactPath() string { return "" }

func (r *Repo) insert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if r.tx == nil {
		return 0, fmt.Errorf("postgres: insert into %s before EnsureSchema", table)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	sql, args := buildInsertSQL(table, columns, rows)
	tag, err := r.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// buildInsertSQL builds a multi-row INSERT with $n placeholders and
// ON CONFLICT DO NOTHING. Duplicate keys within the batch or across
// batches are silent no-ops, matching the first-write-wins contract.
//
// Split out without a receiver so tests can assert placeholder numbering
// and conflict behavior without a database.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	n := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
			args = append(args, row[j])
		}
		b.WriteString(")")
	}
	b.WriteString(" ON CONFLICT DO NOTHING")
	return b.String(), args
}
