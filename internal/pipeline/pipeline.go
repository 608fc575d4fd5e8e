// Package pipeline sequences the stages of one run: extract, parse,
// normalize, load, compress. Data flows strictly forward and every stage
// completes before the next begins.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"

	"waterdata/internal/archive"
	"waterdata/internal/compressor"
	"waterdata/internal/config"
	"waterdata/internal/metrics"
	csvparser "waterdata/internal/parser/csv"
	"waterdata/internal/records"
	"waterdata/internal/storage"
)

// StageCounts is the row accounting for one record kind. Skipped rows are
// the only operator-visible trace of row-level parse failures.
type StageCounts struct {
	Parsed   int64
	Skipped  int64
	Inserted int64
}

// Summary is the outcome of a run.
type Summary struct {
	Statewide    StageCounts
	Reservoirs   StageCounts
	Observations StageCounts

	// Compression is nil when the backend produced no file artifact or
	// the compression pass failed.
	Compression *compressor.Stats
}

// Runner executes runs. The function fields are seams for tests; use
// NewDefaultRunner for the real thing.
type Runner struct {
	NewRepository func(ctx context.Context, cfg storage.Config) (storage.Repository, error)
	Extract       func(path string) (string, error)
	Compress      func(path string) (compressor.Stats, error)

	// Verbose gates per-batch progress logging.
	Verbose bool
}

func NewDefaultRunner() *Runner {
	return &Runner{
		NewRepository: storage.New,
		Extract:       archive.Extract,
		Compress:      compressor.Compress,
	}
}

// Run executes the configured stages and returns the run summary.
//
// On any fatal error the repository is closed unfinalized, which makes the
// backends discard partial output. A compression failure is fatal for the
// process (the artifact set is incomplete) but the already-written
// uncompressed artifact is left in place.
func (r *Runner) Run(ctx context.Context, cfg config.Run) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repo, err := r.NewRepository(ctx, storage.Config{Kind: cfg.StorageKind, DSN: cfg.OutputDSN})
	if err != nil {
		return nil, fmt.Errorf("storage %q: %w", cfg.StorageKind, err)
	}
	closed := false
	closeRepo := func() {
		if !closed {
			closed = true
			if cerr := repo.Close(); cerr != nil {
				log.Printf("storage close: %v", cerr)
			}
		}
	}
	defer closeRepo()

	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	sum := &Summary{}

	if cfg.StatewideArchive != "" {
		if err := r.loadStatewide(ctx, cfg, repo, sum); err != nil {
			return nil, err
		}
	}
	if cfg.MetadataPath != "" {
		if err := r.loadReservoirs(ctx, cfg, repo, sum); err != nil {
			return nil, err
		}
	}
	if cfg.ObservationsArchive != "" {
		if err := r.loadObservations(ctx, cfg, repo, sum); err != nil {
			return nil, err
		}
	}

	if err := repo.Finalize(ctx); err != nil {
		return nil, err
	}

	artifact := repo.ArtifactPath()
	closeRepo()

	if artifact != "" {
		stats, err := r.Compress(artifact)
		if err != nil {
			return sum, fmt.Errorf("artifact written to %s but compression failed: %w", artifact, err)
		}
		sum.Compression = &stats
		metrics.IncCounter("waterdata_artifact_bytes", float64(stats.OriginalBytes), nil)
		metrics.IncCounter("waterdata_compressed_bytes", float64(stats.CompressedBytes), nil)
		log.Printf("compressed %s: %s", artifact, stats)
	}

	return sum, nil
}

func (r *Runner) loadStatewide(ctx context.Context, cfg config.Run, repo storage.Repository, sum *Summary) error {
	payload, err := r.Extract(cfg.StatewideArchive)
	if err != nil {
		return err
	}

	rows, skipped := csvparser.ParseStatewide(payload)
	inserted, err := repo.InsertStatewide(ctx, rows)
	if err != nil {
		return err
	}

	sum.Statewide = StageCounts{Parsed: int64(len(rows)), Skipped: int64(skipped), Inserted: inserted}
	countStage("statewide", sum.Statewide)
	log.Printf("statewide: %d rows loaded, %d skipped", inserted, skipped)
	return nil
}

func (r *Runner) loadReservoirs(ctx context.Context, cfg config.Run, repo storage.Repository, sum *Summary) error {
	f, err := os.Open(cfg.MetadataPath)
	if err != nil {
		return fmt.Errorf("open metadata %s: %w", cfg.MetadataPath, err)
	}
	defer f.Close()

	rows, skipped, err := csvparser.ParseReservoirMetadata(f, csvparser.MetadataOptions{Latin1: cfg.MetadataLatin1})
	if err != nil {
		return fmt.Errorf("parse metadata %s: %w", cfg.MetadataPath, err)
	}
	inserted, err := repo.InsertReservoirs(ctx, rows)
	if err != nil {
		return err
	}

	sum.Reservoirs = StageCounts{Parsed: int64(len(rows)), Skipped: int64(skipped), Inserted: inserted}
	countStage("reservoirs", sum.Reservoirs)
	log.Printf("reservoirs: %d rows loaded, %d skipped", inserted, skipped)
	return nil
}

// loadObservations streams the high-volume per-station feed through
// fixed-size batches so the full parsed stream is never held at once.
func (r *Runner) loadObservations(ctx context.Context, cfg config.Run, repo storage.Repository, sum *Summary) error {
	payload, err := r.Extract(cfg.ObservationsArchive)
	if err != nil {
		return err
	}

	batchSize := cfg.EffectiveBatchSize()
	batch := make([]records.ReservoirObservation, 0, batchSize)

	var inserted int64
	var insertErr error
	flush := func() {
		if insertErr != nil || len(batch) == 0 {
			return
		}
		n, err := repo.InsertObservations(ctx, batch)
		if err != nil {
			insertErr = err
			return
		}
		inserted += n
		if r.Verbose {
			log.Printf("observations: batch of %d inserted (%d total)", len(batch), inserted)
		}
		batch = batch[:0]
	}

	kept, skipped := csvparser.ParseObservations(payload, func(obs records.ReservoirObservation) {
		if insertErr != nil {
			return
		}
		batch = append(batch, obs)
		if len(batch) >= batchSize {
			flush()
		}
	})
	flush()
	if insertErr != nil {
		return insertErr
	}

	sum.Observations = StageCounts{Parsed: int64(kept), Skipped: int64(skipped), Inserted: inserted}
	countStage("observations", sum.Observations)
	log.Printf("observations: %d rows loaded (%d duplicates ignored), %d skipped",
		inserted, int64(kept)-inserted, skipped)
	return nil
}

func countStage(table string, c StageCounts) {
	tags := map[string]string{"table": table}
	metrics.IncCounter("waterdata_rows_loaded_total", float64(c.Inserted), tags)
	metrics.IncCounter("waterdata_rows_skipped_total", float64(c.Skipped), tags)
}
