// Command build-db runs the relational pipeline: extract the statewide and
// per-reservoir archives plus the metadata CSV, load them into a SQLite
// database file (or a Postgres database), and compress the file artifact
// with zstd.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"waterdata/internal/config"
	"waterdata/internal/metrics"
	"waterdata/internal/metrics/prompush"
	"waterdata/internal/pipeline"

	// register all storage backends with the factory registry.
	_ "waterdata/internal/storage/all"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr))
}

// run is the testable entry point: parses flags, builds the run config,
// and executes the pipeline. Exit codes: 0 ok, 1 run failure, 2 usage.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("build-db", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		statewide    = fs.String("statewide", config.DefaultStatewideArchive, "statewide observations archive (.tar.lzma or .tar.xz)")
		observations = fs.String("observations", config.DefaultObservationsArchive, "per-reservoir observations archive (.tar.lzma or .tar.xz)")
		metadata     = fs.String("metadata", config.DefaultMetadataPath, "reservoir metadata CSV")
		latin1       = fs.Bool("metadata-latin1", true, "decode the metadata CSV from Windows-1252")
		out          = fs.String("out", config.DefaultDatabasePath, "output database path (connection string for -storage postgres)")
		kind         = fs.String("storage", "sqlite", "storage backend kind (sqlite, postgres)")
		batchSize    = fs.Int("batch-size", config.DefaultBatchSize, "observation insert batch size")
		metricsFlag  = fs.String("metrics-backend", "none", "metrics backend (pushgateway, none)")
		gwURL        = fs.String("pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
		verbose      = fs.Bool("v", false, "enable verbose logs")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	initMetrics(*metricsFlag, *gwURL, "waterdata_build_db")
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	cfg := config.Run{
		StatewideArchive:    *statewide,
		ObservationsArchive: *observations,
		MetadataPath:        *metadata,
		MetadataLatin1:      *latin1,
		StorageKind:         *kind,
		OutputDSN:           *out,
		BatchSize:           *batchSize,
	}

	runner := pipeline.NewDefaultRunner()
	runner.Verbose = *verbose

	start := time.Now()
	sum, err := runner.Run(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "build-db: %v\n", err)
		return 1
	}

	log.Printf("created %s backend output: statewide=%d reservoirs=%d observations=%d in %s",
		*kind, sum.Statewide.Inserted, sum.Reservoirs.Inserted, sum.Observations.Inserted,
		time.Since(start).Truncate(time.Millisecond))
	return 0
}

// initMetrics installs the requested metrics backend. The gateway URL
// resolves from the flag, then PUSHGATEWAY_URL, then the local default; an
// init failure logs and leaves the nop backend in place.
func initMetrics(backend, gwURL, job string) {
	switch backend {
	case "pushgateway":
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init pushgateway backend: %v; using nop", err)
			return
		}
		metrics.SetBackend(b)
	case "", "none":
		// metrics disabled; nop backend remains
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backend)
	}
}
