// Command build-json runs the document pipeline: extract the statewide
// archive, accumulate the series in memory, write it as one compact JSON
// document, and compress it with zstd.
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

	_ "waterdata/internal/storage/document"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("build-json", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		statewide   = fs.String("statewide", config.DefaultStatewideArchive, "statewide observations archive (.tar.lzma or .tar.xz)")
		out         = fs.String("out", config.DefaultDocumentPath, "output JSON document path")
		metricsFlag = fs.String("metrics-backend", "none", "metrics backend (pushgateway, none)")
		gwURL       = fs.String("pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
		verbose     = fs.Bool("v", false, "enable verbose logs")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	initMetrics(*metricsFlag, *gwURL, "waterdata_build_json")
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	cfg := config.Run{
		StatewideArchive: *statewide,
		StorageKind:      "document",
		OutputDSN:        *out,
	}

	runner := pipeline.NewDefaultRunner()
	runner.Verbose = *verbose

	start := time.Now()
	sum, err := runner.Run(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "build-json: %v\n", err)
		return 1
	}

	log.Printf("created JSON with %d records in %s",
		sum.Statewide.Inserted, time.Since(start).Truncate(time.Millisecond))
	return 0
}

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
