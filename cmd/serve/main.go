// Command serve runs the dataset HTTP service.
//
// It wires the storage backend, the optional Datadog metrics exporter and
// the HTTP handler, then serves until SIGINT/SIGTERM and shuts down
// gracefully.
//
// # DSN resolution
//
// The storage DSN can be provided two ways, in strict precedence order:
//
//  1. -dsn "<dsn>" (highest priority)
//  2. DSN="<dsn>" environment variable
//
// The default backend is "memory", which needs no DSN and loses data on
// restart. Use -backend sqlite|postgres|mssql for persistence.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tablecast/internal/infer"
	"tablecast/internal/metrics"
	"tablecast/internal/metrics/datadog"
	"tablecast/internal/service"
	"tablecast/internal/storage"

	_ "tablecast/internal/storage/memory"
	_ "tablecast/internal/storage/mssql"
	_ "tablecast/internal/storage/postgres"
	_ "tablecast/internal/storage/sqlite"
)

func main() {
	var (
		// flagAddr is the listen address of the HTTP server.
		flagAddr = flag.String("addr", ":8080", "HTTP listen address")

		// flagBackend selects the storage backend.
		flagBackend = flag.String("backend", "memory", "Storage backend: memory|sqlite|postgres|mssql")

		// flagDSN is the storage DSN. Takes precedence over the DSN env var.
		flagDSN = flag.String("dsn", "", "Storage DSN (falls back to the DSN env var)")

		// flagMaxUpload caps upload sizes in bytes.
		flagMaxUpload = flag.Int64("max-upload", service.DefaultMaxUploadBytes, "Max upload size in bytes")

		// flagAllowInsecure controls TLS verification for ?source= fetches.
		flagAllowInsecure = flag.Bool("allow-insecure", false, "Allow insecure TLS when fetching source URLs")

		// Tag heuristic thresholds. The defaults match the library defaults;
		// exposed as flags so operators can tune tag detection per deployment.
		flagMaxUnique = flag.Float64("tag-max-unique", infer.DefaultTagConfig().MaxUniqueRatio, "Tag heuristic: max distinct/total ratio")
		flagMinDup    = flag.Float64("tag-min-dup", infer.DefaultTagConfig().MinDuplicateRatio, "Tag heuristic: min duplicate/total ratio")

		// Datadog metrics. Disabled unless -datadog is set; the exporter
		// reads DD_API_KEY and friends from the environment via the official
		// client.
		flagDatadog  = flag.Bool("datadog", false, "Enable Datadog metrics export")
		flagDDTags   = flag.String("dd-tags", "", `Extra Datadog tags, comma-separated (e.g. "env:prod,team:data")`)
		flagDDFlush  = flag.Duration("dd-flush", time.Minute, "Datadog flush interval")
		flagDDName   = flag.String("dd-service", "tablecast", "Datadog service tag")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dsn := strings.TrimSpace(*flagDSN)
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DSN"))
	}

	repo, err := storage.New(ctx, storage.Config{Kind: *flagBackend, DSN: dsn})
	if err != nil {
		log.Fatalf("serve: storage: %v", err)
	}
	defer repo.Close()

	var backend metrics.Backend = metrics.Nop{}
	if *flagDatadog {
		dd, err := datadog.NewBackend(ctx, datadog.Options{
			ServiceName: *flagDDName,
			Tags:        datadog.ParseTagsCSV(*flagDDTags),
			FlushEvery:  *flagDDFlush,
		})
		if err != nil {
			log.Fatalf("serve: datadog: %v", err)
		}
		backend = dd
		defer func() {
			if err := dd.Close(); err != nil {
				log.Printf("serve: datadog close: %v", err)
			}
		}()
	}

	srv := service.New(service.Config{
		Repo:             repo,
		Metrics:          backend,
		Logger:           log.Default(),
		MaxUploadBytes:   *flagMaxUpload,
		AllowInsecureTLS: *flagAllowInsecure,
		Tag: infer.TagConfig{
			MaxUniqueRatio:    *flagMaxUnique,
			MinDuplicateRatio: *flagMinDup,
		},
	})

	httpSrv := &http.Server{
		Addr:              *flagAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("serve: listening on %s (backend=%s)", *flagAddr, *flagBackend)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	case <-ctx.Done():
		log.Printf("serve: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("serve: shutdown: %v", err)
		}
	}

	fmt.Fprintln(os.Stderr, "serve: stopped")
}
