// clean-events deletes raw and normalized event documents whose start
// time is older than the cutoff. Retention replacement for a TTL index.
// Usage:
//
//	go run ./cmd/tools/clean-events -config configs/production.yaml -older-than 168h
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	pkgconfig "github.com/superodds/oddscollector/internal/pkg/config"
	"github.com/superodds/oddscollector/internal/pkg/storage"
)

func main() {
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "configs/production.yaml"
	}

	configPath := flag.String("config", defaultConfig, "Path to config file")
	olderThan := flag.Duration("older-than", 7*24*time.Hour, "Delete events that started more than this long ago")
	dryRun := flag.Bool("dry-run", false, "Print the cutoff and exit without deleting")
	flag.Parse()

	appConfig, err := pkgconfig.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cutoff := time.Now().UTC().Add(-*olderThan)
	if *dryRun {
		log.Printf("Dry run: would delete events that started before %s", cutoff.Format(time.RFC3339))
		return
	}

	store, err := storage.NewPostgresStore(&appConfig.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to storage: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	deleted, err := store.DeleteStartedBefore(ctx, cutoff)
	if err != nil {
		log.Fatalf("Failed to delete old events: %v", err)
	}
	log.Printf("Done. Deleted %d documents that started before %s", deleted, cutoff.Format(time.RFC3339))
}
