package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/superodds/oddscollector/internal/collector/providers"
	"github.com/superodds/oddscollector/internal/collector/providers/mirror"
	pkgconfig "github.com/superodds/oddscollector/internal/pkg/config"
	"github.com/superodds/oddscollector/internal/pkg/health"
	"github.com/superodds/oddscollector/internal/pkg/logging"
	"github.com/superodds/oddscollector/internal/pkg/metrics"
	"github.com/superodds/oddscollector/internal/pkg/models"
	"github.com/superodds/oddscollector/internal/pkg/notify"
	"github.com/superodds/oddscollector/internal/pkg/pipeline"
	"github.com/superodds/oddscollector/internal/pkg/runutil"
	"github.com/superodds/oddscollector/internal/pkg/storage"
)

const defaultConfigPath = "configs/production.yaml"

type flags struct {
	configPath string
	runFor     time.Duration
	provider   string // Override enabled_providers from config
	once       bool   // Single collection cycle regardless of configured interval
}

func main() {
	if err := run(); err != nil {
		slog.Error("Collector failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()

	appConfig, err := pkgconfig.Load(cfg.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logging.Setup(&appConfig.Logging, "collector")
	slog.Info("Config loaded", "path", cfg.configPath)

	if cfg.provider != "" {
		appConfig.Collector.EnabledProviders = []string{cfg.provider}
	}

	resolver := mirror.NewResolver(appConfig.Collector.Timeout.Std())
	selected, err := providers.Build(appConfig, resolver)
	if err != nil {
		return err
	}
	printSelectedProviders(selected)

	store, err := storage.NewPostgresStore(&appConfig.Postgres)
	if err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}
	defer store.Close()

	ctx, cancel := createContext(cfg.runFor)
	defer cancel()
	setupSignalHandler(ctx, cancel)

	if appConfig.Health.Port > 0 {
		health.Run(ctx, health.AddrFor(appConfig.Health.Port), "collector", appConfig.Health.ReadHeaderTimeout.Std())
	}

	m := metrics.New()
	notifier := notify.NewTelegramNotifier(appConfig.Telegram.BotToken, appConfig.Telegram.ChatID)

	interval := appConfig.Collector.Interval.Std()
	if cfg.once {
		interval = 0
	}

	for {
		collect(ctx, selected, store, appConfig, m, notifier)
		if interval <= 0 {
			return nil
		}

		slog.Info("Cycle finished, sleeping", "interval", interval)
		select {
		case <-ctx.Done():
			slog.Info("Shutting down")
			return nil
		case <-time.After(interval):
		}
	}
}

// collect runs every provider in parallel, then merges all of their
// normalized documents in a single cycle-level merge stage. Per-provider
// runs only write the raw collection; MergeUpsert must not run
// concurrently for overlapping keys, so it happens exactly once here,
// after every run has finished.
func collect(ctx context.Context, selected []pipeline.Provider, store storage.EventStore, appConfig *pkgconfig.Config, m *metrics.Metrics, notifier *notify.TelegramNotifier) {
	cycleID := uuid.NewString()
	opts := pipeline.Options{
		Workers:       appConfig.Collector.Workers,
		FlushSize:     appConfig.Collector.FlushSize,
		RetryAttempts: appConfig.Collector.RetryAttempts,
		ProgressEvery: appConfig.Collector.ProgressEvery,
		Timeout:       appConfig.Collector.Timeout.Std(),
		BackoffUnit:   appConfig.Collector.BackoffUnit.Std(),
		Lookahead:     time.Duration(appConfig.Collector.LookaheadHours * float64(time.Hour)),
		AllowPast:     appConfig.Collector.AllowPast,
	}

	type runResult struct {
		stats pipeline.RunStats
		docs  []models.NormalizedEvent
	}
	results := make(chan runResult, len(selected))
	runutil.RunProviders(ctx, selected, func(ctx context.Context, p pipeline.Provider) error {
		stats, docs, err := pipeline.Run(ctx, p, store, opts, m)
		health.RecordRun(stats)
		results <- runResult{stats: stats, docs: docs}
		return err
	}, runutil.RunOptions{LogStart: true, WaitForCompletion: true})
	close(results)

	var all []pipeline.RunStats
	var normalized []models.NormalizedEvent
	for result := range results {
		all = append(all, result.stats)
		normalized = append(normalized, result.docs...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Provider < all[j].Provider })

	merged, err := pipeline.MergeUpsert(ctx, store, normalized)
	if err != nil {
		slog.Error("Failed to merge normalized events", "cycle_id", cycleID, "error", err)
	}
	m.RecordsMerged(merged.Upserted + merged.Modified)
	slog.Info("Cycle merge finished", "cycle_id", cycleID,
		"documents", len(normalized), "merged_upserted", merged.Upserted, "merged_modified", merged.Modified)

	notifier.SendRunSummary(cycleID, all, merged)
}

func parseFlags() flags {
	var cfg flags

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&cfg.configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.DurationVar(&cfg.runFor, "run-for", 0, "Auto-stop after duration (e.g. 10s, 1m). 0 = run until SIGINT/SIGTERM")
	flag.StringVar(&cfg.provider, "provider", "", "Override enabled_providers: run only this provider. Empty = use config")
	flag.BoolVar(&cfg.once, "once", false, "Run one collection cycle and exit, ignoring collector.interval")
	flag.Parse()
	return cfg
}

func printSelectedProviders(selected []pipeline.Provider) {
	names := make([]string, 0, len(selected))
	for _, p := range selected {
		names = append(names, p.Name())
	}
	sort.Strings(names)
	slog.Info("Using providers", "providers", strings.Join(names, ", "))
}

func createContext(runFor time.Duration) (context.Context, context.CancelFunc) {
	if runFor > 0 {
		return context.WithTimeout(context.Background(), runFor)
	}
	return context.WithCancel(context.Background())
}

func setupSignalHandler(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal, stopping collector...", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
		}
	}()
}
