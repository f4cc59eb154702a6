// Package pipeline implements the shared collection pipeline: bounded
// concurrent enrichment of candidate listings, payload reduction,
// validity filtering and batched idempotent persistence, plus the
// cross-provider merge/upsert stage the caller runs once per cycle.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/superodds/oddscollector/internal/pkg/metrics"
	"github.com/superodds/oddscollector/internal/pkg/models"
	"github.com/superodds/oddscollector/internal/pkg/storage"
)

// Provider is the collaborator contract one betting site must satisfy:
// a bulk listing scan and a per-id detail fetch, each free to fail
// independently. The pipeline retries detail fetches itself; listing
// failures are fatal for the run.
type Provider interface {
	Name() string
	ListCandidates(ctx context.Context, filter ListingFilter) ([]models.CandidateListing, error)
	FetchDetail(ctx context.Context, id string) (map[string]any, error)
	ReducePolicy() Policy
}

// ListingFilter narrows a listing scan to the window the run cares about.
type ListingFilter struct {
	// Lookahead bounds how far into the future listed events may start.
	// 0 disables the window.
	Lookahead time.Duration
	// AllowPast keeps events that already kicked off.
	AllowPast bool
}

// Options tunes one pipeline run.
type Options struct {
	Workers       int
	FlushSize     int
	RetryAttempts int
	ProgressEvery int
	Timeout       time.Duration
	BackoffUnit   time.Duration
	Lookahead     time.Duration
	AllowPast     bool
}

// RunStats is the outcome of one provider collection run.
type RunStats struct {
	Provider     string             `json:"provider"`
	RunID        string             `json:"runId"`
	Collected    int                `json:"collected"`
	Duplicates   int                `json:"duplicates"`
	FilteredOut  int                `json:"filteredOut"`
	Enriched     int                `json:"enriched"`
	Invalid      int                `json:"invalid"`
	SkippedNoKey int                `json:"skippedNoKey"`
	LostBatches  int                `json:"lostBatches"`
	Persisted    storage.BulkResult `json:"persisted"`
	Duration     time.Duration      `json:"duration"`
}

// Run executes the per-provider pipeline: list, dedupe, filter by start
// time, enrich concurrently, reduce, validate and persist in batches.
// The normalized documents the run produced are returned instead of
// merged here: provider runs execute in parallel and MergeUpsert is not
// safe for concurrent same-key callers, so the caller collects every
// provider's documents and runs one merge stage per cycle.
func Run(ctx context.Context, provider Provider, store storage.RawEventStore, opts Options, m *metrics.Metrics) (RunStats, []models.NormalizedEvent, error) {
	start := time.Now()
	name := provider.Name()
	stats := RunStats{Provider: name, RunID: uuid.NewString()}
	log := slog.With("provider", name, "run_id", stats.RunID)

	log.Info("Starting collection run")
	listings, err := provider.ListCandidates(ctx, ListingFilter{Lookahead: opts.Lookahead, AllowPast: opts.AllowPast})
	if err != nil {
		return stats, nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	stats.Collected = len(listings)
	m.ListingsCollected(name, len(listings))

	deduped := dedupeListings(listings)
	stats.Duplicates = len(listings) - len(deduped)

	filtered := filterByStartTime(deduped, opts.Lookahead, opts.AllowPast, time.Now().UTC())
	stats.FilteredOut = len(deduped) - len(filtered)
	log.Info("Listings ready for enrichment",
		"collected", stats.Collected, "duplicates", stats.Duplicates, "filtered_out", stats.FilteredOut)

	fetcher := NewFetcher(opts.RetryAttempts, opts.BackoffUnit)
	fetcher.OnAttempt = func() { m.FetchAttempt(name) }
	fetcher.OnFailure = func() { m.FetchFailure(name) }

	fetch := provider.FetchDetail
	if opts.Timeout > 0 {
		fetch = func(fetchCtx context.Context, id string) (map[string]any, error) {
			timeoutCtx, cancel := context.WithTimeout(fetchCtx, opts.Timeout)
			defer cancel()
			return provider.FetchDetail(timeoutCtx, id)
		}
	}

	policy := provider.ReducePolicy()
	persister := NewPersister(store, opts.FlushSize, name, m)
	capturedAt := time.Now().UTC()
	normalized := make([]models.NormalizedEvent, 0, len(filtered))

	processed := 0
	for record := range Enrich(ctx, filtered, fetcher, fetch, opts.Workers) {
		processed++
		if opts.ProgressEvery > 0 && processed%opts.ProgressEvery == 0 {
			log.Info("Enrichment progress", "processed", processed, "total", len(filtered))
		}

		raw := record.Detail
		if raw != nil {
			stats.Enriched++
			m.RecordEnriched(name)
		} else {
			// Fetch failed or never ran: fall back to the listing payload
			// so the record stays in the stream.
			raw = record.Listing.Fields
		}

		slim := Reduce(raw, policy)
		if !IsValid(slim, policy) {
			stats.Invalid++
			continue
		}
		m.RecordValid(name)

		doc := buildDocument(name, record, slim, capturedAt)
		persister.Add(ctx, doc)
		normalized = append(normalized, buildNormalized(doc, policy))
	}
	persister.Flush(ctx)
	stats.Persisted = persister.Result()
	stats.SkippedNoKey = persister.Skipped()
	stats.LostBatches = persister.LostBatches()
	stats.Duration = time.Since(start)
	m.ObserveRunDuration(name, stats.Duration.Seconds())

	log.Info("Collection run finished",
		"collected", stats.Collected,
		"enriched", stats.Enriched,
		"invalid", stats.Invalid,
		"skipped_no_key", stats.SkippedNoKey,
		"persisted_upserted", stats.Persisted.Upserted,
		"persisted_modified", stats.Persisted.Modified,
		"normalized", len(normalized),
		"lost_batches", stats.LostBatches,
		"duration", stats.Duration)
	return stats, normalized, nil
}

// dedupeListings drops repeated provider-native ids, keeping the first
// sighting. Listings without an id cannot collide and are all kept.
func dedupeListings(listings []models.CandidateListing) []models.CandidateListing {
	seen := make(map[string]bool, len(listings))
	deduped := make([]models.CandidateListing, 0, len(listings))
	for _, listing := range listings {
		if listing.NativeID != "" {
			if seen[listing.NativeID] {
				continue
			}
			seen[listing.NativeID] = true
		}
		deduped = append(deduped, listing)
	}
	return deduped
}

// filterByStartTime keeps listings inside [now, now+lookahead], plus
// everything without a known start time. lookahead <= 0 disables the
// window entirely.
func filterByStartTime(listings []models.CandidateListing, lookahead time.Duration, allowPast bool, now time.Time) []models.CandidateListing {
	if lookahead <= 0 {
		return listings
	}
	upper := now.Add(lookahead)
	kept := make([]models.CandidateListing, 0, len(listings))
	for _, listing := range listings {
		if listing.StartTime.IsZero() {
			kept = append(kept, listing)
			continue
		}
		if !allowPast && listing.StartTime.Before(now) {
			continue
		}
		if listing.StartTime.After(upper) {
			continue
		}
		kept = append(kept, listing)
	}
	return kept
}

func buildDocument(providerName string, record models.EnrichedRecord, slim map[string]any, capturedAt time.Time) models.SlimEventDocument {
	doc := models.SlimEventDocument{
		EventID:    record.Listing.NativeID,
		Source:     providerName,
		CapturedAt: capturedAt,
		StartTime:  record.Listing.StartTime,
		Raw:        slim,
	}

	fields := record.Listing.Fields
	if fixture := asMap(slim["fixture"]); fixture != nil {
		doc.MatchName = unwrapName(fixture["name"])
		if t := ParseEventTime(stringify(fixture["startDate"])); !t.IsZero() {
			doc.StartTime = t
		}
		competition := asMap(fixture["competition"])
		doc.CompetitionID = stringify(competition["id"])
		doc.CompetitionName = unwrapName(competition["name"])
	} else {
		doc.MatchName = firstNonEmpty(
			stringify(slim["matchName"]), unwrapName(slim["name"]),
			stringify(fields["name"]), stringify(fields["englishName"]))
		doc.CompetitionID = stringify(slim["tournamentId"])
	}
	if doc.EventID == "" {
		doc.EventID = firstNonEmpty(stringify(slim["eventId"]), stringify(slim["id"]))
	}
	if doc.CompetitionID == "" {
		doc.CompetitionID = stringify(fields["_competitionId"])
	}
	if doc.CompetitionName == "" {
		doc.CompetitionName = stringify(fields["_competitionName"])
	}
	return doc
}

func buildNormalized(doc models.SlimEventDocument, policy Policy) models.NormalizedEvent {
	home, away := models.SplitMatchName(doc.MatchName)
	sport := policy.SportLabel
	if sport == "" {
		sport = "futebol"
	}
	return models.NormalizedEvent{
		NormalizedID: models.BuildNormalizedID(sport, doc.StartTime, home, away),
		EventID:      doc.EventID,
		Home:         home,
		Away:         away,
		Kickoff:      doc.StartTime,
		Sources: []models.ProviderSnapshot{{
			Provider:   doc.Source,
			EventID:    doc.EventID,
			CapturedAt: doc.CapturedAt,
			Payload:    doc.Raw,
		}},
		UpdatedAt: doc.CapturedAt,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
