package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/superodds/oddscollector/internal/pkg/models"
	"github.com/superodds/oddscollector/internal/pkg/storage"
)

// MergeNormalized folds an incoming provider document into the existing
// stored document for the same normalized identity. The merge is
// idempotent, and commutative across providers except for home, away and
// kickoff, which are first-writer-wins: whichever provider merged first
// owns them until they are empty again.
//
// existing == nil means first sighting of the key.
func MergeNormalized(existing *models.NormalizedEvent, incoming models.NormalizedEvent, now time.Time) models.NormalizedEvent {
	var merged models.NormalizedEvent
	if existing != nil {
		merged = *existing
	}

	if merged.EventID == "" {
		merged.EventID = incoming.EventID
	}
	if merged.NormalizedID == "" {
		merged.NormalizedID = incoming.NormalizedID
	}

	// Sticky fields: incoming never overwrites a populated value.
	if merged.Home == "" {
		merged.Home = incoming.Home
	}
	if merged.Away == "" {
		merged.Away = incoming.Away
	}
	if merged.Kickoff.IsZero() {
		merged.Kickoff = incoming.Kickoff
	}

	// One entry per provider; the incoming provider replaces its own
	// previous snapshot and leaves everyone else's alone.
	byProvider := make(map[string]models.ProviderSnapshot, len(merged.Sources)+len(incoming.Sources))
	order := make([]string, 0, len(merged.Sources)+len(incoming.Sources))
	for _, src := range merged.Sources {
		if src.Provider == "" {
			continue
		}
		if _, seen := byProvider[src.Provider]; !seen {
			order = append(order, src.Provider)
		}
		byProvider[src.Provider] = src
	}
	for _, src := range incoming.Sources {
		if src.Provider == "" {
			continue
		}
		if _, seen := byProvider[src.Provider]; !seen {
			order = append(order, src.Provider)
		}
		byProvider[src.Provider] = src
	}
	sort.Strings(order)
	merged.Sources = make([]models.ProviderSnapshot, 0, len(order))
	for _, provider := range order {
		merged.Sources = append(merged.Sources, byProvider[provider])
	}

	merged.UpdatedAt = incoming.UpdatedAt
	if merged.UpdatedAt.IsZero() {
		merged.UpdatedAt = now
	}
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = incoming.CreatedAt
		if merged.CreatedAt.IsZero() {
			merged.CreatedAt = now
		}
	}
	return merged
}

// MergeUpsert merges a set of incoming normalized documents into storage:
// one batched lookup for the whole input, then a single replace-upsert
// per key. Duplicate keys within one input fold into each other in input
// order, so each flush targets distinct keys. Concurrent MergeUpsert
// calls for the same key race the read-merge-write cycle and can drop a
// provider's snapshot; callers run one merge stage per collection
// cycle, after every provider's run has finished.
func MergeUpsert(ctx context.Context, store storage.NormalizedEventStore, docs []models.NormalizedEvent) (storage.BulkResult, error) {
	var result storage.BulkResult
	if len(docs) == 0 {
		return result, nil
	}

	keys := make([]string, 0, len(docs))
	for _, doc := range docs {
		if key := doc.Key(); key != "" {
			keys = append(keys, key)
		}
	}
	existing, err := store.FindNormalizedByIDs(ctx, keys)
	if err != nil {
		return result, fmt.Errorf("failed to load existing normalized events: %w", err)
	}

	now := time.Now().UTC()
	merged := make(map[string]models.NormalizedEvent, len(docs))
	order := make([]string, 0, len(docs))
	for _, doc := range docs {
		key := doc.Key()
		if key == "" {
			continue
		}
		var base *models.NormalizedEvent
		if prev, seen := merged[key]; seen {
			base = &prev
		} else {
			order = append(order, key)
			if stored, found := existing[key]; found {
				base = &stored
			}
		}
		merged[key] = MergeNormalized(base, doc, now)
	}

	writeSet := make([]models.NormalizedEvent, 0, len(order))
	for _, key := range order {
		writeSet = append(writeSet, merged[key])
	}
	return store.BulkReplaceNormalized(ctx, writeSet)
}
