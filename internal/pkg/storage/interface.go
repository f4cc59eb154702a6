package storage

import (
	"context"
	"time"

	"github.com/superodds/oddscollector/internal/pkg/models"
)

// BulkResult reports the outcome of one bulk replace: how many documents
// were newly inserted and how many replaced an existing one.
type BulkResult struct {
	Upserted int `json:"upserted"`
	Modified int `json:"modified"`
}

func (r *BulkResult) Add(other BulkResult) {
	r.Upserted += other.Upserted
	r.Modified += other.Modified
}

// RawEventStore persists per-provider slim event documents, keyed by
// (eventId, source). Replace semantics: the whole document is swapped,
// replaying the same batch converges to the same stored state.
type RawEventStore interface {
	BulkReplaceRaw(ctx context.Context, docs []models.SlimEventDocument) (BulkResult, error)
}

// NormalizedEventStore persists cross-provider merged documents keyed by
// normalizedId. FindNormalizedByIDs hydrates merge state for a whole
// input set in one round trip.
type NormalizedEventStore interface {
	FindNormalizedByIDs(ctx context.Context, ids []string) (map[string]models.NormalizedEvent, error)
	BulkReplaceNormalized(ctx context.Context, docs []models.NormalizedEvent) (BulkResult, error)
}

// EventStore is the full storage contract consumed by the pipeline.
type EventStore interface {
	RawEventStore
	NormalizedEventStore

	// DeleteStartedBefore removes raw and normalized documents whose
	// start time is before cutoff. Retention replacement for a TTL index.
	DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
