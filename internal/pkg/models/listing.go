package models

import "time"

// CandidateListing is a minimal event record discovered during a provider's
// listing scan. It only lives until the enricher folds it into an
// EnrichedRecord.
type CandidateListing struct {
	// NativeID is the provider-scoped event identifier. Listings without
	// one cannot be enriched and are passed through as-is.
	NativeID string
	// StartTime is the scheduled kickoff, zero when the listing payload
	// does not carry one.
	StartTime time.Time
	// Fields is the raw listing payload as decoded JSON. Used as a
	// fallback when the detail fetch fails.
	Fields map[string]any
}

// EnrichedRecord is a CandidateListing plus the detail payload fetched for
// it. Detail is nil when the fetch failed after retries or was never
// attempted; it is never a partially decoded value.
type EnrichedRecord struct {
	Listing CandidateListing
	Detail  map[string]any
}
