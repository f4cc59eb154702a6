package pipeline

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/superodds/oddscollector/internal/pkg/models"
)

func snapshotFrom(provider string, capturedAt time.Time) models.NormalizedEvent {
	return models.NormalizedEvent{
		NormalizedID: "FUTEBOL-20260912T193000Z-GREMIO-FLUMINENSE",
		EventID:      provider + "-100",
		Home:         "Grêmio",
		Away:         "Fluminense",
		Kickoff:      time.Date(2026, 9, 12, 19, 30, 0, 0, time.UTC),
		Sources: []models.ProviderSnapshot{{
			Provider:   provider,
			EventID:    provider + "-100",
			CapturedAt: capturedAt,
			Payload:    map[string]any{"from": provider},
		}},
		UpdatedAt: capturedAt,
	}
}

func TestMergeNormalizedSourcesCommute(t *testing.T) {
	now := time.Now().UTC()
	a := snapshotFrom("sportingbet", now)
	b := snapshotFrom("superbet", now)

	ab := MergeNormalized(&a, b, now)
	ba := MergeNormalized(&b, a, now)

	if !reflect.DeepEqual(ab.Sources, ba.Sources) {
		t.Errorf("sources differ by merge order:\n ab=%+v\n ba=%+v", ab.Sources, ba.Sources)
	}
	if len(ab.Sources) != 2 {
		t.Fatalf("merged sources = %d, want 2", len(ab.Sources))
	}
	if ab.Sources[0].Provider != "sportingbet" || ab.Sources[1].Provider != "superbet" {
		t.Errorf("sources not in provider order: %+v", ab.Sources)
	}
}

func TestMergeNormalizedStickyFieldsFirstWriterWins(t *testing.T) {
	now := time.Now().UTC()
	first := snapshotFrom("sportingbet", now)
	second := snapshotFrom("superbet", now)
	second.Home = "Gremio FBPA"
	second.Away = "Fluminense FC"
	second.Kickoff = first.Kickoff.Add(time.Minute)

	merged := MergeNormalized(&first, second, now)
	if merged.Home != "Grêmio" || merged.Away != "Fluminense" {
		t.Errorf("home/away = %q/%q, first writer must win", merged.Home, merged.Away)
	}
	if !merged.Kickoff.Equal(first.Kickoff) {
		t.Errorf("kickoff = %v, first writer must win", merged.Kickoff)
	}
}

func TestMergeNormalizedFillsEmptyStickyFields(t *testing.T) {
	now := time.Now().UTC()
	sparse := snapshotFrom("betmgm", now)
	sparse.Home, sparse.Away = "", ""
	sparse.Kickoff = time.Time{}

	full := snapshotFrom("sportingbet", now)
	merged := MergeNormalized(&sparse, full, now)
	if merged.Home != "Grêmio" || merged.Away != "Fluminense" {
		t.Errorf("empty sticky fields were not filled: %q/%q", merged.Home, merged.Away)
	}
	if merged.Kickoff.IsZero() {
		t.Error("zero kickoff was not filled")
	}
}

func TestMergeNormalizedIdempotent(t *testing.T) {
	now := time.Now().UTC()
	incoming := snapshotFrom("sportingbet", now)

	once := MergeNormalized(nil, incoming, now)
	twice := MergeNormalized(&once, incoming, now)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("replaying the same merge changed the document:\n once=%+v\n twice=%+v", once, twice)
	}
}

func TestMergeNormalizedProviderReplacesOwnSnapshot(t *testing.T) {
	now := time.Now().UTC()
	old := snapshotFrom("sportingbet", now.Add(-time.Hour))
	fresh := snapshotFrom("sportingbet", now)

	merged := MergeNormalized(&old, fresh, now)
	if len(merged.Sources) != 1 {
		t.Fatalf("sources = %d, want 1 (same provider replaces itself)", len(merged.Sources))
	}
	if !merged.Sources[0].CapturedAt.Equal(now) {
		t.Error("stale snapshot survived the merge")
	}
}

func TestMergeNormalizedTimestamps(t *testing.T) {
	created := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	later := created.Add(2 * time.Hour)

	first := MergeNormalized(nil, snapshotFrom("sportingbet", created), created)
	if !first.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", first.CreatedAt, created)
	}

	second := MergeNormalized(&first, snapshotFrom("superbet", later), later)
	if !second.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed on merge: %v", second.CreatedAt)
	}
	if !second.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", second.UpdatedAt, later)
	}
}

func TestMergeUpsertFoldsDuplicateKeys(t *testing.T) {
	store := newFakeEventStore()
	now := time.Now().UTC()

	docs := []models.NormalizedEvent{
		snapshotFrom("sportingbet", now),
		snapshotFrom("superbet", now),
	}
	result, err := MergeUpsert(context.Background(), store, docs)
	if err != nil {
		t.Fatalf("MergeUpsert: %v", err)
	}
	if result.Upserted != 1 || result.Modified != 0 {
		t.Errorf("result = %+v, want one upserted document", result)
	}

	stored := store.normalized[docs[0].NormalizedID]
	if len(stored.Sources) != 2 {
		t.Errorf("stored sources = %d, want both providers folded in", len(stored.Sources))
	}
}

func TestMergeUpsertExtendsExistingDocument(t *testing.T) {
	store := newFakeEventStore()
	now := time.Now().UTC()

	if _, err := MergeUpsert(context.Background(), store, []models.NormalizedEvent{snapshotFrom("sportingbet", now)}); err != nil {
		t.Fatalf("seed MergeUpsert: %v", err)
	}
	result, err := MergeUpsert(context.Background(), store, []models.NormalizedEvent{snapshotFrom("superbet", now)})
	if err != nil {
		t.Fatalf("MergeUpsert: %v", err)
	}
	if result.Modified != 1 || result.Upserted != 0 {
		t.Errorf("result = %+v, want one modified document", result)
	}

	stored := store.normalized["FUTEBOL-20260912T193000Z-GREMIO-FLUMINENSE"]
	if len(stored.Sources) != 2 {
		t.Errorf("stored sources = %d, want 2", len(stored.Sources))
	}
	if stored.EventID != "sportingbet-100" {
		t.Errorf("EventID = %q, first writer must win", stored.EventID)
	}
}

func TestMergeUpsertEmptyInput(t *testing.T) {
	store := newFakeEventStore()
	result, err := MergeUpsert(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("MergeUpsert: %v", err)
	}
	if result.Upserted != 0 || result.Modified != 0 {
		t.Errorf("result = %+v, want zero", result)
	}
}
