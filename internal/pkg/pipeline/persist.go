package pipeline

import (
	"context"
	"log/slog"

	"github.com/superodds/oddscollector/internal/pkg/metrics"
	"github.com/superodds/oddscollector/internal/pkg/models"
	"github.com/superodds/oddscollector/internal/pkg/storage"
)

// KeyFunc derives the storage key for a document. Records without a
// derivable key are a data-quality condition: skipped and logged, never
// retried.
type KeyFunc func(models.SlimEventDocument) string

// Persister accumulates slim documents and flushes them as idempotent
// bulk replaces once the flush threshold fills up. The final partial
// batch is flushed by Flush at end-of-stream. A failed flush is logged
// and its batch is lost for the run; adding write-retry is a caller-side
// extension point.
type Persister struct {
	store     storage.RawEventStore
	keyFn     KeyFunc
	flushSize int
	provider  string
	metrics   *metrics.Metrics

	buf         []models.SlimEventDocument
	result      storage.BulkResult
	skipped     int
	flushes     int
	lostBatches int
}

func NewPersister(store storage.RawEventStore, flushSize int, provider string, m *metrics.Metrics) *Persister {
	if flushSize <= 0 {
		flushSize = 200
	}
	return &Persister{
		store:     store,
		keyFn:     func(doc models.SlimEventDocument) string { return doc.EventID },
		flushSize: flushSize,
		provider:  provider,
		metrics:   m,
		buf:       make([]models.SlimEventDocument, 0, flushSize),
	}
}

// WithKeyFunc overrides the default event-id key derivation.
func (p *Persister) WithKeyFunc(keyFn KeyFunc) *Persister {
	p.keyFn = keyFn
	return p
}

// Add buffers one document, flushing when the batch is full.
func (p *Persister) Add(ctx context.Context, doc models.SlimEventDocument) {
	if p.keyFn(doc) == "" {
		p.skipped++
		slog.Warn("Record without a derivable key skipped", "provider", p.provider, "match_name", doc.MatchName)
		return
	}
	p.buf = append(p.buf, doc)
	if len(p.buf) >= p.flushSize {
		p.flush(ctx)
	}
}

// Flush writes out the final partial batch. Call once at end-of-stream.
func (p *Persister) Flush(ctx context.Context) {
	if len(p.buf) > 0 {
		p.flush(ctx)
	}
}

func (p *Persister) flush(ctx context.Context) {
	// Duplicate keys within one flush make the bulk replace undefined for
	// that key, so later sightings win before the batch goes out.
	deduped := p.buf[:0]
	byKey := make(map[string]int, len(p.buf))
	for _, doc := range p.buf {
		key := p.keyFn(doc)
		if i, seen := byKey[key]; seen {
			deduped[i] = doc
			continue
		}
		byKey[key] = len(deduped)
		deduped = append(deduped, doc)
	}

	p.flushes++
	p.metrics.Flush(p.provider)
	result, err := p.store.BulkReplaceRaw(ctx, deduped)
	if err != nil {
		p.lostBatches++
		p.metrics.FlushError(p.provider)
		slog.Error("Bulk replace failed, batch lost for this run", "provider", p.provider, "batch_size", len(deduped), "error", err)
	} else {
		p.result.Add(result)
		p.metrics.RecordsPersisted(p.provider, result.Upserted+result.Modified)
		slog.Info("Flushed batch", "provider", p.provider, "batch_size", len(deduped), "upserted", result.Upserted, "modified", result.Modified)
	}
	p.buf = p.buf[:0]
}

// Result reports the accumulated bulk outcome across all flushes.
func (p *Persister) Result() storage.BulkResult { return p.result }

// Skipped reports how many records lacked a derivable key.
func (p *Persister) Skipped() int { return p.skipped }

// LostBatches reports how many flushes failed and dropped their batch.
func (p *Persister) LostBatches() int { return p.lostBatches }
