package pipeline

import (
	"context"
	"sync"

	"github.com/superodds/oddscollector/internal/pkg/models"
)

// MaxWorkers is the hard cap on concurrent in-flight detail fetches,
// chosen to stay under upstream rate limits regardless of config.
const MaxWorkers = 12

// Enrich fetches details for all listings with at most workers concurrent
// fetches and yields enriched records in completion order, not submission
// order. Guarantees:
//
//   - every listing is yielded exactly once (a fetch failure yields the
//     listing with a nil Detail, it is never dropped);
//   - listings without a NativeID are yielded immediately without
//     consuming a worker slot;
//   - workers == 1 degrades to strictly sequential fetching;
//   - cancelling ctx stops submitting new work; in-flight fetches are
//     drained and the channel is closed, so no worker goroutine leaks.
//
// The output channel is buffered for the full input, so an early-exiting
// consumer does not block the pool either.
func Enrich(ctx context.Context, listings []models.CandidateListing, fetcher *Fetcher, fetch DetailFunc, workers int) <-chan models.EnrichedRecord {
	if workers < 1 {
		workers = 1
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}

	out := make(chan models.EnrichedRecord, len(listings))
	jobs := make(chan models.CandidateListing)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for listing := range jobs {
				record := models.EnrichedRecord{Listing: listing}
				if detail, ok := fetcher.Fetch(ctx, fetch, listing.NativeID); ok {
					record.Detail = detail
				}
				out <- record
			}
		}()
	}

	go func() {
		defer close(out)

		i := 0
	feed:
		for ; i < len(listings); i++ {
			listing := listings[i]
			if listing.NativeID == "" {
				out <- models.EnrichedRecord{Listing: listing}
				continue
			}
			select {
			case jobs <- listing:
			case <-ctx.Done():
				break feed
			}
		}
		close(jobs)

		// Listings not submitted before cancellation are yielded bare so
		// the consumer still sees exactly one record per input.
		for ; i < len(listings); i++ {
			out <- models.EnrichedRecord{Listing: listings[i]}
		}
		wg.Wait()
	}()

	return out
}
