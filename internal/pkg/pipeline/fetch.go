package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrEmptyDetail marks a transport-valid response whose body lacks the
// structure the provider expects (missing fixture block, empty data
// list). It is retried exactly like a transport failure.
var ErrEmptyDetail = errors.New("detail payload missing expected structure")

// DetailFunc is one provider's "fetch event detail by id" capability.
// A nil map with a nil error is treated as ErrEmptyDetail.
type DetailFunc func(ctx context.Context, id string) (map[string]any, error)

// Fetcher wraps a DetailFunc with bounded retries and linear backoff
// (backoffUnit * attemptNumber between tries). Exhausting the attempt
// budget is never an error, only a missed enrichment: Fetch reports it
// through the ok result and the caller keeps the bare listing.
type Fetcher struct {
	Attempts    int
	BackoffUnit time.Duration

	// OnAttempt and OnFailure are observability hooks (metrics).
	OnAttempt func()
	OnFailure func()

	sleep func(ctx context.Context, d time.Duration)
}

func NewFetcher(attempts int, backoffUnit time.Duration) *Fetcher {
	if attempts <= 0 {
		attempts = 3
	}
	if backoffUnit <= 0 {
		backoffUnit = 500 * time.Millisecond
	}
	return &Fetcher{
		Attempts:    attempts,
		BackoffUnit: backoffUnit,
		sleep:       sleepContext,
	}
}

// Fetch runs fetch(ctx, id) up to Attempts times. All failures are
// converted to ok=false; nothing escapes past this boundary.
func (f *Fetcher) Fetch(ctx context.Context, fetch DetailFunc, id string) (map[string]any, bool) {
	sleep := f.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 1; attempt <= f.Attempts; attempt++ {
		// Cancellation counts as a failed fetch too, so the failure
		// metric covers work abandoned during shutdown.
		if ctx.Err() != nil {
			if f.OnFailure != nil {
				f.OnFailure()
			}
			return nil, false
		}
		if f.OnAttempt != nil {
			f.OnAttempt()
		}

		detail, err := fetch(ctx, id)
		if err == nil && detail != nil {
			return detail, true
		}
		if err == nil {
			err = ErrEmptyDetail
		}
		slog.Warn("Detail fetch failed", "id", id, "attempt", attempt, "max_attempts", f.Attempts, "error", err)

		if attempt < f.Attempts {
			sleep(ctx, f.BackoffUnit*time.Duration(attempt))
		}
	}

	if f.OnFailure != nil {
		f.OnFailure()
	}
	return nil, false
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
