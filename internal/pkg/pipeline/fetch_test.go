package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFetchExhaustsAttemptsWithLinearBackoff(t *testing.T) {
	fetcher := NewFetcher(3, 500*time.Millisecond)
	var waits []time.Duration
	fetcher.sleep = func(_ context.Context, d time.Duration) { waits = append(waits, d) }

	calls := 0
	fetch := func(context.Context, string) (map[string]any, error) {
		calls++
		return nil, errors.New("connection reset")
	}

	detail, ok := fetcher.Fetch(context.Background(), fetch, "42")
	if ok || detail != nil {
		t.Fatalf("Fetch = (%v, %v), want (nil, false)", detail, ok)
	}
	if calls != 3 {
		t.Errorf("fetch called %d times, want 3", calls)
	}
	if len(waits) != 2 {
		t.Fatalf("slept %d times, want 2 (between attempts only)", len(waits))
	}
	if waits[0] != 500*time.Millisecond || waits[1] != time.Second {
		t.Errorf("waits = %v, want [500ms 1s]", waits)
	}
}

func TestFetchStopsRetryingOnSuccess(t *testing.T) {
	fetcher := NewFetcher(3, time.Millisecond)
	var waits int
	fetcher.sleep = func(context.Context, time.Duration) { waits++ }

	calls := 0
	fetch := func(context.Context, string) (map[string]any, error) {
		calls++
		if calls < 2 {
			return nil, errors.New("timeout")
		}
		return map[string]any{"id": "42"}, nil
	}

	detail, ok := fetcher.Fetch(context.Background(), fetch, "42")
	if !ok || detail == nil {
		t.Fatal("expected a successful fetch on the second attempt")
	}
	if calls != 2 {
		t.Errorf("fetch called %d times, want 2", calls)
	}
	if waits != 1 {
		t.Errorf("slept %d times, want 1", waits)
	}
}

func TestFetchTreatsNilDetailAsFailure(t *testing.T) {
	fetcher := NewFetcher(2, time.Millisecond)
	fetcher.sleep = func(context.Context, time.Duration) {}

	calls := 0
	fetch := func(context.Context, string) (map[string]any, error) {
		calls++
		return nil, nil
	}

	if _, ok := fetcher.Fetch(context.Background(), fetch, "42"); ok {
		t.Fatal("nil detail with nil error must not count as success")
	}
	if calls != 2 {
		t.Errorf("fetch called %d times, want 2 (nil detail is retried)", calls)
	}
}

func TestFetchHonorsCancelledContext(t *testing.T) {
	fetcher := NewFetcher(3, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls, failures := 0, 0
	fetcher.OnFailure = func() { failures++ }
	fetch := func(context.Context, string) (map[string]any, error) {
		calls++
		return map[string]any{}, nil
	}

	if _, ok := fetcher.Fetch(ctx, fetch, "42"); ok {
		t.Fatal("fetch on a cancelled context must fail")
	}
	if calls != 0 {
		t.Errorf("fetch called %d times on a cancelled context", calls)
	}
	if failures != 1 {
		t.Errorf("OnFailure fired %d times on cancellation, want 1", failures)
	}
}

func TestFetchReportsAttemptAndFailureHooks(t *testing.T) {
	fetcher := NewFetcher(3, time.Millisecond)
	fetcher.sleep = func(context.Context, time.Duration) {}

	attempts, failures := 0, 0
	fetcher.OnAttempt = func() { attempts++ }
	fetcher.OnFailure = func() { failures++ }

	fetcher.Fetch(context.Background(), func(context.Context, string) (map[string]any, error) {
		return nil, errors.New("boom")
	}, "42")

	if attempts != 3 {
		t.Errorf("OnAttempt fired %d times, want 3", attempts)
	}
	if failures != 1 {
		t.Errorf("OnFailure fired %d times, want 1", failures)
	}
}
