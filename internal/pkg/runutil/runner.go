// Package runutil runs provider collection functions in parallel with
// shared error handling.
package runutil

import (
	"context"
	"log/slog"
	"sync"

	"github.com/superodds/oddscollector/internal/pkg/pipeline"
)

// ProviderFunc runs one provider's collection cycle.
type ProviderFunc func(ctx context.Context, p pipeline.Provider) error

// RunOptions configures a parallel provider run.
type RunOptions struct {
	// LogStart logs when each provider starts.
	LogStart bool
	// OnError is called when a provider returns an error. Nil means
	// errors are only logged.
	OnError func(p pipeline.Provider, err error)
	// WaitForCompletion blocks until all providers finish, keeping the
	// passed context valid for the whole run. When false the caller must
	// not cancel the context until the providers are done.
	WaitForCompletion bool
}

// RunProviders starts providerFunc for every provider in parallel.
func RunProviders(ctx context.Context, providers []pipeline.Provider, providerFunc ProviderFunc, opts RunOptions) {
	if len(providers) == 0 {
		return
	}

	onError := opts.OnError
	if onError == nil {
		onError = func(p pipeline.Provider, err error) {
			slog.Error("Provider run failed", "provider", p.Name(), "error", err)
		}
	}

	var wg sync.WaitGroup
	for _, p := range providers {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()

			if opts.LogStart {
				slog.Info("Starting provider", "provider", p.Name())
			}
			if err := providerFunc(ctx, p); err != nil && ctx.Err() == nil {
				onError(p, err)
			}
		}()
	}

	if opts.WaitForCompletion {
		wg.Wait()
	}
}
