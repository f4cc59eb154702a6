// Package providers wires the per-bookmaker collectors into the shared
// pipeline through a name-keyed factory registry.
package providers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/superodds/oddscollector/internal/collector/providers/mirror"
	"github.com/superodds/oddscollector/internal/pkg/config"
	"github.com/superodds/oddscollector/internal/pkg/pipeline"
)

type Factory func(cfg *config.Config, resolver *mirror.Resolver) pipeline.Provider

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, f Factory) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		panic("providers: empty name in Register")
	}
	if f == nil {
		panic("providers: nil factory in Register for " + n)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[n]; exists {
		panic("providers: duplicate registration for " + n)
	}
	registry[n] = f
}

func FactoryByName(name string) (Factory, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[n]
	return f, ok
}

func AvailableNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build instantiates the providers named in the collector config, in the
// configured order. An unknown name is a configuration error.
func Build(cfg *config.Config, resolver *mirror.Resolver) ([]pipeline.Provider, error) {
	names := cfg.Collector.EnabledProviders
	if len(names) == 0 {
		names = AvailableNames()
	}

	built := make([]pipeline.Provider, 0, len(names))
	for _, name := range names {
		factory, ok := FactoryByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown provider %q (available: %v)", name, AvailableNames())
		}
		built = append(built, factory(cfg, resolver))
	}
	return built, nil
}
